package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// MockConnection implements Connection for testing the Orchestrator
// without a running systemd.
type MockConnection struct {
	GetUnitPropertyFunc   func(ctx context.Context, unitName, propertyName string) (*dbus.Property, error)
	GetUnitPropertiesFunc func(ctx context.Context, unitName string) (map[string]interface{}, error)
	StartUnitFunc         func(ctx context.Context, unitName, mode string) (chan string, error)
	StopUnitFunc          func(ctx context.Context, unitName, mode string) (chan string, error)
	RestartUnitFunc       func(ctx context.Context, unitName, mode string) (chan string, error)
	ResetFailedUnitFunc   func(ctx context.Context, unitName string) error
	EnableUnitFunc        func(ctx context.Context, unitName string) error
	ReloadFunc            func(ctx context.Context) error
	CloseFunc             func() error
}

// GetUnitProperty gets a property of a systemd unit.
func (m *MockConnection) GetUnitProperty(ctx context.Context, unitName, propertyName string) (*dbus.Property, error) {
	if m.GetUnitPropertyFunc != nil {
		return m.GetUnitPropertyFunc(ctx, unitName, propertyName)
	}
	return nil, fmt.Errorf("mock not implemented: GetUnitProperty")
}

// GetUnitProperties gets all properties of a systemd unit.
func (m *MockConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	if m.GetUnitPropertiesFunc != nil {
		return m.GetUnitPropertiesFunc(ctx, unitName)
	}
	return nil, fmt.Errorf("mock not implemented: GetUnitProperties")
}

// StartUnit starts a systemd unit.
func (m *MockConnection) StartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.StartUnitFunc != nil {
		return m.StartUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented: StartUnit")
}

// StopUnit stops a systemd unit.
func (m *MockConnection) StopUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.StopUnitFunc != nil {
		return m.StopUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented: StopUnit")
}

// RestartUnit restarts a systemd unit.
func (m *MockConnection) RestartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	if m.RestartUnitFunc != nil {
		return m.RestartUnitFunc(ctx, unitName, mode)
	}
	return nil, fmt.Errorf("mock not implemented: RestartUnit")
}

// ResetFailedUnit resets the failed state of a unit.
func (m *MockConnection) ResetFailedUnit(ctx context.Context, unitName string) error {
	if m.ResetFailedUnitFunc != nil {
		return m.ResetFailedUnitFunc(ctx, unitName)
	}
	return nil
}

// EnableUnit enables a unit's install-section symlinks.
func (m *MockConnection) EnableUnit(ctx context.Context, unitName string) error {
	if m.EnableUnitFunc != nil {
		return m.EnableUnitFunc(ctx, unitName)
	}
	return nil
}

// Reload reloads systemd configuration.
func (m *MockConnection) Reload(ctx context.Context) error {
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

// Close closes the connection.
func (m *MockConnection) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockConnectionFactory implements ConnectionFactory for testing.
type MockConnectionFactory struct {
	NewConnectionFunc func(ctx context.Context, userMode bool) (Connection, error)
	Connection        Connection
}

// NewConnection creates a new systemd connection based on configuration.
func (f *MockConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	if f.NewConnectionFunc != nil {
		return f.NewConnectionFunc(ctx, userMode)
	}
	if f.Connection != nil {
		return f.Connection, nil
	}
	return nil, fmt.Errorf("mock not configured")
}
