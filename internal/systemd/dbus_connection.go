package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/log"
)

// DBusConnection implements Connection interface wrapping systemd D-Bus operations.
type DBusConnection struct {
	conn *dbus.Conn
}

// NewDBusConnection creates a new D-Bus connection wrapper.
func NewDBusConnection(conn *dbus.Conn) *DBusConnection {
	return &DBusConnection{conn: conn}
}

// GetUnitProperty gets a property of a systemd unit.
func (d *DBusConnection) GetUnitProperty(ctx context.Context, unitName, propertyName string) (*dbus.Property, error) {
	prop, err := d.conn.GetUnitPropertyContext(ctx, unitName, propertyName)
	if err != nil {
		return nil, direrr.NewExec("get-property "+propertyName+" "+unitName, err)
	}
	return prop, nil
}

// GetUnitProperties gets all properties of a systemd unit.
func (d *DBusConnection) GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error) {
	props, err := d.conn.GetUnitPropertiesContext(ctx, unitName)
	if err != nil {
		return nil, direrr.NewExec("get-properties "+unitName, err)
	}
	return props, nil
}

// StartUnit starts a systemd unit.
func (d *DBusConnection) StartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	_, err := d.conn.StartUnitContext(ctx, unitName, mode, ch)
	if err != nil {
		return nil, direrr.NewServiceStartFailed(unitName, err)
	}
	return ch, nil
}

// StopUnit stops a systemd unit.
func (d *DBusConnection) StopUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	_, err := d.conn.StopUnitContext(ctx, unitName, mode, ch)
	if err != nil {
		return nil, direrr.NewServiceStopFailed(unitName, err)
	}
	return ch, nil
}

// RestartUnit restarts a systemd unit.
func (d *DBusConnection) RestartUnit(ctx context.Context, unitName, mode string) (chan string, error) {
	ch := make(chan string)
	_, err := d.conn.RestartUnitContext(ctx, unitName, mode, ch)
	if err != nil {
		return nil, direrr.NewServiceStartFailed(unitName, err)
	}
	return ch, nil
}

// ResetFailedUnit resets the failed state of a unit.
func (d *DBusConnection) ResetFailedUnit(ctx context.Context, unitName string) error {
	if err := d.conn.ResetFailedUnitContext(ctx, unitName); err != nil {
		return direrr.NewExec("reset-failed "+unitName, err)
	}
	return nil
}

// EnableUnit enables unitName's install-section symlinks.
func (d *DBusConnection) EnableUnit(ctx context.Context, unitName string) error {
	_, _, err := d.conn.EnableUnitFilesContext(ctx, []string{unitName}, false, false)
	if err != nil {
		return direrr.NewExec("enable "+unitName, err)
	}
	return nil
}

// Reload reloads systemd configuration.
func (d *DBusConnection) Reload(ctx context.Context) error {
	if err := d.conn.ReloadContext(ctx); err != nil {
		return direrr.NewServiceReloadFailed(err)
	}
	return nil
}

// Close closes the D-Bus connection.
func (d *DBusConnection) Close() error {
	d.conn.Close()
	return nil
}

// DefaultConnectionFactory implements ConnectionFactory interface.
type DefaultConnectionFactory struct {
	logger log.Logger
}

// NewConnectionFactory creates a new connection factory with injected logger.
func NewConnectionFactory(logger log.Logger) *DefaultConnectionFactory {
	return &DefaultConnectionFactory{
		logger: logger,
	}
}

// NewConnection creates a new systemd connection based on configuration.
func (f *DefaultConnectionFactory) NewConnection(ctx context.Context, userMode bool) (Connection, error) {
	var conn *dbus.Conn
	var err error

	if userMode {
		f.logger.Debug("Establishing user connection to systemd")
		conn, err = dbus.NewUserConnectionContext(ctx)
	} else {
		f.logger.Debug("Establishing system connection to systemd")
		conn, err = dbus.NewSystemConnectionContext(ctx)
	}

	if err != nil {
		return nil, direrr.NewExec("connect", err)
	}

	return NewDBusConnection(conn), nil
}
