// Package systemd wraps the systemd D-Bus API behind a small interface,
// and implements the Orchestrator (C7) on top of it.
package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Connection wraps systemd D-Bus operations for testability.
type Connection interface {
	// GetUnitProperty gets a property of a systemd unit.
	GetUnitProperty(ctx context.Context, unitName, propertyName string) (*dbus.Property, error)

	// GetUnitProperties gets all properties of a systemd unit.
	GetUnitProperties(ctx context.Context, unitName string) (map[string]interface{}, error)

	// StartUnit starts a systemd unit.
	StartUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// StopUnit stops a systemd unit.
	StopUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// RestartUnit restarts a systemd unit.
	RestartUnit(ctx context.Context, unitName, mode string) (chan string, error)

	// ResetFailedUnit resets the failed state of a unit.
	ResetFailedUnit(ctx context.Context, unitName string) error

	// EnableUnit enables a unit's static dependencies (install-section
	// symlinks); Enable skips calling this for generator-managed units.
	EnableUnit(ctx context.Context, unitName string) error

	// Reload reloads systemd configuration.
	Reload(ctx context.Context) error

	// Close closes the connection.
	Close() error
}

// ConnectionFactory creates Connection instances.
type ConnectionFactory interface {
	// NewConnection creates a new systemd connection based on configuration.
	NewConnection(ctx context.Context, userMode bool) (Connection, error)
}
