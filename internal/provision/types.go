// Package provision implements the Mutation Engine: the transactional,
// idempotent, rollbackable host mutations that stand up and tear down a
// service's rootless identity (UID, subordinate range, home, linger,
// directories) per spec §4.6.
package provision

import (
	"github.com/aryonoco/divban/internal/execx"
	"github.com/aryonoco/divban/internal/hostinventory"
	"github.com/aryonoco/divban/internal/log"
)

// Settings configures the engine's tunables; defaults match spec §4.6.1/2.
type Settings struct {
	UIDRangeStart  int
	UIDRangeEnd    int
	SubRangeStart  int
	SubRangeSize   int
	UsernamePrefix string
	DataRoot       string
	SubuidPath     string
	SubgidPath     string
}

// DefaultSettings returns the spec-mandated defaults.
func DefaultSettings() Settings {
	return Settings{
		UIDRangeStart:  10000,
		UIDRangeEnd:    59999,
		SubRangeStart:  100000,
		SubRangeSize:   65536,
		UsernamePrefix: "divban-",
		DataRoot:       "/var/lib/divban",
		SubuidPath:     "/etc/subuid",
		SubgidPath:     "/etc/subgid",
	}
}

// ServiceUser is the resolved rootless identity for one service.
type ServiceUser struct {
	Name  string
	UID   int
	Home  string
	Shell string
}

// Username derives the deterministic service-user name from a service name.
func (s Settings) Username(service string) string {
	return s.UsernamePrefix + service
}

// MutationKind identifies the shape of one AppliedMutation, for replay.
type MutationKind int

// Mutation kinds, in the order provisioning applies them; the rollback
// replay inverts a transaction's log in reverse.
const (
	MutationAllocatedUID MutationKind = iota
	MutationCreatedUser
	MutationAppendedSubRange
	MutationCreatedDirectory
	MutationEnabledLinger
)

// AppliedMutation is one step of a transaction's log, sufficient to invert
// the step during rollback.
type AppliedMutation struct {
	Kind    MutationKind
	Subject string // username, path, etc., depending on Kind
	Extra   string // e.g. the subuid/subgid line appended
}

// Engine is the Mutation Engine, holding the collaborators every mutation
// needs: the process gateway, host inventory, locks, and logger.
type Engine struct {
	Gateway   *execx.Gateway
	Inventory *hostinventory.Inventory
	Locks     *LockRegistry
	Logger    log.Logger
	Settings  Settings
}

// New constructs an Engine with the given collaborators.
func New(gateway *execx.Gateway, inventory *hostinventory.Inventory, logger log.Logger, settings Settings) *Engine {
	return &Engine{
		Gateway:   gateway,
		Inventory: inventory,
		Locks:     NewLockRegistry(),
		Logger:    logger,
		Settings:  settings,
	}
}
