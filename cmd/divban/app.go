// Package main is divban's thin CLI shell: wiring only, no engine logic.
// Descriptor loading, config-file schema, and logging sinks are out of
// scope (spec.md §1) -- this package exists to let an operator exercise
// the engine manually, not as a design surface in its own right.
package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/aryonoco/divban/internal/config"
	"github.com/aryonoco/divban/internal/execx"
	"github.com/aryonoco/divban/internal/hostinventory"
	"github.com/aryonoco/divban/internal/journal"
	"github.com/aryonoco/divban/internal/log"
	"github.com/aryonoco/divban/internal/provision"
	"github.com/aryonoco/divban/internal/systemd"
)

// App holds every dependency a subcommand might need, built once in
// PersistentPreRunE and threaded through cobra's command context.
type App struct {
	Logger       log.Logger
	Config       config.EngineConfig
	Gateway      *execx.Gateway
	Inventory    *hostinventory.Inventory
	Engine       *provision.Engine
	Journal      *journal.Journal
	Orchestrator *systemd.Orchestrator
}

// NewApp builds the production App: real process execution, real systemd
// D-Bus connections, and a sqlite-backed journal at cfg.JournalPath.
func NewApp(verbose, userMode bool, v *viper.Viper) (*App, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger(verbose)
	runner := execx.NewRealRunner()
	gateway := execx.New(runner)
	inventory := hostinventory.New(gateway)
	engine := provision.New(gateway, inventory, logger, cfg.Settings())

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("opening mutation journal: %w", err)
	}

	factory := systemd.NewConnectionFactory(logger)
	orch := systemd.NewOrchestrator(factory, systemd.Options{UserMode: userMode, Parallel: true}, logger)

	return &App{
		Logger:       logger,
		Config:       cfg,
		Gateway:      gateway,
		Inventory:    inventory,
		Engine:       engine,
		Journal:      j,
		Orchestrator: orch,
	}, nil
}

// Close releases the App's long-lived resources.
func (a *App) Close() error {
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
