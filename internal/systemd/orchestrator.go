package systemd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aryonoco/divban/internal/dependency"
	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/log"
	"github.com/aryonoco/divban/internal/retry"
)

// Options configures one Orchestrator.
type Options struct {
	UserMode bool
	Parallel bool
}

// StatusEntry is one container's aggregated status, per spec §4.7.
type StatusEntry struct {
	Name        string
	Running     bool
	Description string
}

// Orchestrator drives the external unit manager through a dependency
// solver's levels: reload before start, start in dependency order, stop in
// reverse; plus unit-file enablement of a caller-given list of names, status
// aggregation, and single-unit variants. There is no disable operation.
type Orchestrator struct {
	factory  ConnectionFactory
	userMode bool
	parallel bool
	logger   log.Logger
}

// NewOrchestrator constructs an Orchestrator over factory.
func NewOrchestrator(factory ConnectionFactory, opts Options, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		factory:  factory,
		userMode: opts.UserMode,
		parallel: opts.Parallel,
		logger:   logger,
	}
}

// Start implements spec §4.7's Start: daemon-reload, then each solver
// level in order -- concurrent within a level when Parallel and the level
// has more than one member, sequential otherwise. Each unit start retries
// transient errors under the heavy schedule; any unit failure aborts the
// whole start.
func (o *Orchestrator) Start(ctx context.Context, solver *dependency.Solver) error {
	if err := o.daemonReload(ctx); err != nil {
		return err
	}

	levels, err := solver.Levels()
	if err != nil {
		return err
	}

	for _, level := range levels {
		if o.parallel && len(level) > 1 {
			if err := o.startParallel(ctx, level); err != nil {
				return err
			}
			continue
		}
		for _, name := range level {
			if err := o.startOne(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) startParallel(ctx context.Context, names []string) error {
	var wg sync.WaitGroup
	errs := make([]error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = o.startOne(ctx, name)
		}(i, name)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("unit %s failed to start: %w", names[i], err)
		}
	}
	return nil
}

func (o *Orchestrator) startOne(ctx context.Context, name string) error {
	unit := serviceUnit(name)
	return retry.Do(ctx, retry.Heavy, retry.ClassifyServiceError, func(ctx context.Context) error {
		conn, err := o.factory.NewConnection(ctx, o.userMode)
		if err != nil {
			return direrr.NewServiceStartFailed(unit, err)
		}
		defer func() { _ = conn.Close() }()

		ch, err := conn.StartUnit(ctx, unit, "replace")
		if err != nil {
			return direrr.NewServiceStartFailed(unit, err)
		}
		select {
		case result := <-ch:
			if result != "done" {
				return direrr.NewServiceStartFailed(unit, fmt.Errorf("result=%s", result))
			}
			return nil
		case <-ctx.Done():
			return direrr.NewServiceStartFailed(unit, ctx.Err())
		}
	})
}

// Stop implements spec §4.7's Stop: the solver's reverse levels, but
// unlike Start, individual failures are logged and do not abort the rest
// -- leaving a service partly up is worse than leaving it partly down.
func (o *Orchestrator) Stop(ctx context.Context, solver *dependency.Solver) error {
	levels, err := solver.StopLevels()
	if err != nil {
		return err
	}

	for _, level := range levels {
		if o.parallel && len(level) > 1 {
			o.stopParallel(ctx, level)
			continue
		}
		for _, name := range level {
			if err := o.stopOne(ctx, name); err != nil {
				o.logger.Warn("unit failed to stop", "unit", name, "error", err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) stopParallel(ctx context.Context, names []string) {
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := o.stopOne(ctx, name); err != nil {
				o.logger.Warn("unit failed to stop", "unit", name, "error", err)
			}
		}(name)
	}
	wg.Wait()
}

func (o *Orchestrator) stopOne(ctx context.Context, name string) error {
	unit := serviceUnit(name)
	conn, err := o.factory.NewConnection(ctx, o.userMode)
	if err != nil {
		return direrr.NewServiceStopFailed(unit, err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.StopUnit(ctx, unit, "replace")
	if err != nil {
		return direrr.NewServiceStopFailed(unit, err)
	}
	select {
	case result := <-ch:
		if result != "done" {
			return direrr.NewServiceStopFailed(unit, fmt.Errorf("result=%s", result))
		}
		return nil
	case <-ctx.Done():
		return direrr.NewServiceStopFailed(unit, ctx.Err())
	}
}

// Restart is Stop followed by Start.
func (o *Orchestrator) Restart(ctx context.Context, solver *dependency.Solver) error {
	if err := o.Stop(ctx, solver); err != nil {
		return err
	}
	return o.Start(ctx, solver)
}

// Enable calls systemctl-equivalent unit-file enablement for each name,
// skipping any unit whose FragmentPath shows it was produced by the
// Quadlet generator (under .../generator/ or /run/) -- the generator
// already wires auto-start for those.
func (o *Orchestrator) Enable(ctx context.Context, names []string) error {
	conn, err := o.factory.NewConnection(ctx, o.userMode)
	if err != nil {
		return direrr.NewExec("enable", err)
	}
	defer func() { _ = conn.Close() }()

	for _, name := range names {
		unit := serviceUnit(name)
		prop, err := conn.GetUnitProperty(ctx, unit, "FragmentPath")
		if err == nil {
			if path, ok := prop.Value.Value().(string); ok && generatorManaged(path) {
				o.logger.Debug("skipping enable, generator-managed unit", "unit", unit, "path", path)
				continue
			}
		}
		if err := conn.EnableUnit(ctx, unit); err != nil {
			return direrr.NewExec("enable "+unit, err)
		}
	}
	return nil
}

func generatorManaged(fragmentPath string) bool {
	return strings.Contains(fragmentPath, "/generator/") || strings.HasPrefix(fragmentPath, "/run/")
}

// Status implements spec §4.7's Status: isServiceActive per container,
// aggregated into name/running/description entries.
func (o *Orchestrator) Status(ctx context.Context, names []string) ([]StatusEntry, error) {
	conn, err := o.factory.NewConnection(ctx, o.userMode)
	if err != nil {
		return nil, direrr.NewExec("status", err)
	}
	defer func() { _ = conn.Close() }()

	entries := make([]StatusEntry, 0, len(names))
	for _, name := range names {
		unit := serviceUnit(name)
		props, err := conn.GetUnitProperties(ctx, unit)
		if err != nil {
			entries = append(entries, StatusEntry{Name: name, Running: false})
			continue
		}
		entry := StatusEntry{Name: name}
		if activeState, ok := props["ActiveState"].(string); ok {
			entry.Running = activeState == "active"
		}
		if desc, ok := props["Description"].(string); ok {
			entry.Description = desc
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StartSingle reloads the daemon and starts one unit; systemd's own unit
// dependencies bring up any required peers.
func (o *Orchestrator) StartSingle(ctx context.Context, name string) error {
	if err := o.daemonReload(ctx); err != nil {
		return err
	}
	return o.startOne(ctx, name)
}

// StopSingle stops one unit without touching its peers.
func (o *Orchestrator) StopSingle(ctx context.Context, name string) error {
	return o.stopOne(ctx, name)
}

func (o *Orchestrator) daemonReload(ctx context.Context) error {
	conn, err := o.factory.NewConnection(ctx, o.userMode)
	if err != nil {
		return direrr.NewServiceReloadFailed(err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Reload(ctx); err != nil {
		return direrr.NewServiceReloadFailed(err)
	}
	return nil
}

func serviceUnit(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}
