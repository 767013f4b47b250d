package systemd

import (
	"context"
	"fmt"
	"testing"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryonoco/divban/internal/dependency"
	"github.com/aryonoco/divban/internal/log"
)

func doneChan() chan string {
	ch := make(chan string, 1)
	ch <- "done"
	close(ch)
	return ch
}

func newTestSolver(t *testing.T) *dependency.Solver {
	t.Helper()
	solver, err := dependency.NewSolver([]dependency.DependencyNode{
		{Name: "db"},
		{Name: "cache"},
		{Name: "web", Requires: []string{"db", "cache"}},
	})
	require.NoError(t, err)
	return solver
}

func TestOrchestratorStartSucceedsInLevelOrder(t *testing.T) {
	solver := newTestSolver(t)
	var started []string

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StartUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					started = append(started, unitName)
					return doneChan(), nil
				},
				ReloadFunc: func(_ context.Context) error { return nil },
				CloseFunc:  func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: false}, log.Nop())
	err := orch.Start(context.Background(), solver)
	require.NoError(t, err)

	require.Len(t, started, 3)
	assert.Equal(t, "web.service", started[2])
}

func TestOrchestratorStartAbortsOnFailure(t *testing.T) {
	solver := newTestSolver(t)

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StartUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					if unitName == "cache.service" {
						return nil, fmt.Errorf("unit not found: cache.service")
					}
					return doneChan(), nil
				},
				ReloadFunc: func(_ context.Context) error { return nil },
				CloseFunc:  func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: false}, log.Nop())
	err := orch.Start(context.Background(), solver)
	require.Error(t, err)
}

func TestOrchestratorStartParallelWithinLevel(t *testing.T) {
	solver := newTestSolver(t)
	seen := make(chan string, 3)

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StartUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					seen <- unitName
					return doneChan(), nil
				},
				ReloadFunc: func(_ context.Context) error { return nil },
				CloseFunc:  func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: true}, log.Nop())
	err := orch.Start(context.Background(), solver)
	require.NoError(t, err)
	close(seen)

	var names []string
	for n := range seen {
		names = append(names, n)
	}
	assert.Len(t, names, 3)
}

func TestOrchestratorStopContinuesAfterFailure(t *testing.T) {
	solver := newTestSolver(t)
	var stopped []string

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StopUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					if unitName == "web.service" {
						return nil, fmt.Errorf("unit not found: web.service")
					}
					stopped = append(stopped, unitName)
					return doneChan(), nil
				},
				CloseFunc: func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: false}, log.Nop())
	err := orch.Stop(context.Background(), solver)
	require.NoError(t, err, "Stop logs failures but never returns them")
	assert.Contains(t, stopped, "db.service")
	assert.Contains(t, stopped, "cache.service")
}

func TestOrchestratorStopReverseOrder(t *testing.T) {
	solver := newTestSolver(t)
	var stopped []string

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StopUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					stopped = append(stopped, unitName)
					return doneChan(), nil
				},
				CloseFunc: func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: false}, log.Nop())
	err := orch.Stop(context.Background(), solver)
	require.NoError(t, err)

	require.Len(t, stopped, 3)
	assert.Equal(t, "web.service", stopped[0])
}

func TestOrchestratorRestartStopsThenStarts(t *testing.T) {
	solver := newTestSolver(t)
	var calls []string

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				StartUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					calls = append(calls, "start:"+unitName)
					return doneChan(), nil
				},
				StopUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					calls = append(calls, "stop:"+unitName)
					return doneChan(), nil
				},
				ReloadFunc: func(_ context.Context) error { return nil },
				CloseFunc:  func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true, Parallel: false}, log.Nop())
	err := orch.Restart(context.Background(), solver)
	require.NoError(t, err)

	require.Len(t, calls, 6)
	assert.Equal(t, "stop:web.service", calls[0])
	assert.Equal(t, "start:web.service", calls[5])
}

func TestOrchestratorEnableSkipsGeneratorManagedUnits(t *testing.T) {
	var enabled []string

	conn := &MockConnection{
		GetUnitPropertyFunc: func(_ context.Context, unitName, propertyName string) (*dbus.Property, error) {
			assert.Equal(t, "FragmentPath", propertyName)
			path := "/etc/systemd/system/" + unitName
			if unitName == "quadlet-managed.service" {
				path = "/run/systemd/generator/" + unitName
			}
			return &dbus.Property{Value: godbus.MakeVariant(path)}, nil
		},
		EnableUnitFunc: func(_ context.Context, unitName string) error {
			enabled = append(enabled, unitName)
			return nil
		},
		CloseFunc: func() error { return nil },
	}
	factory := &MockConnectionFactory{Connection: conn}

	orch := NewOrchestrator(factory, Options{UserMode: true}, log.Nop())
	err := orch.Enable(context.Background(), []string{"plain", "quadlet-managed"})
	require.NoError(t, err)

	assert.Contains(t, enabled, "plain.service")
	assert.NotContains(t, enabled, "quadlet-managed.service")
}

func TestOrchestratorStatusAggregatesActiveState(t *testing.T) {
	conn := &MockConnection{
		GetUnitPropertiesFunc: func(_ context.Context, unitName string) (map[string]interface{}, error) {
			if unitName == "down.service" {
				return map[string]interface{}{"ActiveState": "inactive", "Description": "down svc"}, nil
			}
			return map[string]interface{}{"ActiveState": "active", "Description": "up svc"}, nil
		},
		CloseFunc: func() error { return nil },
	}
	factory := &MockConnectionFactory{Connection: conn}

	orch := NewOrchestrator(factory, Options{UserMode: true}, log.Nop())
	entries, err := orch.Status(context.Background(), []string{"up", "down"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "up", entries[0].Name)
	assert.True(t, entries[0].Running)
	assert.Equal(t, "up svc", entries[0].Description)

	assert.Equal(t, "down", entries[1].Name)
	assert.False(t, entries[1].Running)
}

func TestOrchestratorStatusMarksUnreachableUnitsNotRunning(t *testing.T) {
	conn := &MockConnection{
		GetUnitPropertiesFunc: func(_ context.Context, unitName string) (map[string]interface{}, error) {
			return nil, fmt.Errorf("unit not found: %s", unitName)
		},
		CloseFunc: func() error { return nil },
	}
	factory := &MockConnectionFactory{Connection: conn}

	orch := NewOrchestrator(factory, Options{UserMode: true}, log.Nop())
	entries, err := orch.Status(context.Background(), []string{"gone"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Running)
}

func TestOrchestratorStartSingleReloadsThenStarts(t *testing.T) {
	var reloaded, started bool

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				ReloadFunc: func(_ context.Context) error {
					reloaded = true
					return nil
				},
				StartUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					assert.True(t, reloaded, "daemon must reload before starting")
					started = true
					assert.Equal(t, "solo.service", unitName)
					return doneChan(), nil
				},
				CloseFunc: func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true}, log.Nop())
	err := orch.StartSingle(context.Background(), "solo")
	require.NoError(t, err)
	assert.True(t, started)
}

func TestOrchestratorStopSingleDoesNotReload(t *testing.T) {
	var reloaded, stopped bool

	factory := &MockConnectionFactory{
		NewConnectionFunc: func(_ context.Context, _ bool) (Connection, error) {
			return &MockConnection{
				ReloadFunc: func(_ context.Context) error {
					reloaded = true
					return nil
				},
				StopUnitFunc: func(_ context.Context, unitName, _ string) (chan string, error) {
					stopped = true
					assert.Equal(t, "solo.service", unitName)
					return doneChan(), nil
				},
				CloseFunc: func() error { return nil },
			}, nil
		},
	}

	orch := NewOrchestrator(factory, Options{UserMode: true}, log.Nop())
	err := orch.StopSingle(context.Background(), "solo")
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.False(t, reloaded)
}

func TestServiceUnitAppendsSuffixOnlyWhenBare(t *testing.T) {
	assert.Equal(t, "web.service", serviceUnit("web"))
	assert.Equal(t, "web.timer", serviceUnit("web.timer"))
}

func TestGeneratorManagedDetectsGeneratorAndRunPaths(t *testing.T) {
	assert.True(t, generatorManaged("/run/systemd/generator/foo.service"))
	assert.True(t, generatorManaged("/run/user/1000/foo.service"))
	assert.False(t, generatorManaged("/etc/systemd/system/foo.service"))
}
