package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryonoco/divban/internal/direrr"
)

func TestTopologicalSortSimpleChain(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "web", Requires: []string{"db"}},
		{Name: "proxy", Requires: []string{"web"}},
	})
	require.NoError(t, err)

	order, err := s.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web", "proxy"}, order)
}

func TestTopologicalSortTieBreakLexical(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "c"},
		{Name: "a"},
		{Name: "b"},
	})
	require.NoError(t, err)

	order, err := s.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "a", Requires: []string{"b"}},
		{Name: "b", Requires: []string{"a"}},
	})
	require.NoError(t, err)

	_, err = s.TopologicalSort()
	assert.Error(t, err)
	assert.True(t, direrr.Is(err, direrr.KindInvalidConfig))
}

func TestNewSolverRejectsUnknownDependency(t *testing.T) {
	_, err := NewSolver([]DependencyNode{
		{Name: "web", Requires: []string{"missing"}},
	})
	assert.Error(t, err)
	assert.True(t, direrr.Is(err, direrr.KindInvalidConfig))
}

func TestLevelsParallelBatches(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "cache"},
		{Name: "web", Requires: []string{"db"}, Wants: []string{"cache"}},
	})
	require.NoError(t, err)

	levels, err := s.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.ElementsMatch(t, []string{"cache", "db"}, levels[0])
	assert.Equal(t, []string{"web"}, levels[1])
}

func TestStopOrderReversesFlatOrder(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "web", Requires: []string{"db"}},
	})
	require.NoError(t, err)

	stop, err := s.StopOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "db"}, stop)
}

func TestStopLevelsReversesLevelList(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "web", Requires: []string{"db"}},
	})
	require.NoError(t, err)

	levels, err := s.StopLevels()
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, []string{"web"}, levels[0])
	assert.Equal(t, []string{"db"}, levels[1])
}

func TestDependentsDirectOnly(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "web", Requires: []string{"db"}},
		{Name: "proxy", Requires: []string{"web"}},
	})
	require.NoError(t, err)

	deps, err := s.Dependents("db")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, deps)
}

func TestAllDependenciesBFSClosure(t *testing.T) {
	s, err := NewSolver([]DependencyNode{
		{Name: "db"},
		{Name: "web", Requires: []string{"db"}},
		{Name: "proxy", Requires: []string{"web"}},
	})
	require.NoError(t, err)

	deps, err := s.AllDependencies("proxy")
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web"}, deps)
}

func TestAllDependenciesUnknownNode(t *testing.T) {
	s, err := NewSolver([]DependencyNode{{Name: "db"}})
	require.NoError(t, err)
	_, err = s.AllDependencies("missing")
	assert.Error(t, err)
}
