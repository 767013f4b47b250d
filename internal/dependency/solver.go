// Package dependency implements the Dependency Solver: topological
// ordering and parallel-level extraction over a set of named nodes whose
// dependencies are the union of "requires" and "wants" edges.
package dependency

import (
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/aryonoco/divban/internal/direrr"
)

// DependencyNode is one entry in the graph: Name is the node's identity;
// Requires and Wants name other nodes' Name values this node depends on.
// Requires is a hard dependency, Wants is soft -- the solver itself does
// not distinguish them beyond their union forming the edge set; the
// distinction matters only to the Orchestrator that later decides whether
// a missing/failed dependency aborts a start.
type DependencyNode struct {
	Name     string
	Requires []string
	Wants    []string
}

// Solver holds the validated dependency graph for one set of nodes,
// built on a dominikbraun/graph directed graph for storage and adjacency
// queries; Kahn's algorithm and level extraction are layered on top since
// the library's own topological sort does not expose per-level structure.
type Solver struct {
	nodes map[string]DependencyNode
	g     graph.Graph[string, string]
}

// NewSolver validates that every named dependency refers to another node's
// Name and builds the underlying graph. It does not itself detect cycles --
// that happens lazily in TopologicalSort, per spec.
func NewSolver(nodes []DependencyNode) (*Solver, error) {
	byName := make(map[string]DependencyNode, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}

	g := graph.New(graph.StringHash, graph.Directed())
	for _, n := range nodes {
		if err := g.AddVertex(n.Name); err != nil {
			return nil, direrr.NewInvalidConfig("nodes", "duplicate node name: "+n.Name)
		}
	}

	for _, n := range nodes {
		for _, dep := range union(n.Requires, n.Wants) {
			if _, ok := byName[dep]; !ok {
				return nil, direrr.NewInvalidConfig("nodes["+n.Name+"]", "unknown dependency: "+dep)
			}
			// Edge dependency -> dependent: the dependency must be placed
			// before the node that names it.
			if err := g.AddEdge(dep, n.Name); err != nil && err != graph.ErrEdgeAlreadyExists {
				return nil, direrr.NewInvalidConfig("nodes["+n.Name+"]", "invalid edge to "+dep+": "+err.Error())
			}
		}
	}

	return &Solver{nodes: byName, g: g}, nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, xs := range [][]string{a, b} {
		for _, x := range xs {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}
	return out
}

// TopologicalSort runs Kahn's algorithm: compute in-degree per node from the
// union of requires/wants, seed a queue with zero-in-degree nodes, and
// repeatedly pop/decrement/enqueue. If the output doesn't cover every node,
// the graph has a cycle and InvalidConfig is returned. Tie-breaking among
// equally-ready nodes is lexical by name, for deterministic test output --
// the spec leaves this unspecified beyond the partial order it must respect.
func (s *Solver) TopologicalSort() ([]string, error) {
	preds, err := s.g.PredecessorMap()
	if err != nil {
		return nil, direrr.NewInvalidConfig("nodes", "failed to compute predecessors: "+err.Error())
	}
	succs, err := s.g.AdjacencyMap()
	if err != nil {
		return nil, direrr.NewInvalidConfig("nodes", "failed to compute adjacency: "+err.Error())
	}

	indeg := make(map[string]int, len(preds))
	for v, p := range preds {
		indeg[v] = len(p)
	}

	var ready []string
	for v, d := range indeg {
		if d == 0 {
			ready = append(ready, v)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(indeg))
	for len(ready) > 0 {
		v := ready[0]
		ready = ready[1:]
		order = append(order, v)

		var nowReady []string
		for w := range succs[v] {
			indeg[w]--
			if indeg[w] == 0 {
				nowReady = append(nowReady, w)
			}
		}
		sort.Strings(nowReady)
		ready = append(ready, nowReady...)
		sort.Strings(ready)
	}

	if len(order) != len(indeg) {
		return nil, direrr.NewInvalidConfig("nodes", "dependency graph contains a cycle")
	}
	return order, nil
}

// Levels extracts parallel-execution batches from the topological order: a
// node is ready once every one of its dependencies has already been placed
// into an earlier level. Each round collects every currently-ready
// remaining node as one level.
func (s *Solver) Levels() ([][]string, error) {
	order, err := s.TopologicalSort()
	if err != nil {
		return nil, err
	}

	preds, err := s.g.PredecessorMap()
	if err != nil {
		return nil, direrr.NewInvalidConfig("nodes", "failed to compute predecessors: "+err.Error())
	}

	placed := make(map[string]bool, len(order))
	remaining := append([]string(nil), order...)
	var levels [][]string

	for len(remaining) > 0 {
		var level []string
		var next []string
		for _, name := range remaining {
			if allPlaced(preds[name], placed) {
				level = append(level, name)
			} else {
				next = append(next, name)
			}
		}
		if len(level) == 0 {
			break
		}
		sort.Strings(level)
		levels = append(levels, level)
		for _, name := range level {
			placed[name] = true
		}
		remaining = next
	}

	return levels, nil
}

func allPlaced(deps map[string]graph.Edge[string], placed map[string]bool) bool {
	for dep := range deps {
		if !placed[dep] {
			return false
		}
	}
	return true
}

// StopOrder reverses the flat topological order for shutdown: dependents
// stop before their dependencies.
func (s *Solver) StopOrder() ([]string, error) {
	order, err := s.TopologicalSort()
	if err != nil {
		return nil, err
	}
	return reverseStrings(order), nil
}

// StopLevels reverses the level list; each reversed level remains a valid
// parallel stop-phase batch.
func (s *Solver) StopLevels() ([][]string, error) {
	levels, err := s.Levels()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(levels))
	for i, l := range levels {
		out[len(levels)-1-i] = l
	}
	return out, nil
}

// Dependents returns the direct consumers of name -- nodes whose
// requires/wants names it directly.
func (s *Solver) Dependents(name string) ([]string, error) {
	succs, err := s.g.AdjacencyMap()
	if err != nil {
		return nil, direrr.NewInvalidConfig("nodes", "failed to compute adjacency: "+err.Error())
	}
	edges, ok := succs[name]
	if !ok {
		return nil, direrr.NewNotFound("nodes", name)
	}
	out := make([]string, 0, len(edges))
	for w := range edges {
		out = append(out, w)
	}
	sort.Strings(out)
	return out, nil
}

// AllDependencies returns the full BFS closure of name's dependencies
// through requires ∪ wants.
func (s *Solver) AllDependencies(name string) ([]string, error) {
	if _, ok := s.nodes[name]; !ok {
		return nil, direrr.NewNotFound("nodes", name)
	}
	preds, err := s.g.PredecessorMap()
	if err != nil {
		return nil, direrr.NewInvalidConfig("nodes", "failed to compute predecessors: "+err.Error())
	}

	visited := make(map[string]bool)
	queue := []string{name}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range preds[cur] {
			if !visited[dep] {
				visited[dep] = true
				out = append(out, dep)
				queue = append(queue, dep)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func reverseStrings(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}
