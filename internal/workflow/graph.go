// Package workflow implements the stage lifecycle state machine and the
// per-project dependency graph that decides whether a stage may start.
package workflow

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

// BlockState tells whether a stage may start and which direct dependencies
// hold it back
type BlockState struct {
	Blocked  bool
	Blockers []uuid.UUID
}

// StatusFunc resolves the current status of a stage. Unknown stages report
// an empty status.
type StatusFunc func(id uuid.UUID) domain.StageStatus

// Graph is the dependency graph of one project. An edge stage -> dependsOn
// means stage cannot start before dependsOn is completed. The graph is kept
// acyclic.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[uuid.UUID]struct{}
	deps       map[uuid.UUID]map[uuid.UUID]struct{}
	dependents map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:      make(map[uuid.UUID]struct{}),
		deps:       make(map[uuid.UUID]map[uuid.UUID]struct{}),
		dependents: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// NewGraphFromEdges builds a graph from persisted dependency rows. Returns
// ErrCycleDetected if the stored edges are already cyclic.
func NewGraphFromEdges(edges []domain.StageDependency) (*Graph, error) {
	g := NewGraph()
	for _, e := range edges {
		if err := g.AddDependency(e.StageID, e.DependsOnStageID); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddNode registers a stage without edges
func (g *Graph) AddNode(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[id] = struct{}{}
}

// AddDependency records that stageID depends on dependsOnID. Adding an edge
// that already exists succeeds without change. An edge that would close a
// cycle fails with a *domain.CycleError and leaves the graph unchanged.
func (g *Graph) AddDependency(stageID, dependsOnID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.deps[stageID][dependsOnID]; ok {
		return nil
	}
	if stageID == dependsOnID || g.reachable(dependsOnID, stageID) {
		return &domain.CycleError{StageID: stageID, DependsOnID: dependsOnID}
	}

	g.nodes[stageID] = struct{}{}
	g.nodes[dependsOnID] = struct{}{}
	addEdge(g.deps, stageID, dependsOnID)
	addEdge(g.dependents, dependsOnID, stageID)
	return nil
}

// RemoveDependency deletes an edge. Reports whether the edge existed.
func (g *Graph) RemoveDependency(stageID, dependsOnID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.deps[stageID][dependsOnID]; !ok {
		return false
	}
	delete(g.deps[stageID], dependsOnID)
	delete(g.dependents[dependsOnID], stageID)
	return true
}

// HasDependency reports whether the edge stageID -> dependsOnID exists
func (g *Graph) HasDependency(stageID, dependsOnID uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.deps[stageID][dependsOnID]
	return ok
}

// Dependencies lists the direct dependencies of a stage, sorted
func (g *Graph) Dependencies(stageID uuid.UUID) []uuid.UUID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.deps[stageID])
}

// Dependents lists the stages that directly depend on stageID, sorted
func (g *Graph) Dependents(stageID uuid.UUID) []uuid.UUID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.dependents[stageID])
}

// IsBlocked checks only direct dependencies: a stage is blocked iff one of
// them is not completed. Transitive dependencies are not consulted.
func (g *Graph) IsBlocked(stageID uuid.UUID, statusOf StatusFunc) BlockState {
	g.mu.RLock()
	defer g.mu.RUnlock()

	blockers := []uuid.UUID{}
	for _, dep := range sortedKeys(g.deps[stageID]) {
		if statusOf(dep) != domain.StageStatusCompleted {
			blockers = append(blockers, dep)
		}
	}
	return BlockState{Blocked: len(blockers) > 0, Blockers: blockers}
}

// TopologicalOrder orders the given stages so every stage follows its
// dependencies. Among stages whose dependencies are satisfied, the one that
// comes first in preferred wins, so the result is stable.
func (g *Graph) TopologicalOrder(preferred []uuid.UUID) ([]uuid.UUID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inSet := make(map[uuid.UUID]bool, len(preferred))
	for _, id := range preferred {
		inSet[id] = true
	}

	placed := make(map[uuid.UUID]bool, len(preferred))
	out := make([]uuid.UUID, 0, len(preferred))
	for len(out) < len(preferred) {
		progressed := false
		for _, id := range preferred {
			if placed[id] || !g.ready(id, inSet, placed) {
				continue
			}
			placed[id] = true
			out = append(out, id)
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("ordering %d stages: %w", len(preferred), domain.ErrCycleDetected)
		}
	}
	return out, nil
}

func (g *Graph) ready(id uuid.UUID, inSet, placed map[uuid.UUID]bool) bool {
	for dep := range g.deps[id] {
		if inSet[dep] && !placed[dep] {
			return false
		}
	}
	return true
}

// reachable runs a DFS along dependency edges. Caller holds the lock.
func (g *Graph) reachable(from, to uuid.UUID) bool {
	visited := make(map[uuid.UUID]bool)
	stack := []uuid.UUID{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for next := range g.deps[n] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

func addEdge(m map[uuid.UUID]map[uuid.UUID]struct{}, from, to uuid.UUID) {
	set, ok := m[from]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

func sortedKeys(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.SortFunc(out, compareIDs)
	return out
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
