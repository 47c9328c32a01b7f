// Package graph implements the weighted, undirected contact network the
// epidemic runs over. Individuals live in a dense arena indexed by int,
// with a per-node adjacency list of (neighbour index, weight) so the
// per-day hot path never touches string-keyed maps.
package graph

import (
	"errors"
	"fmt"

	"github.com/nvandessel/seird/internal/models"
)

// DaysUnset marks an individual whose infection-day counter is not tracked.
const DaysUnset = -1

// NoHub marks an individual in a topology without communities.
const NoHub = -1

// ErrInvalidGraph is returned for structurally invalid graphs: duplicate
// ids, dangling endpoints, self-loops, duplicate edges or bad weights.
var ErrInvalidGraph = errors.New("invalid contact graph")

// Individual is one node of the contact graph.
type Individual struct {
	ID            string
	Age           int
	Status        models.Status
	InitialStatus models.Status
	DaysInfected  int
	IsDoctor      bool
	Hub           int
}

// HasDaysInfected reports whether the infection-day counter is set.
func (ind *Individual) HasDaysInfected() bool {
	return ind.DaysInfected != DaysUnset
}

// Neighbor is one adjacency entry.
type Neighbor struct {
	Index  int
	Weight float64
}

// Edge is an undirected contact. A < B always holds.
type Edge struct {
	A, B   int
	Weight float64
}

// ContactGraph is the population plus its contact edges. It is not safe
// for concurrent mutation; the session layer serialises access.
type ContactGraph struct {
	nodes []Individual
	index map[string]int
	adj   [][]Neighbor
	edges []Edge
	seen  map[uint64]struct{}
}

// New creates an empty graph with room for n individuals.
func New(n int) *ContactGraph {
	return &ContactGraph{
		nodes: make([]Individual, 0, n),
		index: make(map[string]int, n),
		adj:   make([][]Neighbor, 0, n),
		seen:  make(map[uint64]struct{}),
	}
}

// AddIndividual appends an individual and returns its index.
func (g *ContactGraph) AddIndividual(ind Individual) (int, error) {
	if ind.ID == "" {
		return 0, fmt.Errorf("%w: individual id is required", ErrInvalidGraph)
	}
	if _, exists := g.index[ind.ID]; exists {
		return 0, fmt.Errorf("%w: duplicate individual id %q", ErrInvalidGraph, ind.ID)
	}
	if !ind.Status.Valid() || !ind.InitialStatus.Valid() {
		return 0, fmt.Errorf("%w: individual %q has an invalid status", ErrInvalidGraph, ind.ID)
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, ind)
	g.adj = append(g.adj, nil)
	g.index[ind.ID] = idx
	return idx, nil
}

// AddEdge links a and b with the given weight. The weight must lie in
// (0, 1]; self-loops and duplicate edges are rejected.
func (g *ContactGraph) AddEdge(a, b int, weight float64) error {
	if a < 0 || a >= len(g.nodes) || b < 0 || b >= len(g.nodes) {
		return fmt.Errorf("%w: edge (%d,%d) references a missing individual", ErrInvalidGraph, a, b)
	}
	if a == b {
		return fmt.Errorf("%w: self-loop on %q", ErrInvalidGraph, g.nodes[a].ID)
	}
	if !(weight > 0 && weight <= 1) {
		return fmt.Errorf("%w: edge %q-%q weight %v outside (0,1]", ErrInvalidGraph, g.nodes[a].ID, g.nodes[b].ID, weight)
	}
	if a > b {
		a, b = b, a
	}
	key := edgeKey(a, b)
	if _, dup := g.seen[key]; dup {
		return fmt.Errorf("%w: duplicate edge %q-%q", ErrInvalidGraph, g.nodes[a].ID, g.nodes[b].ID)
	}
	g.seen[key] = struct{}{}
	g.edges = append(g.edges, Edge{A: a, B: b, Weight: weight})
	g.adj[a] = append(g.adj[a], Neighbor{Index: b, Weight: weight})
	g.adj[b] = append(g.adj[b], Neighbor{Index: a, Weight: weight})
	return nil
}

// HasEdge reports whether a and b are linked.
func (g *ContactGraph) HasEdge(a, b int) bool {
	if a > b {
		a, b = b, a
	}
	_, ok := g.seen[edgeKey(a, b)]
	return ok
}

// Len returns the number of individuals.
func (g *ContactGraph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *ContactGraph) EdgeCount() int { return len(g.edges) }

// Node returns a pointer to the individual at index i. Only the transition
// engine mutates the returned record.
func (g *ContactGraph) Node(i int) *Individual { return &g.nodes[i] }

// Neighbors returns the adjacency list of node i. The slice must not be modified.
func (g *ContactGraph) Neighbors(i int) []Neighbor { return g.adj[i] }

// Edges returns every edge once. The slice must not be modified.
func (g *ContactGraph) Edges() []Edge { return g.edges }

// IndexOf resolves an individual id to its arena index.
func (g *ContactGraph) IndexOf(id string) (int, bool) {
	idx, ok := g.index[id]
	return idx, ok
}

// Counts tallies individuals per compartment.
func (g *ContactGraph) Counts() models.StatusCounts {
	var c models.StatusCounts
	for i := range g.nodes {
		c[g.nodes[i].Status]++
	}
	return c
}

// Statuses copies the status of every node into dst (reallocating when it
// is too small) and returns it.
func (g *ContactGraph) Statuses(dst []models.Status) []models.Status {
	if cap(dst) < len(g.nodes) {
		dst = make([]models.Status, len(g.nodes))
	}
	dst = dst[:len(g.nodes)]
	for i := range g.nodes {
		dst[i] = g.nodes[i].Status
	}
	return dst
}

// AvailableDoctors counts doctors who are neither Infected nor Dead.
func (g *ContactGraph) AvailableDoctors() int {
	n := 0
	for i := range g.nodes {
		ind := &g.nodes[i]
		if ind.IsDoctor && ind.Status != models.Infected && ind.Status != models.Dead {
			n++
		}
	}
	return n
}

// ResetToInitial restores every individual to its initial status. Initially
// infected or exposed individuals restart their day counter at 0.
func (g *ContactGraph) ResetToInitial() {
	for i := range g.nodes {
		ind := &g.nodes[i]
		ind.Status = ind.InitialStatus
		ind.DaysInfected = initialDays(ind.Status)
	}
}

// Clone returns a deep copy of the graph.
func (g *ContactGraph) Clone() *ContactGraph {
	c := &ContactGraph{
		nodes: append([]Individual(nil), g.nodes...),
		index: make(map[string]int, len(g.index)),
		adj:   make([][]Neighbor, len(g.adj)),
		edges: append([]Edge(nil), g.edges...),
		seen:  make(map[uint64]struct{}, len(g.seen)),
	}
	for id, idx := range g.index {
		c.index[id] = idx
	}
	for i, list := range g.adj {
		c.adj[i] = append([]Neighbor(nil), list...)
	}
	for k := range g.seen {
		c.seen[k] = struct{}{}
	}
	return c
}

func initialDays(s models.Status) int {
	if s == models.Infected || s == models.Exposed {
		return 0
	}
	return DaysUnset
}

func edgeKey(a, b int) uint64 {
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}
