// Package graph is the public facade over the graph index: string
// interners, topology, hydration, traversal, matching, and snapshots,
// wired together as a single embeddable unit.
package graph

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/hydrate"
	"github.com/qgraph/qgraph/internal/interner"
	"github.com/qgraph/qgraph/internal/logging"
	"github.com/qgraph/qgraph/internal/match"
	"github.com/qgraph/qgraph/internal/snapshot"
	"github.com/qgraph/qgraph/internal/topology"
	"github.com/qgraph/qgraph/internal/traversal"
)

// Graph is the embeddable index: a pair of interners (node labels, edge
// type labels) over a mutable topology. It is thread-confined under the
// write-coordinator contract — see internal/coordinator for a reference
// caller that enforces single-writer, durable-first discipline. Graph
// itself does not enforce that discipline; it assumes its caller does.
type Graph struct {
	Nodes *interner.Interner
	Types *interner.Interner
	Topo  *topology.Topology

	log *zap.Logger
}

// Option configures a new Graph.
type Option func(*Graph)

// WithLogger overrides the graph's logger. It is tagged with the "graph"
// component before being stored, so its entries and Prometheus counters are
// distinguishable from the coordinator's or the demo binary's own. The
// default is a logging.DiscardLogger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Graph) { g.log = logging.ForComponent(l, "graph") }
}

// New returns an empty graph ready for hydration or direct mutation.
func New(opts ...Option) *Graph {
	g := &Graph{
		Nodes: interner.New(),
		Types: interner.New(),
		Topo:  topology.New(),
		log:   logging.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Intern returns the dense handle for a node label, interning it if new.
func (g *Graph) Intern(label string) core.Handle {
	return g.Nodes.Intern(label)
}

// Resolve returns the node label for a handle.
func (g *Graph) Resolve(h core.Handle) (string, error) {
	return g.Nodes.Resolve(h)
}

// InsertEdge interns both endpoints and the edge type, then appends the
// edge record to the topology.
func (g *Graph) InsertEdge(source, target, edgeType string, validFrom, validTo int64) core.EdgeType {
	src := g.Nodes.Intern(source)
	dst := g.Nodes.Intern(target)
	etype := core.EdgeType(g.Types.Intern(edgeType))
	g.Topo.InsertEdge(src, dst, etype, validFrom, validTo)
	return etype
}

// CloseEdge closes the oldest active record matching (source, target,
// edgeType) at the given time. Returns false if either label was never
// interned or no active record matched.
func (g *Graph) CloseEdge(source, target, edgeType string, at int64) bool {
	src, ok := g.Nodes.Lookup(source)
	if !ok {
		return false
	}
	dst, ok := g.Nodes.Lookup(target)
	if !ok {
		return false
	}
	etype, ok := g.Types.Lookup(edgeType)
	if !ok {
		return false
	}
	return g.Topo.CloseEdge(src, dst, core.EdgeType(etype), at)
}

// RemoveEdge is CloseEdge at the current wall-clock time, in microseconds
// since the Unix epoch.
func (g *Graph) RemoveEdge(source, target, edgeType string) bool {
	return g.CloseEdge(source, target, edgeType, time.Now().UnixMicro())
}

// TombstoneNode marks a node logically deleted from present-time queries.
// It interns the label if new, so a label never seen before is issued a
// handle and NodeState then reports it as tombstoned.
func (g *Graph) TombstoneNode(label string) {
	g.Topo.TombstoneNode(g.Nodes.Intern(label))
}

// ReviveNode clears a node's tombstone.
func (g *Graph) ReviveNode(label string) {
	h, ok := g.Nodes.Lookup(label)
	if !ok {
		return
	}
	g.Topo.ReviveNode(h)
}

// NodeState reports whether label is live or tombstoned. The second return
// value is false if label was never interned, in which case the state is
// meaningless.
func (g *Graph) NodeState(label string) (core.TombstoneState, bool) {
	h, ok := g.Nodes.Lookup(label)
	if !ok {
		return core.Live, false
	}
	return g.Topo.NodeState(h), true
}

// LoadArrowBatch streams an Arrow IPC byte source into the topology.
func (g *Graph) LoadArrowBatch(r io.Reader) error {
	if err := hydrate.New(g.Nodes, g.Types, g.Topo).LoadStream(r); err != nil {
		g.log.Error("hydrate arrow batch", zap.Error(err))
		return err
	}
	g.log.Info("hydrated arrow batch", zap.Int("nodes", g.Nodes.Len()))
	return nil
}

// Compact sorts and deduplicates every adjacency list and rebuilds the
// incoming mirror from the deduplicated outgoing lists.
func (g *Graph) Compact() {
	g.log.Info("compacting topology")
	g.Topo.Compact()
}

// Traverse returns the single-hop active neighbors of seeds, resolved to
// labels, deduplicated.
func (g *Graph) Traverse(seeds []string, edgeType string, dir core.Direction, at int64) []string {
	etype, ok := g.Types.Lookup(edgeType)
	if !ok {
		return nil
	}
	handles := g.resolveSeeds(seeds)
	return g.resolveHandles(traversal.Traverse(g.Topo, handles, core.EdgeType(etype), dir, at))
}

// TraverseBounded returns depth-bounded BFS reachability from seeds,
// resolved to labels.
func (g *Graph) TraverseBounded(seeds []string, edgeType string, dir core.Direction, min, max uint32, at int64) []string {
	etype, ok := g.Types.Lookup(edgeType)
	if !ok {
		return nil
	}
	handles := g.resolveSeeds(seeds)
	return g.resolveHandles(traversal.TraverseBounded(g.Topo, handles, core.EdgeType(etype), dir, min, max, at))
}

// Match runs subgraph pattern matching with the given constraints (edge
// type labels resolved against the type interner), binding pattern
// variable 0 to each of seeds in turn, resolving every result back to
// labels.
func (g *Graph) Match(pattern []PatternConstraint, seeds []string) ([][]string, error) {
	internal := make([]match.Constraint, len(pattern))
	for i, c := range pattern {
		etype, ok := g.Types.Lookup(c.EdgeType)
		if !ok {
			return nil, nil
		}
		internal[i] = match.Constraint{
			SrcVar:    c.SrcVar,
			DstVar:    c.DstVar,
			Type:      core.EdgeType(etype),
			Direction: c.Direction,
		}
	}

	handleSeeds := g.resolveSeeds(seeds)

	results, err := match.Match(g.Topo, internal, handleSeeds)
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(results))
	for i, assignment := range results {
		out[i] = g.resolveHandles(assignment)
	}
	return out, nil
}

// PatternConstraint is the label-level mirror of match.Constraint.
type PatternConstraint struct {
	SrcVar, DstVar int
	EdgeType       string
	Direction      core.Direction
}

// Save writes a binary snapshot of the entire graph to path.
func (g *Graph) Save(path string) error {
	if err := snapshot.Save(&snapshot.State{Nodes: g.Nodes, Types: g.Types, Topo: g.Topo}, path); err != nil {
		g.log.Error("save snapshot", zap.Error(err), zap.String("path", path))
		return err
	}
	g.log.Info("saved snapshot", zap.String("path", path))
	return nil
}

// Load replaces the graph's interners and topology with the contents of a
// binary snapshot.
func (g *Graph) Load(path string) error {
	state, err := snapshot.Load(path)
	if err != nil {
		g.log.Error("load snapshot", zap.Error(err), zap.String("path", path))
		return err
	}
	g.Nodes = state.Nodes
	g.Types = state.Types
	g.Topo = state.Topo
	g.log.Info("loaded snapshot", zap.String("path", path))
	return nil
}

func (g *Graph) resolveSeeds(labels []string) []core.Handle {
	handles := make([]core.Handle, 0, len(labels))
	for _, l := range labels {
		if h, ok := g.Nodes.Lookup(l); ok {
			handles = append(handles, h)
		}
	}
	return handles
}

func (g *Graph) resolveHandles(handles []core.Handle) []string {
	if handles == nil {
		return nil
	}
	labels := make([]string, len(handles))
	for i, h := range handles {
		label, err := g.Nodes.Resolve(h)
		if err != nil {
			label = ""
		}
		labels[i] = label
	}
	return labels
}
