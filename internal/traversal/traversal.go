// Package traversal implements single-hop neighbor lookup and bounded BFS
// over a topology.Topology.
package traversal

import (
	"time"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/metrics"
	"github.com/qgraph/qgraph/internal/topology"
)

// Traverse performs a single-hop lookup: the distinct set of endpoints
// reachable from any seed via an active edge of type etype in direction
// dir, as of at. Result order is unspecified.
func Traverse(top *topology.Topology, seeds []core.Handle, etype core.EdgeType, dir core.Direction, at int64) []core.Handle {
	start := time.Now()
	defer func() { metrics.TraversalSingleHopDurationSeconds.Observe(time.Since(start).Seconds()) }()

	seen := make(map[core.Handle]struct{})
	var out []core.Handle
	for _, s := range seeds {
		var hop []core.Handle
		if dir == core.In {
			hop = top.ActiveIn(s, etype, at)
		} else {
			hop = top.ActiveOut(s, etype, at)
		}
		for _, h := range hop {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}
	metrics.TraversalSingleHopCallsTotal.Inc()
	return out
}

// TraverseBounded performs a BFS from seeds out to depth max, emitting
// every node whose shortest depth d satisfies min <= d <= max. The seeds
// are pre-marked visited so neither they, nor any cycle back to them, are
// ever emitted. If max == 0 or min > max, the result is empty.
func TraverseBounded(top *topology.Topology, seeds []core.Handle, etype core.EdgeType, dir core.Direction, min, max uint32, at int64) []core.Handle {
	start := time.Now()
	defer func() { metrics.TraversalBFSDurationSeconds.Observe(time.Since(start).Seconds()) }()
	defer metrics.TraversalBFSCallsTotal.Inc()

	if max == 0 || min > max {
		return nil
	}

	visited := make(map[core.Handle]struct{}, len(seeds))
	frontier := make([]core.Handle, 0, len(seeds))
	for _, s := range seeds {
		if _, dup := visited[s]; dup {
			continue
		}
		visited[s] = struct{}{}
		frontier = append(frontier, s)
	}

	var result []core.Handle
	for depth := uint32(1); depth <= max && len(frontier) > 0; depth++ {
		var next []core.Handle
		for _, h := range frontier {
			var hop []core.Handle
			if dir == core.In {
				hop = top.ActiveIn(h, etype, at)
			} else {
				hop = top.ActiveOut(h, etype, at)
			}
			for _, candidate := range hop {
				if _, dup := visited[candidate]; dup {
					continue
				}
				visited[candidate] = struct{}{}
				next = append(next, candidate)
			}
		}
		if depth >= min {
			result = append(result, next...)
		}
		frontier = next
	}
	return result
}
