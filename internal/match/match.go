// Package match implements backtracking subgraph isomorphism over an
// ordered list of pattern edge constraints.
package match

import (
	"time"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/metrics"
	"github.com/qgraph/qgraph/internal/topology"
)

// Constraint is one edge of a pattern: an assertion that an active edge of
// Type exists between two pattern variables. Direction selects which way
// the edge runs; Out means SrcVar -> DstVar, In means DstVar -> SrcVar
// (the mirror, recovered from the original implementation's per-edge
// direction field — purely additive over spec.md's un-annotated triple,
// which is exactly Direction: Out).
type Constraint struct {
	SrcVar    int
	DstVar    int
	Type      core.EdgeType
	Direction core.Direction
}

func (c Constraint) effective() (fromVar, toVar int) {
	if c.Direction == core.In {
		return c.DstVar, c.SrcVar
	}
	return c.SrcVar, c.DstVar
}

// numVars returns 1 + max(var id) across the pattern.
func numVars(pattern []Constraint) int {
	max := 0
	for _, c := range pattern {
		if c.SrcVar > max {
			max = c.SrcVar
		}
		if c.DstVar > max {
			max = c.DstVar
		}
	}
	return max + 1
}

// Match runs the matcher for every seed in seeds (each seed binds variable
// 0) and returns every distinct, injective assignment satisfying all of
// pattern's constraints at the present moment. It returns a
// core.ErrPattern (Unbound) if the constraint order ever requires
// evaluating a constraint whose two ends are both unbound.
func Match(top *topology.Topology, pattern []Constraint, seeds []core.Handle) ([][]core.Handle, error) {
	start := time.Now()
	defer func() { metrics.MatchDurationSeconds.Observe(time.Since(start).Seconds()) }()

	v := numVars(pattern)
	var results [][]core.Handle

	for _, seed := range seeds {
		assignment := make([]core.Handle, v)
		bound := make([]bool, v)
		used := make(map[core.Handle]bool, v)

		assignment[0] = seed
		bound[0] = true
		used[seed] = true

		if err := backtrack(top, pattern, 0, assignment, bound, used, &results); err != nil {
			return nil, err
		}
	}

	metrics.MatchCallsTotal.Inc()
	metrics.MatchResultsTotal.Add(float64(len(results)))
	return results, nil
}

func backtrack(top *topology.Topology, pattern []Constraint, ci int, assignment []core.Handle, bound []bool, used map[core.Handle]bool, results *[][]core.Handle) error {
	if ci == len(pattern) {
		row := make([]core.Handle, len(assignment))
		copy(row, assignment)
		*results = append(*results, row)
		return nil
	}

	c := pattern[ci]
	fromVar, toVar := c.effective()
	fromBound, toBound := bound[fromVar], bound[toVar]

	switch {
	case fromBound && toBound:
		if hasActiveEdge(top, assignment[fromVar], assignment[toVar], c.Type) {
			return backtrack(top, pattern, ci+1, assignment, bound, used, results)
		}
		return nil

	case fromBound && !toBound:
		for _, candidate := range top.ActiveOut(assignment[fromVar], c.Type, core.Now) {
			if used[candidate] {
				continue
			}
			assignment[toVar] = candidate
			bound[toVar] = true
			used[candidate] = true

			if err := backtrack(top, pattern, ci+1, assignment, bound, used, results); err != nil {
				return err
			}

			bound[toVar] = false
			delete(used, candidate)
		}
		return nil

	case !fromBound && toBound:
		for _, candidate := range top.ActiveIn(assignment[toVar], c.Type, core.Now) {
			if used[candidate] {
				continue
			}
			assignment[fromVar] = candidate
			bound[fromVar] = true
			used[candidate] = true

			if err := backtrack(top, pattern, ci+1, assignment, bound, used, results); err != nil {
				return err
			}

			bound[fromVar] = false
			delete(used, candidate)
		}
		return nil

	default:
		return core.NewUnboundPatternError(ci)
	}
}

func hasActiveEdge(top *topology.Topology, from, to core.Handle, etype core.EdgeType) bool {
	for _, h := range top.ActiveOut(from, etype, core.Now) {
		if h == to {
			return true
		}
	}
	return false
}
