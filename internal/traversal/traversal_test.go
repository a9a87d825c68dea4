package traversal

import (
	"testing"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/topology"
	"github.com/stretchr/testify/assert"
)

const typeNext core.EdgeType = 0

func chainTopology() (*topology.Topology, [5]core.Handle) {
	handles := [5]core.Handle{0, 1, 2, 3, 4} // A,B,C,D,E
	top := topology.New()
	top.InsertEdge(handles[0], handles[1], typeNext, 0, core.Forever)
	top.InsertEdge(handles[1], handles[2], typeNext, 0, core.Forever)
	top.InsertEdge(handles[2], handles[3], typeNext, 0, core.Forever)
	top.InsertEdge(handles[3], handles[4], typeNext, 0, core.Forever)
	return top, handles
}

func TestTraverseBounded_ChainDepthWindows(t *testing.T) {
	top, h := chainTopology()
	a, b, c, d, e := h[0], h[1], h[2], h[3], h[4]

	assert.ElementsMatch(t, []core.Handle{b, c}, TraverseBounded(top, []core.Handle{a}, typeNext, core.Out, 1, 2, core.Now))
	assert.ElementsMatch(t, []core.Handle{c, d, e}, TraverseBounded(top, []core.Handle{a}, typeNext, core.Out, 2, 4, core.Now))
	assert.ElementsMatch(t, []core.Handle{b, c, d, e}, TraverseBounded(top, []core.Handle{a}, typeNext, core.Out, 1, 10, core.Now))
}

func TestTraverseBounded_CycleNeverReemitsSeed(t *testing.T) {
	const typeLoop core.EdgeType = 1
	a, b := core.Handle(0), core.Handle(1)
	top := topology.New()
	top.InsertEdge(a, b, typeLoop, 0, core.Forever)
	top.InsertEdge(b, a, typeLoop, 0, core.Forever)

	result := TraverseBounded(top, []core.Handle{a}, typeLoop, core.Out, 1, 5, core.Now)
	assert.Equal(t, []core.Handle{b}, result)
}

func TestTraverseBounded_EmptySeeds(t *testing.T) {
	top, _ := chainTopology()
	assert.Empty(t, TraverseBounded(top, nil, typeNext, core.Out, 1, 5, core.Now))
}

func TestTraverseBounded_MinGreaterThanMaxIsEmptyNotError(t *testing.T) {
	top, h := chainTopology()
	assert.Empty(t, TraverseBounded(top, []core.Handle{h[0]}, typeNext, core.Out, 5, 1, core.Now))
}

func TestTraverseBounded_MaxZeroIsEmpty(t *testing.T) {
	top, h := chainTopology()
	assert.Empty(t, TraverseBounded(top, []core.Handle{h[0]}, typeNext, core.Out, 0, 0, core.Now))
}

func TestTraverseBounded_SelfLoopNotReemitted(t *testing.T) {
	a := core.Handle(0)
	top := topology.New()
	top.InsertEdge(a, a, typeNext, 0, core.Forever)

	assert.Empty(t, TraverseBounded(top, []core.Handle{a}, typeNext, core.Out, 1, 1, core.Now))
}

func TestTraverse_DedupsAcrossSeeds(t *testing.T) {
	a, b, c := core.Handle(0), core.Handle(1), core.Handle(2)
	top := topology.New()
	top.InsertEdge(a, c, typeNext, 0, core.Forever)
	top.InsertEdge(b, c, typeNext, 0, core.Forever)

	result := Traverse(top, []core.Handle{a, b}, typeNext, core.Out, core.Now)
	assert.Equal(t, []core.Handle{c}, result)
}

func TestTraverse_Direction(t *testing.T) {
	a, b := core.Handle(0), core.Handle(1)
	top := topology.New()
	top.InsertEdge(a, b, typeNext, 0, core.Forever)

	assert.Equal(t, []core.Handle{b}, Traverse(top, []core.Handle{a}, typeNext, core.Out, core.Now))
	assert.Equal(t, []core.Handle{a}, Traverse(top, []core.Handle{b}, typeNext, core.In, core.Now))
}
