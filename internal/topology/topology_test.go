package topology

import (
	"testing"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handleA core.Handle = 0
	handleB core.Handle = 1
	handleC core.Handle = 2

	typeNext core.EdgeType = 0
	typeLoop core.EdgeType = 1
	typeLink core.EdgeType = 2
)

func TestTopology_InsertEdgeMirrorsIncoming(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)

	out := top.ActiveOut(handleA, typeNext, core.Now)
	in := top.ActiveIn(handleB, typeNext, core.Now)

	assert.Equal(t, []core.Handle{handleB}, out)
	assert.Equal(t, []core.Handle{handleA}, in)
}

func TestTopology_Cycle(t *testing.T) {
	// S2: A->B, B->A, both LOOP. ActiveOut(A) should only ever report B.
	top := New()
	top.InsertEdge(handleA, handleB, typeLoop, 0, core.Forever)
	top.InsertEdge(handleB, handleA, typeLoop, 0, core.Forever)

	assert.Equal(t, []core.Handle{handleB}, top.ActiveOut(handleA, typeLoop, core.Now))
	assert.Equal(t, []core.Handle{handleA}, top.ActiveOut(handleB, typeLoop, core.Now))
}

func TestTopology_TemporalCloseAndReopen(t *testing.T) {
	// S3: at t=1000 insert A->B LINK; at t=2000 close it; at t=3000 insert A->C LINK.
	top := New()
	top.InsertEdge(handleA, handleB, typeLink, 1000, core.Forever)
	ok := top.CloseEdge(handleA, handleB, typeLink, 2000)
	require.True(t, ok)
	top.InsertEdge(handleA, handleC, typeLink, 3000, core.Forever)

	assert.Equal(t, []core.Handle{handleB}, top.ActiveOut(handleA, typeLink, 1500))
	assert.Empty(t, top.ActiveOut(handleA, typeLink, 2500))
	assert.Equal(t, []core.Handle{handleC}, top.ActiveOut(handleA, typeLink, 3500))
}

func TestTopology_CompactionDedup(t *testing.T) {
	// S4: insert A->B of one edge type identically three times; compact collapses to one.
	top := New()
	for i := 0; i < 3; i++ {
		top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)
	}
	require.Len(t, top.OutgoingOf(handleA), 3)

	top.Compact()

	require.Len(t, top.OutgoingOf(handleA), 1)
	assert.Equal(t, []core.Handle{handleB}, top.ActiveOut(handleA, typeNext, core.Now))
}

func TestTopology_CompactionRebuildsIncomingMirror(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 0, 100)
	top.InsertEdge(handleA, handleB, typeNext, 100, core.Forever)
	top.InsertEdge(handleC, handleB, typeNext, 0, core.Forever)

	top.Compact()

	incoming := top.IncomingOf(handleB)
	require.Len(t, incoming, 3)
	for _, rec := range incoming {
		assert.Contains(t, []core.Handle{handleA, handleC}, rec.Endpoint)
	}
}

func TestTopology_CompactionIsIdempotent(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)
	top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)
	top.Compact()
	first := top.OutgoingOf(handleA)
	top.Compact()
	second := top.OutgoingOf(handleA)
	assert.Equal(t, first, second)
}

func TestTopology_TombstoneAffectsOnlyNowQueries(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)
	top.TombstoneNode(handleB)

	assert.Empty(t, top.ActiveOut(handleA, typeNext, core.Now))
	assert.Equal(t, []core.Handle{handleB}, top.ActiveOut(handleA, typeNext, 50))

	top.ReviveNode(handleB)
	assert.Equal(t, []core.Handle{handleB}, top.ActiveOut(handleA, typeNext, core.Now))
}

func TestTopology_NodeState(t *testing.T) {
	top := New()
	assert.Equal(t, core.Live, top.NodeState(handleB))

	top.TombstoneNode(handleB)
	assert.Equal(t, core.Tombstoned, top.NodeState(handleB))

	top.ReviveNode(handleB)
	assert.Equal(t, core.Live, top.NodeState(handleB))
}

func TestTopology_RemoveEdgeClosesAtNow(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 0, core.Forever)

	ok := top.RemoveEdge(handleA, handleB, typeNext)
	require.True(t, ok)
	assert.Empty(t, top.ActiveOut(handleA, typeNext, core.Now))
}

func TestTopology_CloseEdgeClosesOldestActive(t *testing.T) {
	top := New()
	top.InsertEdge(handleA, handleB, typeNext, 100, core.Forever)
	top.InsertEdge(handleA, handleB, typeNext, 50, core.Forever)

	ok := top.CloseEdge(handleA, handleB, typeNext, 200)
	require.True(t, ok)

	records := top.OutgoingOf(handleA)
	closedCount := 0
	for _, r := range records {
		if r.ValidFrom == 50 {
			assert.Equal(t, int64(200), r.ValidTo)
			closedCount++
		}
		if r.ValidFrom == 100 {
			assert.Equal(t, core.Forever, r.ValidTo)
		}
	}
	assert.Equal(t, 1, closedCount)
}

func TestTopology_DenseWordsRoundTrip(t *testing.T) {
	top := New()
	top.TombstoneNode(0)
	top.TombstoneNode(5)
	top.TombstoneNode(63)
	top.TombstoneNode(64)

	words := ToDenseWords(top.TombstoneBitmap(), 65)
	require.Len(t, words, 2)

	restored := FromDenseWords(words)
	assert.True(t, restored.Contains(0))
	assert.True(t, restored.Contains(5))
	assert.True(t, restored.Contains(63))
	assert.True(t, restored.Contains(64))
	assert.False(t, restored.Contains(1))
}
