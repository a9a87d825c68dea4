package coordinator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/interner"
	"github.com/qgraph/qgraph/internal/logging"
	"github.com/qgraph/qgraph/internal/topology"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	log, err := NewParquetEdgeStore(t.TempDir())
	require.NoError(t, err)
	return New(interner.New(), interner.New(), topology.New(), log)
}

func TestCoordinator_InsertEdgeAppliesToCoreAfterDurableCommit(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.InsertEdge("A", "B", "NEXT", 0, core.Forever))

	a, ok := c.Nodes.Lookup("A")
	require.True(t, ok)
	b, ok := c.Nodes.Lookup("B")
	require.True(t, ok)
	nextType, ok := c.Types.Lookup("NEXT")
	require.True(t, ok)

	out := c.Topo.ActiveOut(a, core.EdgeType(nextType), core.Now)
	assert.Equal(t, []core.Handle{b}, out)
}

func TestCoordinator_InsertEdgeDurableFailureLeavesCoreUntouched(t *testing.T) {
	c := newTestCoordinator(t)

	// Remove the log directory out from under the store so the next
	// durable commit fails before the core is ever touched.
	require.NoError(t, os.RemoveAll(c.edgeLog.dir))
	require.NoError(t, os.WriteFile(c.edgeLog.dir, []byte("not a directory"), 0o644))
	t.Cleanup(func() { _ = os.Remove(c.edgeLog.dir) })

	err := c.InsertEdge("A", "B", "NEXT", 0, core.Forever)
	require.Error(t, err)

	_, ok := c.Nodes.Lookup("A")
	assert.False(t, ok, "durable failure must leave the core untouched")
}

func TestCoordinator_CloseEdgeCommitsThenClosesInCore(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.InsertEdge("A", "B", "NEXT", 0, core.Forever))

	closed, err := c.CloseEdge("A", "B", "NEXT", 100)
	require.NoError(t, err)
	assert.True(t, closed)

	a, _ := c.Nodes.Lookup("A")
	nextType, _ := c.Types.Lookup("NEXT")
	assert.Empty(t, c.Topo.ActiveOut(a, core.EdgeType(nextType), core.Now))
}

func TestCoordinator_TombstoneNodeHidesFromActiveQueries(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.InsertEdge("A", "B", "NEXT", 0, core.Forever))

	c.TombstoneNode("B")

	a, _ := c.Nodes.Lookup("A")
	nextType, _ := c.Types.Lookup("NEXT")
	assert.Empty(t, c.Topo.ActiveOut(a, core.EdgeType(nextType), core.Now))
}

func TestCoordinator_RehydrateReplaysDurableLogFromScratch(t *testing.T) {
	c := newTestCoordinator(t)
	require.NoError(t, c.InsertEdge("A", "B", "NEXT", 0, core.Forever))
	require.NoError(t, c.InsertEdge("B", "C", "NEXT", 0, core.Forever))
	c.markDivergent()
	require.True(t, c.Divergent())

	require.NoError(t, c.Rehydrate())
	assert.False(t, c.Divergent())

	a, _ := c.Nodes.Lookup("A")
	nextType, _ := c.Types.Lookup("NEXT")
	b, _ := c.Nodes.Lookup("B")
	assert.Equal(t, []core.Handle{b}, c.Topo.ActiveOut(a, core.EdgeType(nextType), core.Now))
}

func TestParquetEdgeStore_AppendAndReplayRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "edges")
	store, err := NewParquetEdgeStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(EdgeLogRecord{Source: "A", Target: "B", Type: "NEXT", ValidFrom: 0, ValidTo: core.Forever}))
	require.NoError(t, store.Append(EdgeLogRecord{Source: "B", Target: "C", Type: "NEXT", ValidFrom: 0, ValidTo: core.Forever}))

	records, err := store.Replay()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Source)
	assert.Equal(t, "B", records[1].Source)
}

func TestCoordinator_WithLoggerTagsComponent(t *testing.T) {
	log, err := NewParquetEdgeStore(t.TempDir())
	require.NoError(t, err)
	var buf bytes.Buffer
	root, err := logging.NewLogger(logging.Config{Format: "json", Level: "info", Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	c := New(interner.New(), interner.New(), topology.New(), log, WithLogger(root))
	require.NoError(t, c.InsertEdge("A", "B", "NEXT", 0, core.Forever))
	assert.NotNil(t, c.log)

	require.NoError(t, c.Rehydrate())
	assert.Contains(t, buf.String(), `"logger":"coordinator"`)
}

func TestDuckDBPropertyStore_SeedAndQuery(t *testing.T) {
	ctx := context.Background()
	store, err := NewDuckDBPropertyStore(ctx)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Seed(ctx, "A", `{"role":"origin"}`))
	require.NoError(t, store.Seed(ctx, "B", `{"role":"mid"}`))

	rows, err := store.Query(ctx, []string{"A", "B"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
