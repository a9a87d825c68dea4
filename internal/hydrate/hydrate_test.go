package hydrate

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/interner"
	"github.com/qgraph/qgraph/internal/topology"
)

func buildIPCStream(t *testing.T) []byte {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: colSource, Type: arrow.BinaryTypes.String},
		{Name: colTarget, Type: arrow.BinaryTypes.String},
		{Name: colType, Type: arrow.BinaryTypes.String},
		{Name: colValidFrom, Type: arrow.PrimitiveTypes.Int64},
		{Name: colValidTo, Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)

	sourceB := array.NewStringBuilder(mem)
	targetB := array.NewStringBuilder(mem)
	typeB := array.NewStringBuilder(mem)
	vfB := array.NewInt64Builder(mem)
	vtB := array.NewInt64Builder(mem)

	sourceB.AppendValues([]string{"A", "A"}, nil)
	targetB.AppendValues([]string{"B", "C"}, nil)
	typeB.AppendValues([]string{"NEXT", "NEXT"}, nil)
	vfB.AppendValues([]int64{0, 0}, nil)
	vtB.AppendValues([]int64{0, 0}, []bool{true, false}) // row0 closed at 0 (invalid but exercises non-null path), row1 active (null)

	sourceArr := sourceB.NewArray()
	targetArr := targetB.NewArray()
	typeArr := typeB.NewArray()
	vfArr := vfB.NewArray()
	vtArr := vtB.NewArray()
	defer sourceArr.Release()
	defer targetArr.Release()
	defer typeArr.Release()
	defer vfArr.Release()
	defer vtArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{sourceArr, targetArr, typeArr, vfArr, vtArr}, 2)
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestHydrator_LoadStream(t *testing.T) {
	stream := buildIPCStream(t)

	nodes := interner.New()
	types := interner.New()
	top := topology.New()
	h := New(nodes, types, top)

	require.NoError(t, h.LoadStream(bytes.NewReader(stream)))

	a, ok := nodes.Lookup("A")
	require.True(t, ok)
	nextType, ok := types.Lookup("NEXT")
	require.True(t, ok)

	out := top.ActiveOut(a, core.EdgeType(nextType), core.Now)
	// row0 (A->B) was closed at vt=0, so it is never active for any at>=0;
	// row1 (A->C) has a null valid_to, meaning active forever.
	cHandle, _ := nodes.Lookup("C")
	assert.Equal(t, []core.Handle{cHandle}, out)
}

func TestHydrator_MissingColumnIsSchemaError(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: colSource, Type: arrow.BinaryTypes.String},
		{Name: colTarget, Type: arrow.BinaryTypes.String},
	}, nil)
	sourceB := array.NewStringBuilder(mem)
	targetB := array.NewStringBuilder(mem)
	sourceB.Append("A")
	targetB.Append("B")
	sourceArr := sourceB.NewArray()
	targetArr := targetB.NewArray()
	defer sourceArr.Release()
	defer targetArr.Release()

	rec := array.NewRecord(schema, []arrow.Array{sourceArr, targetArr}, 1)
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	h := New(interner.New(), interner.New(), topology.New())
	err := h.LoadStream(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	var hydErr *core.ErrHydration
	require.ErrorAs(t, err, &hydErr)
	assert.Equal(t, core.HydrationSchema, hydErr.Kind)
}

func TestHydrator_MalformedStreamIsDecodeError(t *testing.T) {
	h := New(interner.New(), interner.New(), topology.New())
	err := h.LoadStream(bytes.NewReader([]byte("not an arrow stream")))
	require.Error(t, err)
	var hydErr *core.ErrHydration
	require.ErrorAs(t, err, &hydErr)
}
