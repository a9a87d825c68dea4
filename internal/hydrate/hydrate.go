// Package hydrate implements the bulk ingestion path: streaming decode of
// an Arrow IPC byte stream into a topology, one record batch at a time.
package hydrate

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/interner"
	"github.com/qgraph/qgraph/internal/metrics"
	"github.com/qgraph/qgraph/internal/topology"
)

const (
	colSource    = "source"
	colTarget    = "target"
	colType      = "type"
	colValidFrom = "valid_from"
	colValidTo   = "valid_to"
)

// Hydrator streams an Arrow IPC record batch source into a topology,
// interning source/target/type labels as it goes. Failure on one batch
// leaves the topology exactly as it was before that batch; already-applied
// earlier batches remain in place, matching the all-or-nothing-per-batch
// contract.
type Hydrator struct {
	Nodes *interner.Interner
	Types *interner.Interner
	Topo  *topology.Topology
}

// New returns a Hydrator writing into the given interners and topology.
func New(nodes, types *interner.Interner, topo *topology.Topology) *Hydrator {
	return &Hydrator{Nodes: nodes, Types: types, Topo: topo}
}

// LoadStream reads r as an Arrow IPC stream and applies every batch. It
// never materializes the full decoded form: batches are consumed one at a
// time as the underlying reader yields them.
func (h *Hydrator) LoadStream(r io.Reader) error {
	start := time.Now()
	defer func() { metrics.HydrationStreamDurationSeconds.Observe(time.Since(start).Seconds()) }()

	reader, err := safeIPCNewReader(r)
	if err != nil {
		metrics.HydrationBatchesTotal.WithLabelValues("error").Inc()
		return core.NewHydrationError(core.HydrationDecode, "open ipc stream", err)
	}
	defer reader.Release()

	for reader.Next() {
		batch := reader.Record()
		if err := h.loadBatch(batch); err != nil {
			metrics.HydrationBatchesTotal.WithLabelValues("error").Inc()
			return err
		}
		metrics.HydrationBatchesTotal.WithLabelValues("ok").Inc()
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		metrics.HydrationBatchesTotal.WithLabelValues("error").Inc()
		return core.NewHydrationError(core.HydrationDecode, "stream read", err)
	}
	return nil
}

// safeIPCNewReader wraps ipc.NewReader with panic recovery: a malformed
// stream can make the arrow library panic rather than return an error.
func safeIPCNewReader(r io.Reader, opts ...ipc.Option) (reader *ipc.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in ipc.NewReader: %v", p)
		}
	}()
	return ipc.NewReader(r, opts...)
}

func (h *Hydrator) loadBatch(batch arrow.Record) error {
	n := int(batch.NumRows())
	if n == 0 {
		return nil
	}

	cols, err := resolveColumns(batch)
	if err != nil {
		return err
	}

	sourceCol, ok := cols.source.(*array.String)
	if !ok {
		return core.NewHydrationError(core.HydrationSchema, "source column is not utf8", nil)
	}
	targetCol, ok := cols.target.(*array.String)
	if !ok {
		return core.NewHydrationError(core.HydrationSchema, "target column is not utf8", nil)
	}
	typeCol, ok := cols.typ.(*array.String)
	if !ok {
		return core.NewHydrationError(core.HydrationSchema, "type column is not utf8", nil)
	}

	validFrom, err := timestampExtractor(cols.validFrom)
	if err != nil {
		return err
	}
	validTo, err := nullableTimestampExtractor(cols.validTo)
	if err != nil {
		return err
	}

	// Decode the whole batch into a staging slice first so a mid-batch
	// decode failure leaves the topology untouched (all-or-nothing).
	type staged struct {
		src, dst core.Handle
		etype    core.EdgeType
		vf, vt   int64
	}
	rows := make([]staged, n)
	for i := 0; i < n; i++ {
		vf, err := validFrom(i)
		if err != nil {
			return core.NewHydrationError(core.HydrationDecode, fmt.Sprintf("row %d valid_from", i), err)
		}
		vt, err := validTo(i)
		if err != nil {
			return core.NewHydrationError(core.HydrationDecode, fmt.Sprintf("row %d valid_to", i), err)
		}
		rows[i] = staged{
			src:   h.Nodes.Intern(sourceCol.Value(i)),
			dst:   h.Nodes.Intern(targetCol.Value(i)),
			etype: core.EdgeType(h.Types.Intern(typeCol.Value(i))),
			vf:    vf,
			vt:    vt,
		}
	}

	for _, row := range rows {
		h.Topo.InsertEdge(row.src, row.dst, row.etype, row.vf, row.vt)
	}
	metrics.HydrationRowsTotal.Add(float64(n))
	return nil
}

type batchColumns struct {
	source, target, typ, validFrom, validTo arrow.Array
}

func resolveColumns(batch arrow.Record) (batchColumns, error) {
	schema := batch.Schema()
	var cols batchColumns
	required := map[string]*arrow.Array{
		colSource:    &cols.source,
		colTarget:    &cols.target,
		colType:      &cols.typ,
		colValidFrom: &cols.validFrom,
	}
	for name, dest := range required {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return cols, core.NewHydrationError(core.HydrationSchema, fmt.Sprintf("missing required column %q", name), nil)
		}
		*dest = batch.Column(idx[0])
	}
	if idx := schema.FieldIndices(colValidTo); len(idx) > 0 {
		cols.validTo = batch.Column(idx[0])
	}
	return cols, nil
}

// timestampExtractor returns a function reading row i of a non-null
// int64-or-float64 column as microseconds, rounding float64 values.
func timestampExtractor(col arrow.Array) (func(int) (int64, error), error) {
	switch c := col.(type) {
	case *array.Int64:
		return func(i int) (int64, error) { return c.Value(i), nil }, nil
	case *array.Float64:
		return func(i int) (int64, error) { return int64(math.Round(c.Value(i))), nil }, nil
	default:
		return nil, core.NewHydrationError(core.HydrationSchema, "valid_from must be int64 or float64", nil)
	}
}

// nullableTimestampExtractor is timestampExtractor plus null handling: a
// null valid_to means the edge is active (core.Forever). A missing
// valid_to column (nil) is treated the same way for every row.
func nullableTimestampExtractor(col arrow.Array) (func(int) (int64, error), error) {
	if col == nil {
		return func(int) (int64, error) { return core.Forever, nil }, nil
	}
	switch c := col.(type) {
	case *array.Int64:
		return func(i int) (int64, error) {
			if c.IsNull(i) {
				return core.Forever, nil
			}
			return c.Value(i), nil
		}, nil
	case *array.Float64:
		return func(i int) (int64, error) {
			if c.IsNull(i) {
				return core.Forever, nil
			}
			return int64(math.Round(c.Value(i))), nil
		}, nil
	default:
		return nil, core.NewHydrationError(core.HydrationSchema, "valid_to must be int64 or float64", nil)
	}
}
