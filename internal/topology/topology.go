// Package topology implements the mutable compressed-adjacency structure:
// per-handle outgoing/incoming edge lists, a tombstone set, and compaction.
package topology

import (
	"sort"
	"sync"
	"time"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/metrics"
)

// Topology holds the per-node adjacency lists and tombstone set. It is safe
// for concurrent use: mutating methods take an exclusive lock, read methods
// a shared one, matching the single-writer-many-readers contract the
// coordinator is responsible for upholding.
type Topology struct {
	mu         sync.RWMutex
	outgoing   [][]core.EdgeRecord
	incoming   [][]core.EdgeRecord
	tombstones *roaring.Bitmap
}

// New returns an empty topology.
func New() *Topology {
	return &Topology{
		tombstones: roaring.New(),
	}
}

// ensureCapacity grows outgoing/incoming so index h is addressable. Callers
// must hold t.mu for writing.
func (t *Topology) ensureCapacity(h core.Handle) {
	need := int(h) + 1
	if need <= len(t.outgoing) {
		return
	}
	grown := make([][]core.EdgeRecord, need)
	copy(grown, t.outgoing)
	t.outgoing = grown

	grownIn := make([][]core.EdgeRecord, need)
	copy(grownIn, t.incoming)
	t.incoming = grownIn
}

// InsertEdge appends an edge record to both adjacency lists. Duplicates are
// tolerated until Compact removes them.
func (t *Topology) InsertEdge(src, dst core.Handle, etype core.EdgeType, vf, vt int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	hi := src
	if dst > hi {
		hi = dst
	}
	t.ensureCapacity(hi)

	t.outgoing[src] = append(t.outgoing[src], core.EdgeRecord{Endpoint: dst, Type: etype, ValidFrom: vf, ValidTo: vt})
	t.incoming[dst] = append(t.incoming[dst], core.EdgeRecord{Endpoint: src, Type: etype, ValidFrom: vf, ValidTo: vt})
	metrics.TopologyEdgesInsertedTotal.Inc()
}

// CloseEdge finds the active record (vt == core.Forever) matching
// (src,dst,etype) in both lists and rewrites its ValidTo to vt. If more
// than one active record matches, the oldest (lowest ValidFrom) is closed.
func (t *Topology) CloseEdge(src, dst core.Handle, etype core.EdgeType, vt int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	outClosed := false
	if int(src) < len(t.outgoing) {
		outClosed = closeOldestActive(t.outgoing[src], dst, etype, vt)
	}
	inClosed := false
	if int(dst) < len(t.incoming) {
		inClosed = closeOldestActive(t.incoming[dst], src, etype, vt)
	}

	closed := outClosed || inClosed
	if closed {
		metrics.TopologyEdgesClosedTotal.Inc()
	}
	return closed
}

// RemoveEdge closes the currently active edge (src,dst,etype) at the current
// wall-clock time in microseconds since the Unix epoch, the convenience
// recovered from the original implementation's remove_edge.
func (t *Topology) RemoveEdge(src, dst core.Handle, etype core.EdgeType) bool {
	return t.CloseEdge(src, dst, etype, time.Now().UnixMicro())
}

func closeOldestActive(records []core.EdgeRecord, endpoint core.Handle, etype core.EdgeType, vt int64) bool {
	bestIdx := -1
	for i := range records {
		r := records[i]
		if r.Endpoint != endpoint || r.Type != etype || r.ValidTo != core.Forever {
			continue
		}
		if bestIdx == -1 || r.ValidFrom < records[bestIdx].ValidFrom {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return false
	}
	records[bestIdx].ValidTo = vt
	return true
}

// TombstoneNode marks h logically absent from present-time queries.
func (t *Topology) TombstoneNode(h core.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tombstones.Add(uint32(h))
}

// ReviveNode clears h's tombstone bit.
func (t *Topology) ReviveNode(h core.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tombstones.Remove(uint32(h))
}

// NodeState reports h's current tombstone state.
func (t *Topology) NodeState(h core.Handle) core.TombstoneState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tombstones.Contains(uint32(h)) {
		return core.Tombstoned
	}
	return core.Live
}

// ActiveOut returns the distinct endpoint handles reachable from src via an
// active edge of type etype as of at. When at == core.Now, tombstoned
// endpoints are filtered out; historical queries ignore tombstone state.
func (t *Topology) ActiveOut(src core.Handle, etype core.EdgeType, at int64) []core.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeEndpoints(t.outgoing, src, etype, at)
}

// ActiveIn is the mirror of ActiveOut over the incoming adjacency list.
func (t *Topology) ActiveIn(dst core.Handle, etype core.EdgeType, at int64) []core.Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeEndpoints(t.incoming, dst, etype, at)
}

func (t *Topology) activeEndpoints(lists [][]core.EdgeRecord, h core.Handle, etype core.EdgeType, at int64) []core.Handle {
	if int(h) >= len(lists) {
		return nil
	}
	seen := make(map[core.Handle]struct{})
	var out []core.Handle
	now := at == core.Now
	for _, r := range lists[h] {
		if r.Type != etype || !r.Active(at) {
			continue
		}
		if now && t.tombstones.Contains(uint32(r.Endpoint)) {
			continue
		}
		if _, dup := seen[r.Endpoint]; dup {
			continue
		}
		seen[r.Endpoint] = struct{}{}
		out = append(out, r.Endpoint)
	}
	return out
}

// Compact stable-sorts each adjacency list by (etype, endpoint, vf, vt),
// removes records identical across all four fields, and rebuilds the
// incoming index from the deduped outgoing index to restore the mirror
// invariant. Idempotent.
func (t *Topology) Compact() {
	start := time.Now()
	defer func() { metrics.TopologyCompactionDurationSeconds.Observe(time.Since(start).Seconds()) }()

	t.mu.Lock()
	defer t.mu.Unlock()

	for h := range t.outgoing {
		t.outgoing[h] = compactList(t.outgoing[h])
	}

	rebuilt := make([][]core.EdgeRecord, len(t.outgoing))
	for src, records := range t.outgoing {
		for _, r := range records {
			dst := r.Endpoint
			if int(dst) >= len(rebuilt) {
				grown := make([][]core.EdgeRecord, int(dst)+1)
				copy(grown, rebuilt)
				rebuilt = grown
			}
			rebuilt[dst] = append(rebuilt[dst], core.EdgeRecord{
				Endpoint:  core.Handle(src),
				Type:      r.Type,
				ValidFrom: r.ValidFrom,
				ValidTo:   r.ValidTo,
			})
		}
	}
	for dst := range rebuilt {
		rebuilt[dst] = compactList(rebuilt[dst])
	}
	if len(rebuilt) > len(t.outgoing) {
		grown := make([][]core.EdgeRecord, len(rebuilt))
		copy(grown, t.outgoing)
		t.outgoing = grown
	}
	t.incoming = rebuilt
	metrics.TopologyCompactionsTotal.Inc()
}

func compactList(records []core.EdgeRecord) []core.EdgeRecord {
	if len(records) < 2 {
		return records
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Less(records[j]) })
	out := records[:1]
	for _, r := range records[1:] {
		if r.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NodeCount returns the current addressable handle range (not the number
// of live nodes; handles are never reclaimed).
func (t *Topology) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.outgoing)
}

// OutgoingOf returns a copy of h's outgoing adjacency list, used by the
// snapshot codec.
func (t *Topology) OutgoingOf(h core.Handle) []core.EdgeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(h) >= len(t.outgoing) {
		return nil
	}
	out := make([]core.EdgeRecord, len(t.outgoing[h]))
	copy(out, t.outgoing[h])
	return out
}

// IncomingOf is the mirror of OutgoingOf.
func (t *Topology) IncomingOf(h core.Handle) []core.EdgeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(h) >= len(t.incoming) {
		return nil
	}
	out := make([]core.EdgeRecord, len(t.incoming[h]))
	copy(out, t.incoming[h])
	return out
}

// TombstoneBitmap returns a copy of the roaring bitmap backing the
// tombstone set. Exposed for the snapshot codec; changes to the copy do not
// affect the topology.
func (t *Topology) TombstoneBitmap() *roaring.Bitmap {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tombstones.Clone()
}

// SetOutgoing and SetIncoming replace the adjacency lists wholesale. Used
// only by the snapshot codec when rebuilding a Topology from a loaded
// image; callers must supply lists whose mirror invariant already holds.
func (t *Topology) SetOutgoing(outgoing [][]core.EdgeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outgoing = outgoing
}

func (t *Topology) SetIncoming(incoming [][]core.EdgeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.incoming = incoming
}

func (t *Topology) SetTombstones(bm *roaring.Bitmap) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tombstones = bm
}

// ToDenseWords converts a roaring bitmap into the dense u64-word layout the
// snapshot wire format requires, sized to cover exactly n bits.
func ToDenseWords(bm *roaring.Bitmap, n int) []uint64 {
	nwords := (n + 63) / 64
	words := make([]uint64, nwords)
	it := bm.Iterator()
	for it.HasNext() {
		v := it.Next()
		if int(v) >= n {
			continue
		}
		words[v/64] |= uint64(1) << (v % 64)
	}
	return words
}

// FromDenseWords reconstructs a roaring bitmap from the snapshot's dense
// u64-word layout.
func FromDenseWords(words []uint64) *roaring.Bitmap {
	bm := roaring.New()
	for wi, w := range words {
		if w == 0 {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			if w&(uint64(1)<<bit) != 0 {
				bm.Add(uint32(wi*64 + bit))
			}
		}
	}
	return bm
}
