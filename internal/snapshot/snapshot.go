// Package snapshot implements the binary codec for the topology index:
// a compact, checksum-guarded image enabling warm start without
// re-hydration from the source of truth.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/interner"
	"github.com/qgraph/qgraph/internal/metrics"
	"github.com/qgraph/qgraph/internal/topology"
)

const (
	magic   = "QGPH"
	version = uint16(1)
)

// State is the full set of structures a snapshot captures.
type State struct {
	Nodes *interner.Interner
	Types *interner.Interner
	Topo  *topology.Topology
}

// Save atomically writes state to path: the image is built in a temp file
// in the same directory, fsynced, then renamed over path. On any failure
// the temp file is removed and path is left untouched.
func Save(state *State, path string) error {
	start := time.Now()
	defer func() { metrics.SnapshotSaveDurationSeconds.Observe(time.Since(start).Seconds()) }()

	body, err := encodeBody(state)
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "encode", err)
	}

	sum := xxhash.Sum64(body.Bytes())

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".qgraph-snapshot-*.tmp")
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(body.Bytes()); err != nil {
		tmp.Close()
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "write body", err)
	}
	if err := binary.Write(tmp, binary.LittleEndian, sum); err != nil {
		tmp.Close()
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "write checksum", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "fsync", err)
	}
	if err := tmp.Close(); err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "close", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("save", "error").Inc()
		return core.NewSnapshotError(core.SnapshotIO, "rename", err)
	}

	metrics.SnapshotOperationsTotal.WithLabelValues("save", "ok").Inc()
	metrics.SnapshotSizeBytes.Observe(float64(body.Len() + 8))
	return nil
}

// Load reads and validates path, returning a freshly constructed State. It
// verifies checksum, magic, and version before trusting any offset. A
// failure to read the file surfaces as core.ErrSnapshot{IO}, an unsupported
// version as core.ErrSnapshot{Version}, and any other mismatch or
// truncation as core.ErrSnapshot{Corrupt}.
func Load(path string) (*State, error) {
	start := time.Now()
	defer func() { metrics.SnapshotLoadDurationSeconds.Observe(time.Since(start).Seconds()) }()

	raw, err := os.ReadFile(path)
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, core.NewSnapshotError(core.SnapshotIO, "read file", err)
	}
	if len(raw) < 8 {
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "file too short for checksum", nil)
	}

	body := raw[:len(raw)-8]
	wantSum := binary.LittleEndian.Uint64(raw[len(raw)-8:])
	gotSum := xxhash.Sum64(body)
	if wantSum != gotSum {
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "checksum mismatch", nil)
	}

	state, err := decodeBody(body)
	if err != nil {
		metrics.SnapshotOperationsTotal.WithLabelValues("load", "error").Inc()
		return nil, err
	}

	metrics.SnapshotOperationsTotal.WithLabelValues("load", "ok").Inc()
	return state, nil
}

func encodeBody(state *State) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}

	if _, err := buf.WriteString(magic); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, version); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(0)); err != nil { // flags
		return nil, err
	}

	if err := writeEntries(buf, state.Nodes.Entries()); err != nil {
		return nil, err
	}
	if err := writeEntries(buf, state.Types.Entries()); err != nil {
		return nil, err
	}

	nodeCount := state.Topo.NodeCount()
	if err := binary.Write(buf, binary.LittleEndian, uint32(nodeCount)); err != nil {
		return nil, err
	}

	if err := writeAdjacency(buf, nodeCount, state.Topo.OutgoingOf); err != nil {
		return nil, err
	}
	if err := writeAdjacency(buf, nodeCount, state.Topo.IncomingOf); err != nil {
		return nil, err
	}

	words := topology.ToDenseWords(state.Topo.TombstoneBitmap(), nodeCount)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(words))); err != nil {
		return nil, err
	}
	for _, w := range words {
		if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
			return nil, err
		}
	}

	return buf, nil
}

func writeEntries(buf *bytes.Buffer, entries []string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for _, s := range entries {
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := buf.WriteString(s); err != nil {
			return err
		}
	}
	return nil
}

func writeAdjacency(buf *bytes.Buffer, nodeCount int, listOf func(core.Handle) []core.EdgeRecord) error {
	for h := 0; h < nodeCount; h++ {
		records := listOf(core.Handle(h))
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(records))); err != nil {
			return err
		}
		for _, r := range records {
			if err := binary.Write(buf, binary.LittleEndian, uint32(r.Endpoint)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, uint32(r.Type)); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, r.ValidFrom); err != nil {
				return err
			}
			if err := binary.Write(buf, binary.LittleEndian, r.ValidTo); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeBody(body []byte) (*State, error) {
	r := bytes.NewReader(body)

	magicBuf := make([]byte, 4)
	if _, err := r.Read(magicBuf); err != nil || string(magicBuf) != magic {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "bad magic", nil)
	}

	var gotVersion uint16
	if err := binary.Read(r, binary.LittleEndian, &gotVersion); err != nil {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated version", err)
	}
	if gotVersion != version {
		return nil, core.NewSnapshotError(core.SnapshotVersion, fmt.Sprintf("unsupported version %d", gotVersion), nil)
	}

	var flags uint16
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated flags", err)
	}

	nodeEntries, err := readEntries(r)
	if err != nil {
		return nil, err
	}
	typeEntries, err := readEntries(r)
	if err != nil {
		return nil, err
	}

	var nodeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated node count", err)
	}

	outgoing, err := readAdjacency(r, int(nodeCount))
	if err != nil {
		return nil, err
	}
	incoming, err := readAdjacency(r, int(nodeCount))
	if err != nil {
		return nil, err
	}

	var wordCount uint32
	if err := binary.Read(r, binary.LittleEndian, &wordCount); err != nil {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated tombstone word count", err)
	}
	words := make([]uint64, wordCount)
	for i := range words {
		if err := binary.Read(r, binary.LittleEndian, &words[i]); err != nil {
			return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated tombstone words", err)
		}
	}

	top := topology.New()
	top.SetOutgoing(outgoing)
	top.SetIncoming(incoming)
	top.SetTombstones(topology.FromDenseWords(words))

	return &State{
		Nodes: interner.LoadEntries(nodeEntries),
		Types: interner.LoadEntries(typeEntries),
		Topo:  top,
	}, nil
}

func readEntries(r *bytes.Reader) ([]string, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated entry count", err)
	}
	entries := make([]string, count)
	for i := range entries {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated entry length", err)
		}
		b := make([]byte, length)
		if _, err := r.Read(b); err != nil {
			return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated entry bytes", err)
		}
		entries[i] = string(b)
	}
	return entries, nil
}

func readAdjacency(r *bytes.Reader, nodeCount int) ([][]core.EdgeRecord, error) {
	lists := make([][]core.EdgeRecord, nodeCount)
	for h := 0; h < nodeCount; h++ {
		var recCount uint32
		if err := binary.Read(r, binary.LittleEndian, &recCount); err != nil {
			return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated record count", err)
		}
		records := make([]core.EdgeRecord, recCount)
		for i := range records {
			var dst, etype uint32
			var vf, vt int64
			if err := binary.Read(r, binary.LittleEndian, &dst); err != nil {
				return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated record dst", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &etype); err != nil {
				return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated record etype", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &vf); err != nil {
				return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated record vf", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &vt); err != nil {
				return nil, core.NewSnapshotError(core.SnapshotCorrupt, "truncated record vt", err)
			}
			records[i] = core.EdgeRecord{Endpoint: core.Handle(dst), Type: core.EdgeType(etype), ValidFrom: vf, ValidTo: vt}
		}
		lists[h] = records
	}
	return lists, nil
}
