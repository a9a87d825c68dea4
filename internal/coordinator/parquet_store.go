package coordinator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/parquet-go/parquet-go"
)

// EdgeLogRecord is one durable write against the columnar edge log. It
// mirrors the four fields a coordinator write needs to replay: the two
// endpoint labels, the edge type label, and the validity window.
type EdgeLogRecord struct {
	Source    string `parquet:"source"`
	Target    string `parquet:"target"`
	Type      string `parquet:"type"`
	ValidFrom int64  `parquet:"valid_from"`
	ValidTo   int64  `parquet:"valid_to"`
}

// ParquetEdgeStore is a reference durable store standing in for "the
// append-only columnar store" the core hydrates from. Each committed write
// lands in its own immutable segment file under dir, so a commit is either
// fully present on disk or not there at all — there is no in-place append
// that could leave a segment half-written.
type ParquetEdgeStore struct {
	dir string
	mu  sync.Mutex
	seq int
}

// NewParquetEdgeStore opens (creating if needed) a directory of edge-log
// segments.
func NewParquetEdgeStore(dir string) (*ParquetEdgeStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create edge log dir: %w", err)
	}
	existing, err := filepath.Glob(filepath.Join(dir, "edges-*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("scan edge log dir: %w", err)
	}
	return &ParquetEdgeStore{dir: dir, seq: len(existing)}, nil
}

// Append commits a single edge record as a new segment file. It returns
// only after the file is fsynced and closed, so a caller that sees a nil
// error may treat the write as durable.
func (s *ParquetEdgeStore) Append(rec EdgeLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, fmt.Sprintf("edges-%08d.parquet", s.seq))
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create segment %s: %w", path, err)
	}

	pw := parquet.NewGenericWriter[EdgeLogRecord](f, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write([]EdgeLogRecord{rec}); err != nil {
		_ = pw.Close()
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write segment %s: %w", path, err)
	}
	if err := pw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close segment writer %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync segment %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close segment %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("publish segment %s: %w", path, err)
	}

	s.seq++
	return nil
}

// Replay reads every committed segment in commit order, oldest first. It is
// what a full re-hydration reads from after a divergence.
func (s *ParquetEdgeStore) Replay() ([]EdgeLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := filepath.Glob(filepath.Join(s.dir, "edges-*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("scan edge log dir: %w", err)
	}
	sort.Strings(segments)

	var out []EdgeLogRecord
	for _, path := range segments {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open segment %s: %w", path, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat segment %s: %w", path, err)
		}
		pf, err := parquet.OpenFile(f, info.Size())
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open parquet segment %s: %w", path, err)
		}
		pr := parquet.NewGenericReader[EdgeLogRecord](pf)
		rows := make([]EdgeLogRecord, pr.NumRows())
		if _, err := pr.Read(rows); err != nil && !errors.Is(err, io.EOF) {
			_ = f.Close()
			return nil, fmt.Errorf("read segment %s: %w", path, err)
		}
		_ = f.Close()
		out = append(out, rows...)
	}
	return out, nil
}
