// Package rows slices row sequences into fixed-size chunks for cache storage
// and reassembles them on read, preserving row order.
package rows

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
)

// Row is one normalized record: column name → value.
type Row = map[string]any

// Metadata describes a cached chunk set. Its absence means "no cached data"
// even if stray chunk keys exist.
type Metadata struct {
	TotalRows int `json:"totalRows"`
	Chunks    int `json:"chunks"`
}

type Batcher struct {
	store     cache.Store
	chunkSize int
	ttl       time.Duration
	log       *slog.Logger
}

func NewBatcher(store cache.Store, chunkSize int, ttl time.Duration, log *slog.Logger) *Batcher {
	if log == nil {
		log = slog.Default()
	}
	if chunkSize < 1 {
		chunkSize = 100
	}
	return &Batcher{store: store, chunkSize: chunkSize, ttl: ttl, log: log}
}

// Cache splits rows into chunks under data:{jobID}:chunk:{i} and writes the
// metadata record last, so a reader never sees metadata pointing at chunks
// that were not yet written.
func (b *Batcher) Cache(jobID string, rows []Row) error {
	chunks := (len(rows) + b.chunkSize - 1) / b.chunkSize
	for i := 0; i < chunks; i++ {
		start := i * b.chunkSize
		end := start + b.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		raw, err := json.Marshal(rows[start:end])
		if err != nil {
			return common.WrapError(err, "marshal chunk")
		}
		if err := b.store.Set(cache.ChunkKey(jobID, i), string(raw), b.ttl); err != nil {
			return err
		}
	}

	meta, err := json.Marshal(Metadata{TotalRows: len(rows), Chunks: chunks})
	if err != nil {
		return common.WrapError(err, "marshal chunk metadata")
	}
	if err := b.store.Set(cache.MetadataKey(jobID), string(meta), b.ttl); err != nil {
		return err
	}
	b.log.Info("rows.cached", "job_id", jobID, "rows", len(rows), "chunks", chunks)
	return nil
}

// Retrieve reads the metadata record and concatenates chunks 0..chunks-1 in
// index order. No metadata means no cached data and yields an empty sequence,
// not an error. A chunk missing mid-sequence (partial TTL expiry) stops the
// read and returns the rows gathered so far.
func (b *Batcher) Retrieve(jobID string) ([]Row, error) {
	raw, ok, err := b.store.Get(cache.MetadataKey(jobID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Row{}, nil
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, common.WrapError(err, "unmarshal chunk metadata")
	}

	out := make([]Row, 0, meta.TotalRows)
	for i := 0; i < meta.Chunks; i++ {
		rawChunk, ok, err := b.store.Get(cache.ChunkKey(jobID, i))
		if err != nil {
			return nil, err
		}
		if !ok {
			b.log.Warn("rows.chunk_missing", "job_id", jobID, "chunk", i, "of", meta.Chunks)
			break
		}
		var chunk []Row
		if err := json.Unmarshal([]byte(rawChunk), &chunk); err != nil {
			return nil, common.WrapError(err, "unmarshal chunk")
		}
		out = append(out, chunk...)
	}
	return out, nil
}
