// Package worker consumes upload messages from the cache store's queue list
// and drives them through the ingestion pipeline. Delivery is at-most-once:
// a popped message that fails is recorded on its job, not requeued.
package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/pipeline"
)

// Message is the queue payload: file bytes travel base64-encoded.
type Message struct {
	FileName      string `json:"fileName"`
	TableName     string `json:"tableName,omitempty"`
	BatchSize     int    `json:"batchSize,omitempty"`
	ContentBase64 string `json:"contentBase64"`
}

type Worker struct {
	store        cache.Store
	pipe         *pipeline.Pipeline
	pollInterval time.Duration
	ttl          time.Duration
	log          *slog.Logger
}

func New(store cache.Store, pipe *pipeline.Pipeline, pollInterval, ttl time.Duration, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{store: store, pipe: pipe, pollInterval: pollInterval, ttl: ttl, log: log}
}

// Run polls the queue until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker.started", "poll_interval", w.pollInterval)
	for {
		processed, err := w.ProcessOnce(ctx)
		if err != nil {
			w.log.Warn("worker.message_failed", "error", err)
		}
		if !processed {
			select {
			case <-ctx.Done():
				w.log.Info("worker.stopped")
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
		} else if ctx.Err() != nil {
			w.log.Info("worker.stopped")
			return ctx.Err()
		}
	}
}

// ProcessOnce pops and handles at most one message. It reports whether a
// message was consumed; malformed messages are consumed, logged, and dropped.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	raw, ok, err := w.store.PopLeft(cache.QueueKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.log.Error("worker.bad_message", "error", err)
		return true, nil
	}
	content, err := base64.StdEncoding.DecodeString(msg.ContentBase64)
	if err != nil {
		w.log.Error("worker.bad_content", "file", msg.FileName, "error", err)
		return true, nil
	}

	result, err := w.pipe.Process(ctx, pipeline.UploadRequest{
		FileName:  msg.FileName,
		Content:   content,
		TableName: msg.TableName,
		BatchSize: msg.BatchSize,
	})
	if err != nil {
		return true, err
	}

	if err := w.store.Set(cache.MetaKey("last_job"), result.JobID, w.ttl); err != nil {
		w.log.Warn("worker.meta_set_failed", "error", err)
	}
	w.log.Info("worker.processed", "job_id", result.JobID, "file", msg.FileName, "rows", result.RowsProcessed)
	return true, nil
}

// Enqueue pushes an upload message onto the queue; used by producers and tests.
func Enqueue(store cache.Store, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return store.PushRight(cache.QueueKey, string(raw))
}
