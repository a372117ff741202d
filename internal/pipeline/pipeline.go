// Package pipeline orchestrates one file's journey: detect format, call the
// extractor, normalize elements into rows, persist them to the relational
// store, cache them, and drive the job record through its state machine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docingest/constants"
	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/extract"
	"github.com/joseph-ayodele/docingest/internal/jobs"
	"github.com/joseph-ayodele/docingest/internal/rows"
	"github.com/joseph-ayodele/docingest/internal/store"
)

// Extractor is the pipeline's view of the external parsing service.
type Extractor interface {
	Partition(ctx context.Context, fileName string, content []byte) ([]extract.Element, error)
}

// UploadRequest is one unit of work: raw bytes plus a declared filename.
type UploadRequest struct {
	FileName  string
	Content   []byte
	TableName string // optional; derived from the filename when empty
	BatchSize int    // optional; default 100
	JobID     string // optional; generated when empty
}

// UploadResult is the single-file response shape callers depend on.
type UploadResult struct {
	Success       bool                 `json:"success"`
	JobID         string               `json:"jobId"`
	TableName     string               `json:"tableName"`
	RowsProcessed int                  `json:"rowsProcessed"`
	Format        constants.FileFormat `json:"format"`
	Message       string               `json:"message"`
}

type Pipeline struct {
	registry  jobs.Registry
	batcher   *rows.Batcher
	extractor Extractor
	tables    store.TableStore
	log       *slog.Logger
}

func New(registry jobs.Registry, batcher *rows.Batcher, extractor Extractor, tables store.TableStore, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{registry: registry, batcher: batcher, extractor: extractor, tables: tables, log: log}
}

// Process runs the full pipeline for one file. The first fatal error halts
// the pipeline and writes a failed job; the returned error carries the same
// message. There is no mid-pipeline cancellation: once started, the work runs
// to a terminal job state.
func (p *Pipeline) Process(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.FileName == "" {
		return nil, common.ValidationError("fileName is required")
	}
	if len(req.Content) == 0 {
		return nil, common.ValidationError("file content is empty")
	}
	if req.BatchSize < 1 {
		req.BatchSize = 100
	}
	if req.JobID == "" {
		req.JobID = uuid.New().String()
	}

	format := constants.DetectFormat(req.FileName)
	tableName := req.TableName
	if tableName == "" {
		tableName = SanitizeTableName(req.FileName)
	}

	job := jobs.NewJob(req.JobID, req.FileName, tableName)
	if err := p.registry.Create(job); err != nil {
		return nil, err
	}
	if _, err := p.registry.UpdateStatus(req.JobID, constants.JobStatusProcessing, jobs.Update{}); err != nil {
		return nil, err
	}
	p.log.Info("pipeline.started", "job_id", req.JobID, "file", req.FileName, "format", format, "table", tableName)

	elements, err := p.extractor.Partition(ctx, req.FileName, req.Content)
	if err != nil {
		return nil, p.fail(req.JobID, 0, 0, err)
	}
	data := extract.NormalizeRows(elements)

	if err := p.tables.EnsureTable(ctx, tableName, extract.Columns); err != nil {
		return nil, p.fail(req.JobID, len(data), 0, err)
	}
	inserted, err := p.tables.InsertRows(ctx, tableName, extract.Columns, data, req.BatchSize)
	if err != nil {
		// Committed batches stay committed; say so in the job record.
		wrapped := fmt.Errorf("persistence failed after %d of %d rows; rows may be partially written: %w", inserted, len(data), err)
		return nil, p.fail(req.JobID, len(data), inserted, wrapped)
	}

	if err := p.batcher.Cache(req.JobID, data); err != nil {
		return nil, p.fail(req.JobID, len(data), inserted, err)
	}

	n := len(data)
	if _, err := p.registry.UpdateStatus(req.JobID, constants.JobStatusCompleted, jobs.Update{
		RowCount:      &n,
		ProcessedRows: &n,
	}); err != nil {
		return nil, err
	}

	p.log.Info("pipeline.completed", "job_id", req.JobID, "rows", n, "table", tableName)
	return &UploadResult{
		Success:       true,
		JobID:         req.JobID,
		TableName:     tableName,
		RowsProcessed: n,
		Format:        format,
		Message:       fmt.Sprintf("imported %d rows into %s", n, tableName),
	}, nil
}

// fail moves the job to its terminal failed state, keeping the original
// error as the return value. rowCount/processed record how far we got.
func (p *Pipeline) fail(jobID string, rowCount, processed int, cause error) error {
	msg := cause.Error()
	if _, err := p.registry.UpdateStatus(jobID, constants.JobStatusFailed, jobs.Update{
		RowCount:      &rowCount,
		ProcessedRows: &processed,
		Error:         &msg,
	}); err != nil {
		p.log.Error("pipeline.fail_update_error", "job_id", jobID, "error", err)
	}
	p.log.Warn("pipeline.failed", "job_id", jobID, "error", msg)
	return cause
}
