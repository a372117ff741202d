// Package jobs owns job records and their state machine, stored as JSON in
// the chunked cache store under job:{id} with a fixed TTL.
package jobs

import (
	"encoding/json"
	"log/slog"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/joseph-ayodele/docingest/constants"
	"github.com/joseph-ayodele/docingest/internal/cache"
	"github.com/joseph-ayodele/docingest/internal/common"
)

type Registry interface {
	Create(job *Job) error
	Get(jobID string) (*Job, error)
	// UpdateStatus reads the record, applies the transition and merges fields,
	// then rewrites the whole record. Last writer wins; one pipeline instance
	// is expected to own one job id.
	UpdateStatus(jobID string, status constants.JobStatus, update Update) (*Job, error)
	List() ([]*Job, error)
	// Delete removes the job record and any cached data chunks for it.
	Delete(jobID string) error
}

type registry struct {
	store cache.Store
	ttl   time.Duration
	log   *slog.Logger
}

func NewRegistry(store cache.Store, ttl time.Duration, log *slog.Logger) Registry {
	if log == nil {
		log = slog.Default()
	}
	return &registry{store: store, ttl: ttl, log: log}
}

// NewJob builds a pending job record with the upload timestamp set.
func NewJob(id, fileName, tableName string) *Job {
	return &Job{
		ID:         id,
		Status:     constants.JobStatusPending,
		FileName:   fileName,
		TableName:  tableName,
		UploadedAt: time.Now().UTC(),
	}
}

func (r *registry) Create(job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return common.WrapError(err, "marshal job")
	}
	if err := r.store.Set(cache.JobKey(job.ID), string(raw), r.ttl); err != nil {
		r.log.Error("jobs.create_failed", "job_id", job.ID, "error", err)
		return err
	}
	r.log.Info("jobs.created", "job_id", job.ID, "file", job.FileName, "table", job.TableName)
	return nil
}

func (r *registry) Get(jobID string) (*Job, error) {
	raw, ok, err := r.store.Get(cache.JobKey(jobID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NotFoundErrorf("job %s not found", jobID)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, common.WrapError(err, "unmarshal job")
	}
	return &job, nil
}

func (r *registry) UpdateStatus(jobID string, status constants.JobStatus, update Update) (*Job, error) {
	job, err := r.Get(jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransition(status) {
		return nil, common.ValidationErrorf("illegal transition %s → %s for job %s", job.Status, status, jobID)
	}

	now := time.Now().UTC()
	job.Status = status
	if status == constants.JobStatusProcessing {
		job.StartedAt = &now
	}
	if status.IsTerminal() {
		job.CompletedAt = &now
	}
	if update.TableName != nil {
		job.TableName = *update.TableName
	}
	if update.RowCount != nil {
		job.RowCount = *update.RowCount
	}
	if update.ProcessedRows != nil {
		job.ProcessedRows = *update.ProcessedRows
	}
	if update.Error != nil {
		job.Error = *update.Error
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return nil, common.WrapError(err, "marshal job")
	}
	if err := r.store.Set(cache.JobKey(jobID), string(raw), r.ttl); err != nil {
		r.log.Error("jobs.update_failed", "job_id", jobID, "status", status, "error", err)
		return nil, err
	}
	r.log.Info("jobs.updated", "job_id", jobID, "status", status)
	return job, nil
}

func (r *registry) List() ([]*Job, error) {
	keys, err := r.store.Keys("job:*")
	if err != nil {
		return nil, err
	}
	list := make([]*Job, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := r.store.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			// expired between Keys and Get
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			r.log.Warn("jobs.list_skip_corrupt", "key", key, "error", err)
			continue
		}
		list = append(list, &job)
	}
	return list, nil
}

func (r *registry) Delete(jobID string) error {
	if _, err := r.Get(jobID); err != nil {
		return err
	}
	var result *multierror.Error
	dataKeys, err := r.store.Keys(cache.DataPattern(jobID))
	if err != nil {
		result = multierror.Append(result, err)
	} else if err := r.store.Delete(dataKeys...); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.store.Delete(cache.JobKey(jobID)); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	r.log.Info("jobs.deleted", "job_id", jobID)
	return nil
}
