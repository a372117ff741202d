package jobs

import (
	"time"

	"github.com/joseph-ayodele/docingest/constants"
)

// Job tracks one unit of extraction-to-persistence work.
type Job struct {
	ID            string              `json:"id"`
	Status        constants.JobStatus `json:"status"`
	FileName      string              `json:"fileName"`
	TableName     string              `json:"tableName"`
	RowCount      int                 `json:"rowCount"`
	ProcessedRows int                 `json:"processedRows"`
	UploadedAt    time.Time           `json:"uploadedAt"`
	StartedAt     *time.Time          `json:"startedAt,omitempty"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Update carries the fields merged into a job record on a status transition.
// Nil fields are left untouched.
type Update struct {
	TableName     *string
	RowCount      *int
	ProcessedRows *int
	Error         *string
}
