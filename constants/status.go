package constants

// JobStatus is the canonical status for ingestion job records.
type JobStatus string

// Stable values (store these exact strings in the cache).
const (
	JobStatusPending    JobStatus = "pending"    // created, not yet picked up
	JobStatusProcessing JobStatus = "processing" // extraction in progress
	JobStatusCompleted  JobStatus = "completed"  // terminal, rows persisted
	JobStatusFailed     JobStatus = "failed"     // terminal failure
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether moving from s to next is a legal step of the
// job lifecycle: pending → processing → {completed | failed}.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed
	default:
		return false
	}
}
