package model

// JobStatus is the status reported by the remote scraping service for a run.
type JobStatus string

const (
	JobStatusReady     JobStatus = "READY"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusTimingOut JobStatus = "TIMING-OUT"
	JobStatusTimedOut  JobStatus = "TIMED-OUT"
	JobStatusAborting  JobStatus = "ABORTING"
	JobStatusAborted   JobStatus = "ABORTED"
)

// Known reports whether s is a status value the service is documented to return.
func (s JobStatus) Known() bool {
	switch s {
	case JobStatusReady, JobStatusRunning, JobStatusSucceeded, JobStatusFailed,
		JobStatusTimingOut, JobStatusTimedOut, JobStatusAborting, JobStatusAborted:
		return true
	}
	return false
}

// IsTerminal reports whether no further progress will happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut, JobStatusAborted:
		return true
	}
	return false
}

// JobHandle tracks a remote job while it is in flight.
type JobHandle struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	DatasetID string    `json:"defaultDatasetId,omitempty"`
}
