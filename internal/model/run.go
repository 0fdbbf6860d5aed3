package model

import "time"

// RunKind identifies which operation a run record describes.
type RunKind string

const (
	RunKindWorkflow RunKind = "workflow"
	RunKindDedupe   RunKind = "dedupe"
	RunKindVerify   RunKind = "verify"
	RunKindEmails   RunKind = "emails"
)

// RunStatus represents the current state of a run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusSubmitting RunStatus = "submitting"
	RunStatusPolling    RunStatus = "polling"
	RunStatusResolving  RunStatus = "resolving"
	RunStatusEnriching  RunStatus = "enriching"
	RunStatusWriting    RunStatus = "writing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is a single invocation of the workflow or a maintenance operation.
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	Kind      RunKind    `json:"kind" yaml:"kind"`
	Status    RunStatus  `json:"status" yaml:"status"`
	Result    *RunResult `json:"result,omitempty" yaml:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

// RunResult holds the final outcome of a run. Counters that do not apply to
// the run kind stay zero.
type RunResult struct {
	JobID     string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	DatasetID string `json:"dataset_id,omitempty" yaml:"dataset_id,omitempty"`

	Scraped      int `json:"scraped" yaml:"scraped"`
	Accepted     int `json:"accepted" yaml:"accepted"`
	Enriched     int `json:"enriched" yaml:"enriched"`
	FetchFailed  int `json:"fetch_failed" yaml:"fetch_failed"`
	Appended     int `json:"appended" yaml:"appended"`
	RowsRemoved  int `json:"rows_removed" yaml:"rows_removed"`
	LinksCleared int `json:"links_cleared" yaml:"links_cleared"`
	ValidEmails  int `json:"valid_emails" yaml:"valid_emails"`

	Phases []PhaseResult `json:"phases" yaml:"phases"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// PhaseStatus represents the current state of a run phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseResult holds the outcome of one phase of a run.
type PhaseResult struct {
	Name     string         `json:"name" yaml:"name"`
	Status   PhaseStatus    `json:"status" yaml:"status"`
	Duration int64          `json:"duration_ms" yaml:"duration_ms"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
