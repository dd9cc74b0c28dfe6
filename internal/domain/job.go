package domain

import "time"

// JobStatus represents the status of an import run.
// Values include JobStatusIdle, JobStatusRunning, JobStatusCompleted, JobStatusStopped and JobStatusError.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusStopped   JobStatus = "stopped"
	JobStatusError     JobStatus = "error"
)

// Trigger identifies what started an import run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// CurrentJobID is the primary key of the single job record.
const CurrentJobID = "current"

// Batch size bounds accepted for a run.
const (
	MinBatchSize = 1
	MaxBatchSize = 1000
)

// ImportJob is the progress record of the current (or last) import run.
// The staged dataset for RunID lives outside this record.
type ImportJob struct {
	ID          string     `gorm:"type:text;primaryKey" json:"-"`
	RunID       string     `gorm:"type:text;index" json:"run_id,omitempty"`
	Trigger     Trigger    `gorm:"type:text" json:"trigger,omitempty"`
	Status      JobStatus  `gorm:"type:text;default:idle" json:"status"`
	Total       int        `gorm:"default:0" json:"total"`
	Processed   int        `gorm:"default:0" json:"processed"`
	Failed      int        `gorm:"default:0" json:"failed"`
	BatchSize   int        `gorm:"default:50" json:"batch_size"`
	Message     string     `gorm:"type:text" json:"message"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ImportJob.
func (ImportJob) TableName() string {
	return "import_jobs"
}

// IdleJob returns the record reported before any run has started.
func IdleJob() *ImportJob {
	return &ImportJob{
		ID:        CurrentJobID,
		Status:    JobStatusIdle,
		BatchSize: 50,
	}
}

// IsRunning reports whether the job blocks new runs.
func (j *ImportJob) IsRunning() bool {
	return j != nil && j.Status == JobStatusRunning
}

// Remaining returns how many staged records have not been applied yet.
func (j *ImportJob) Remaining() int {
	if j.Processed >= j.Total {
		return 0
	}
	return j.Total - j.Processed
}

// ClampBatchSize forces n into [MinBatchSize, MaxBatchSize].
func ClampBatchSize(n int) int {
	if n < MinBatchSize {
		return MinBatchSize
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}
