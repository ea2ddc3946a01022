package model

import (
	"encoding/json"
	"time"
)

type JobStatus string

// Job status constants
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed out of the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one submitted batch of documents from submission until it is swept.
type Job struct {
	ID          string     `gorm:"primaryKey;column:job_id;type:VARCHAR(64)"`
	Status      JobStatus  `gorm:"not null;type:VARCHAR(32);index"`
	Progress    float64    `gorm:"not null"`
	Message     string     `gorm:"type:TEXT"`
	ResultsID   *string    `gorm:"type:VARCHAR(64)"`
	StartedAt   time.Time  `gorm:"not null;index"`
	CompletedAt *time.Time `gorm:"index"`
}

func (Job) TableName() string {
	return "analysis_jobs"
}

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

type JobList []Job

// JobUpdate is a partial update of a job. Only non nil fields are written.
type JobUpdate struct {
	Status      *JobStatus
	Progress    *float64
	Message     *string
	ResultsID   *string
	CompletedAt *time.Time
}

func (u JobUpdate) Empty() bool {
	return u.Status == nil && u.Progress == nil && u.Message == nil && u.ResultsID == nil && u.CompletedAt == nil
}

// Columns returns the column/value pairs to write.
func (u JobUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.Progress != nil {
		cols["progress"] = *u.Progress
	}
	if u.Message != nil {
		cols["message"] = *u.Message
	}
	if u.ResultsID != nil {
		cols["results_id"] = *u.ResultsID
	}
	if u.CompletedAt != nil {
		cols["completed_at"] = u.CompletedAt.UTC()
	}
	return cols
}

// NewProgressUpdate reports progress of a running job.
func NewProgressUpdate(progress float64, message string) JobUpdate {
	return JobUpdate{Progress: &progress, Message: &message}
}

// NewCompletedUpdate moves the job to its successful terminal state.
func NewCompletedUpdate(resultsID string, completedAt time.Time) JobUpdate {
	status := JobStatusCompleted
	progress := 1.0
	message := "Analysis complete"
	return JobUpdate{
		Status:      &status,
		Progress:    &progress,
		Message:     &message,
		ResultsID:   &resultsID,
		CompletedAt: &completedAt,
	}
}

// NewFailedUpdate moves the job to the failed state. Progress is left untouched.
func NewFailedUpdate(cause string) JobUpdate {
	status := JobStatusFailed
	return JobUpdate{Status: &status, Message: &cause}
}
