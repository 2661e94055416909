package models

import "time"

// JobStatus is the lifecycle state of an asynchronous training job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Done reports whether the job reached a terminal state.
func (s JobStatus) Done() bool { return s == JobSucceeded || s == JobFailed }

// TrainJob tracks a training request submitted through the job queue.
type TrainJob struct {
	ID          string         `json:"job_id"`
	Status      JobStatus      `json:"status"`
	Request     TrainRequest   `json:"request"`
	Result      *TrainResponse `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	SubmittedAt time.Time      `json:"submitted_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
