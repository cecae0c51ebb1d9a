package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Payload is the word activation a job resolves.
type Payload struct {
	Word     string `json:"word"`
	Sentence string `json:"sentence,omitempty"`
}

type Job struct {
	ID        string    `json:"id"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Terminal() bool {
	return j.Status == StatusSuccess || j.Status == StatusFailed
}
