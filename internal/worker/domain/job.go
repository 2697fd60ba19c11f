package domain

import "time"

// Job is one text-editing request, owned by the queue while in flight
type Job struct {
	ID          int64
	UserID      *int64
	Text        string
	Instruction string
	Provider    string
	ChatID      int64
	CreatedAt   time.Time
}

// JobUpdate carries the fields to change on a persisted job. Nil fields are left untouched.
type JobUpdate struct {
	Status       string
	Provider     *string
	RetryCount   *int
	ErrorMessage *string
}

// Result is the terminal outcome of one job
type Result struct {
	Status     string
	Provider   string
	RetryCount int
	Err        error
}

// JobEvent is published once per terminal outcome
type JobEvent struct {
	JobID      int64     `json:"job_id"`
	UserID     *int64    `json:"user_id,omitempty"`
	ChatID     int64     `json:"chat_id"`
	Status     string    `json:"status"`
	Provider   string    `json:"provider,omitempty"`
	RetryCount int       `json:"retry_count"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
