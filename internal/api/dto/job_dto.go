package dto

import (
	"time"

	"github.com/cuongbtq/editor-bot/internal/api/model"
)

type ListJobsRequest struct {
	UserID   *int64 `form:"user_id"`
	Provider string `form:"provider"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID           int64   `json:"id"`
	UserID       *int64  `json:"user_id,omitempty"`
	Status       string  `json:"status"`
	Provider     string  `json:"provider"`
	RetryCount   int     `json:"retry_count"`
	ErrorMessage *string `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

// NewJobDTO converts a job row for the admin API
func NewJobDTO(job *model.Job) JobDTO {
	out := JobDTO{
		ID:         job.ID,
		Status:     job.Status,
		Provider:   job.Provider,
		RetryCount: job.RetryCount,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}
	if job.UserID.Valid {
		out.UserID = &job.UserID.Int64
	}
	if job.ErrorMessage.Valid {
		out.ErrorMessage = &job.ErrorMessage.String
	}
	if job.CompletedAt.Valid {
		completed := job.CompletedAt.Time.Format(time.RFC3339)
		out.CompletedAt = &completed
	}
	return out
}
