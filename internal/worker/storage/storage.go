package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Schema creates the jobs table
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            BIGSERIAL PRIMARY KEY,
	user_id       BIGINT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	provider      TEXT NOT NULL,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
`

// JobRecord is a persisted job row
type JobRecord struct {
	ID           int64          `db:"id"`
	UserID       sql.NullInt64  `db:"user_id"`
	Status       string         `db:"status"`
	Provider     string         `db:"provider"`
	RetryCount   int            `db:"retry_count"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

// Stats aggregates job counts for the admin surfaces
type Stats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByProvider map[string]int64 `json:"by_provider"`
	Failovers  int64            `json:"failovers"`
}

// Storage handles all database operations on jobs
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateJob inserts a pending job and returns its id
func (s *Storage) CreateJob(ctx context.Context, userID *int64, provider string) (int64, error) {
	query := `
		INSERT INTO jobs (user_id, status, provider, retry_count, created_at)
		VALUES ($1, $2, $3, 0, NOW())
		RETURNING id
	`

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	var id int64
	if err := s.db.QueryRowxContext(ctx, query, uid, domain.JobStatusPending, provider).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}

	return id, nil
}

// UpdateJob applies update to the job. Reaching done stamps completed_at.
func (s *Storage) UpdateJob(ctx context.Context, jobID int64, update domain.JobUpdate) error {
	query := `
		UPDATE jobs
		SET status = $1::text,
			provider = COALESCE($2, provider),
			retry_count = COALESCE($3, retry_count),
			error_message = COALESCE($4, error_message),
			completed_at = CASE
				WHEN $1::text = $5::text THEN NOW()
				ELSE completed_at
			END
		WHERE id = $6
	`

	var provider sql.NullString
	if update.Provider != nil {
		provider = sql.NullString{String: *update.Provider, Valid: true}
	}
	var retryCount sql.NullInt32
	if update.RetryCount != nil {
		retryCount = sql.NullInt32{Int32: int32(*update.RetryCount), Valid: true}
	}
	var errorMsg sql.NullString
	if update.ErrorMessage != nil {
		errorMsg = sql.NullString{String: *update.ErrorMessage, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, update.Status, provider, retryCount, errorMsg, domain.JobStatusDone, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Debug("Job status updated",
		slog.Int64("job_id", jobID),
		slog.String("status", update.Status),
	)

	return nil
}

// GetJob retrieves a job by id
func (s *Storage) GetJob(ctx context.Context, jobID int64) (*JobRecord, error) {
	query := `
		SELECT id, user_id, status, provider, retry_count, error_message, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var job JobRecord
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// Stats returns job counts grouped by status and by provider
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus:   make(map[string]int64),
		ByProvider: make(map[string]int64),
	}

	var byStatus []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &byStatus, `SELECT status, COUNT(*) AS count FROM jobs GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var byProvider []struct {
		Provider string `db:"provider"`
		Count    int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &byProvider, `SELECT provider, COUNT(*) AS count FROM jobs WHERE status = $1 GROUP BY provider`, domain.JobStatusDone); err != nil {
		return nil, fmt.Errorf("failed to count jobs by provider: %w", err)
	}
	for _, row := range byProvider {
		stats.ByProvider[row.Provider] = row.Count
	}

	if err := s.db.GetContext(ctx, &stats.Failovers, `SELECT COUNT(*) FROM jobs WHERE retry_count > 0`); err != nil {
		return nil, fmt.Errorf("failed to count failovers: %w", err)
	}

	return stats, nil
}
