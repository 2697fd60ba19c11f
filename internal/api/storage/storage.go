package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/api/model"
	"github.com/jmoiron/sqlx"
)

// Schema creates the users and settings tables
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                 BIGINT PRIMARY KEY,
	full_name          TEXT NOT NULL DEFAULT '',
	username           TEXT NOT NULL DEFAULT '',
	language           TEXT NOT NULL DEFAULT 'fa',
	instructions       TEXT NULL,
	preferred_provider TEXT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

// UpsertUser creates the user or refreshes its name fields, keeping preferences
func (s *Storage) UpsertUser(ctx context.Context, id int64, fullName, username string) error {
	query := `
		INSERT INTO users (id, full_name, username, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    username = EXCLUDED.username,
		    updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, id, fullName, username, domain.DefaultLanguage); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser returns the user or domain.ErrUserNotFound
func (s *Storage) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, full_name, username, language, instructions, preferred_provider, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var row model.User
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user := &domain.User{
		ID:       row.ID,
		FullName: row.FullName,
		Username: row.Username,
		Language: row.Language,
	}
	if row.Instructions.Valid {
		user.Instructions = &row.Instructions.String
	}
	if row.PreferredProvider.Valid {
		user.PreferredProvider = &row.PreferredProvider.String
	}
	return user, nil
}

// SetInstructions stores the user's editing instruction. Nil clears it.
func (s *Storage) SetInstructions(ctx context.Context, id int64, instructions *string) error {
	return s.updateUserColumn(ctx, id, "instructions", nullString(instructions))
}

// SetLanguage stores the user's preferred language
func (s *Storage) SetLanguage(ctx context.Context, id int64, language string) error {
	return s.updateUserColumn(ctx, id, "language", language)
}

// SetProvider stores the user's preferred provider. Nil clears it.
func (s *Storage) SetProvider(ctx context.Context, id int64, provider *string) error {
	return s.updateUserColumn(ctx, id, "preferred_provider", nullString(provider))
}

// column is always one of the literals above
func (s *Storage) updateUserColumn(ctx context.Context, id int64, column string, value any) error {
	query := fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = NOW() WHERE id = $2`, column)

	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", column, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of known users
func (s *Storage) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// GetSetting returns the stored value and whether it exists
func (s *Storage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting: %w", err)
	}
	return value, true, nil
}

// SetSetting writes a setting, replacing any previous value
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// InsertSettingIfAbsent writes a setting only when the key has no row yet
func (s *Storage) InsertSettingIfAbsent(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to seed setting: %w", err)
	}
	return nil
}

// ListSettings returns every stored setting
func (s *Storage) ListSettings(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings, `SELECT key, value, updated_at FROM settings ORDER BY key`); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

type JobFilter struct {
	UserID   *int64
	Provider string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

type JobCursor struct {
	CreatedAt time.Time
	JobID     int64
}

// GetJobByID returns one job row or domain.ErrJobNotFound
func (s *Storage) GetJobByID(ctx context.Context, jobID int64) (*model.Job, error) {
	query := `
		SELECT id, user_id, status, provider, retry_count, error_message, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	var job model.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns up to PageSize+1 jobs newest first; the extra row signals another page
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `
        SELECT id, user_id, status, provider, retry_count, error_message, created_at, completed_at
        FROM jobs
        WHERE 1=1
    `
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.Provider != "" {
		query += fmt.Sprintf(" AND provider = $%d", argIdx)
		args = append(args, filter.Provider)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
