package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID                int64          `db:"id"`
	FullName          string         `db:"full_name"`
	Username          string         `db:"username"`
	Language          string         `db:"language"`
	Instructions      sql.NullString `db:"instructions"`
	PreferredProvider sql.NullString `db:"preferred_provider"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Job struct {
	ID           int64          `db:"id"`
	UserID       sql.NullInt64  `db:"user_id"`
	Status       string         `db:"status"`
	Provider     string         `db:"provider"`
	RetryCount   int            `db:"retry_count"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}
