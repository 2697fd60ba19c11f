package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStorage(sqlx.NewDb(db, "sqlmock")), mock
}

var userColumns = []string{"id", "full_name", "username", "language", "instructions", "preferred_provider", "created_at", "updated_at"}

func TestStorage_UpsertUser(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(int64(10), "Sara K", "sarak", domain.DefaultLanguage).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertUser(context.Background(), 10, "Sara K", "sarak"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetUser(t *testing.T) {
	now := time.Now()

	t.Run("optional fields unset", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT id, full_name`).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(10), "Sara", "sarak", "fa", nil, nil, now, now))

		user, err := s.GetUser(context.Background(), 10)

		require.NoError(t, err)
		assert.Equal(t, "fa", user.Language)
		assert.Nil(t, user.Instructions)
		assert.Nil(t, user.PreferredProvider)
	})

	t.Run("optional fields set", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT id, full_name`).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(10), "Sara", "sarak", "en", "make it formal", "gemini", now, now))

		user, err := s.GetUser(context.Background(), 10)

		require.NoError(t, err)
		require.NotNil(t, user.Instructions)
		assert.Equal(t, "make it formal", *user.Instructions)
		require.NotNil(t, user.PreferredProvider)
		assert.Equal(t, "gemini", *user.PreferredProvider)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`SELECT id, full_name`).WithArgs(int64(11)).WillReturnError(sql.ErrNoRows)

		_, err := s.GetUser(context.Background(), 11)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestStorage_SetProvider(t *testing.T) {
	s, mock := newMockStorage(t)
	gemini := "gemini"

	mock.ExpectExec(`UPDATE users SET preferred_provider = \$1`).
		WithArgs("gemini", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET preferred_provider = \$1`).
		WithArgs(nil, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET language = \$1`).
		WithArgs("en", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.SetProvider(context.Background(), 10, &gemini))
	require.NoError(t, s.SetProvider(context.Background(), 10, nil))
	assert.ErrorIs(t, s.SetLanguage(context.Background(), 99, "en"), domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetSetting(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("max_words").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("300"))
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("rate_limit_seconds").
		WillReturnError(sql.ErrNoRows)

	v, ok, err := s.GetSetting(context.Background(), "max_words")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "300", v)

	_, ok, err = s.GetSetting(context.Background(), "rate_limit_seconds")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorage_InsertSettingIfAbsent(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`ON CONFLICT \(key\) DO NOTHING`).
		WithArgs("max_words", "100").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.InsertSettingIfAbsent(context.Background(), "max_words", "100"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListJobs(t *testing.T) {
	s, mock := newMockStorage(t)
	userID := int64(10)
	cursorAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "user_id", "status", "provider", "retry_count", "error_message", "created_at", "completed_at"}
	mock.ExpectQuery(`AND user_id = \$1 AND status = \$2 AND \(created_at, id\) < \(\$3, \$4\) ORDER BY created_at DESC, id DESC LIMIT \$5`).
		WithArgs(userID, "done", cursorAt, int64(40), int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(39), userID, "done", "gemini", 1, nil, cursorAt.Add(-time.Minute), cursorAt))

	jobs, err := s.ListJobs(context.Background(), JobFilter{
		UserID:   &userID,
		Status:   "done",
		PageSize: 2,
		Cursor:   &JobCursor{CreatedAt: cursorAt, JobID: 40},
	})

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(39), jobs[0].ID)
	assert.Equal(t, 1, jobs[0].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
