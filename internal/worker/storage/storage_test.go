package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/cuongbtq/editor-bot/shared/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStorage(sqlx.NewDb(db, "sqlmock"), logger.NewNop().Logger), mock
}

func TestStorage_CreateJob(t *testing.T) {
	s, mock := newMockStorage(t)
	userID := int64(77)

	mock.ExpectQuery(`INSERT INTO jobs`).
		WithArgs(int64(77), domain.JobStatusPending, "openai").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	id, err := s.CreateJob(context.Background(), &userID, "openai")

	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CreateJob_NullUser(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO jobs`).
		WithArgs(nil, domain.JobStatusPending, "gemini").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := s.CreateJob(context.Background(), nil, "gemini")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CreateJob_Error(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`INSERT INTO jobs`).WillReturnError(errors.New("connection reset"))

	_, err := s.CreateJob(context.Background(), nil, "openai")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create job")
}

func TestStorage_UpdateJob(t *testing.T) {
	provider := "gemini"
	retry := 1
	msg := "boom"

	tests := []struct {
		name     string
		update   domain.JobUpdate
		args     []driver.Value
		affected int64
		wantErr  error
	}{
		{
			name:     "done with provider and retry count",
			update:   domain.JobUpdate{Status: domain.JobStatusDone, Provider: &provider, RetryCount: &retry},
			args:     []driver.Value{domain.JobStatusDone, "gemini", int64(1), nil, domain.JobStatusDone, int64(5)},
			affected: 1,
		},
		{
			name:     "error with message",
			update:   domain.JobUpdate{Status: domain.JobStatusError, ErrorMessage: &msg},
			args:     []driver.Value{domain.JobStatusError, nil, nil, "boom", domain.JobStatusDone, int64(5)},
			affected: 1,
		},
		{
			name:     "missing job",
			update:   domain.JobUpdate{Status: domain.JobStatusProcessing},
			args:     []driver.Value{domain.JobStatusProcessing, nil, nil, nil, domain.JobStatusDone, int64(5)},
			affected: 0,
			wantErr:  domain.ErrJobNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(`UPDATE jobs`).
				WithArgs(tt.args...).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.UpdateJob(context.Background(), 5, tt.update)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetJob_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT id, user_id, status`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetJob(context.Background(), 404)

	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStorage_Stats(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT status, COUNT`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("done", 8).
			AddRow("error", 2))
	mock.ExpectQuery(`SELECT provider, COUNT`).
		WithArgs(domain.JobStatusDone).
		WillReturnRows(sqlmock.NewRows([]string{"provider", "count"}).
			AddRow("openai", 5).
			AddRow("gemini", 3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs WHERE retry_count`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	stats, err := s.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus["error"])
	assert.Equal(t, int64(3), stats.ByProvider["gemini"])
	assert.Equal(t, int64(3), stats.Failovers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
