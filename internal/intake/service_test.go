package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	apidomain "github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/cuongbtq/editor-bot/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[int64]*apidomain.User

func (f fakeUsers) GetUser(_ context.Context, id int64) (*apidomain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apidomain.ErrUserNotFound
}

type fakeSettings struct {
	rateLimit int
	maxWords  int
	provider  string
}

func (f fakeSettings) RateLimitSeconds(context.Context) int  { return f.rateLimit }
func (f fakeSettings) MaxWords(context.Context) int          { return f.maxWords }
func (f fakeSettings) DefaultProvider(context.Context) string { return f.provider }

type fakeJobs struct {
	mu      sync.Mutex
	created []string
	updates map[int64]domain.JobUpdate
}

func (f *fakeJobs) CreateJob(_ context.Context, _ *int64, provider string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, provider)
	return int64(len(f.created)), nil
}

func (f *fakeJobs) UpdateJob(_ context.Context, id int64, u domain.JobUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[int64]domain.JobUpdate)
	}
	f.updates[id] = u
	return nil
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeQueue struct {
	jobs []*domain.Job
	err  error
}

func (q *fakeQueue) Enqueue(job *domain.Job) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.jobs = append(q.jobs, job)
	return len(q.jobs), nil
}

type fixture struct {
	svc   *Service
	jobs  *fakeJobs
	queue *fakeQueue
	clock *time.Time
}

func newFixture(users fakeUsers, settings fakeSettings) *fixture {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{jobs: &fakeJobs{}, queue: &fakeQueue{}, clock: &now}
	f.svc = NewService(&Config{
		Logger:             logger.NewNop().Logger,
		Users:              users,
		Settings:           settings,
		Jobs:               f.jobs,
		Queue:              f.queue,
		Limiter:            NewMemoryLimiter().WithClock(func() time.Time { return *f.clock }),
		DefaultInstruction: "fix punctuation",
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

var defaultSettings = fakeSettings{rateLimit: 30, maxWords: 5000, provider: "openai"}

func TestSubmit_EmptyTextCreatesNoJob(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		f := newFixture(fakeUsers{}, defaultSettings)

		_, err := f.svc.Submit(context.Background(), Request{UserID: 1, ChatID: 1, Text: text})

		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Equal(t, 0, f.jobs.count())
		assert.Empty(t, f.queue.jobs)
	}
}

func TestSubmit_TooManyWords(t *testing.T) {
	f := newFixture(fakeUsers{}, fakeSettings{rateLimit: 0, maxWords: 3, provider: "openai"})

	_, err := f.svc.Submit(context.Background(), Request{UserID: 1, Text: "one two three four"})

	require.ErrorIs(t, err, ErrTooManyWords)
	var tooMany *TooManyWordsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 3, tooMany.Max)
	assert.Equal(t, 4, tooMany.Words)
	assert.Equal(t, 0, f.jobs.count())

	_, err = f.svc.Submit(context.Background(), Request{UserID: 1, Text: "one two three"})
	assert.NoError(t, err)
}

func TestSubmit_RateLimit(t *testing.T) {
	f := newFixture(fakeUsers{}, defaultSettings)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, Request{UserID: 7, ChatID: 7, Text: "first"})
	require.NoError(t, err)

	f.advance(5 * time.Second)
	_, err = f.svc.Submit(ctx, Request{UserID: 7, ChatID: 7, Text: "second"})

	require.ErrorIs(t, err, ErrRateLimited)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 25, rl.WaitSeconds())
	assert.Equal(t, 1, f.jobs.count(), "no job for the rejected submission")

	_, err = f.svc.Submit(ctx, Request{UserID: 8, ChatID: 8, Text: "other user"})
	assert.NoError(t, err, "limits are per user")

	f.advance(25 * time.Second)
	_, err = f.svc.Submit(ctx, Request{UserID: 7, ChatID: 7, Text: "third"})
	assert.NoError(t, err, "exactly the interval later is accepted")
}

func TestSubmit_RejectedSubmissionDoesNotResetInterval(t *testing.T) {
	f := newFixture(fakeUsers{}, defaultSettings)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, Request{UserID: 7, Text: "first"})
	require.NoError(t, err)

	f.advance(20 * time.Second)
	_, err = f.svc.Submit(ctx, Request{UserID: 7, Text: "too soon"})
	require.ErrorIs(t, err, ErrRateLimited)

	f.advance(10 * time.Second)
	_, err = f.svc.Submit(ctx, Request{UserID: 7, Text: "on time"})
	assert.NoError(t, err)
}

func TestSubmit_ResolvesInstructionAndProvider(t *testing.T) {
	formal := "make it formal"
	gemini := "gemini"
	bogus := "claude"

	tests := []struct {
		name            string
		user            *apidomain.User
		settings        fakeSettings
		wantInstruction string
		wantProvider    string
		wantUserID      bool
	}{
		{
			name:            "unknown user uses defaults",
			settings:        defaultSettings,
			wantInstruction: "fix punctuation",
			wantProvider:    "openai",
		},
		{
			name:            "user overrides",
			user:            &apidomain.User{ID: 1, Language: "fa", Instructions: &formal, PreferredProvider: &gemini},
			settings:        defaultSettings,
			wantInstruction: formal,
			wantProvider:    "gemini",
			wantUserID:      true,
		},
		{
			name:            "system default provider",
			user:            &apidomain.User{ID: 1, Language: "fa"},
			settings:        fakeSettings{rateLimit: 30, maxWords: 10, provider: "gemini"},
			wantInstruction: "fix punctuation",
			wantProvider:    "gemini",
			wantUserID:      true,
		},
		{
			name:            "invalid stored provider ignored",
			user:            &apidomain.User{ID: 1, Language: "fa", PreferredProvider: &bogus},
			settings:        defaultSettings,
			wantInstruction: "fix punctuation",
			wantProvider:    "openai",
			wantUserID:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := fakeUsers{}
			if tt.user != nil {
				users[tt.user.ID] = tt.user
			}
			f := newFixture(users, tt.settings)

			receipt, err := f.svc.Submit(context.Background(), Request{UserID: 1, ChatID: 99, Text: "متن نمونه"})

			require.NoError(t, err)
			require.Len(t, f.queue.jobs, 1)
			job := f.queue.jobs[0]
			assert.Equal(t, tt.wantInstruction, job.Instruction)
			assert.Equal(t, tt.wantProvider, job.Provider)
			assert.Equal(t, tt.wantProvider, receipt.Provider)
			assert.Equal(t, int64(99), job.ChatID)
			assert.Equal(t, receipt.JobID, job.ID)
			assert.Equal(t, 1, receipt.Position)
			assert.Equal(t, tt.wantUserID, job.UserID != nil)
		})
	}
}

func TestSubmit_LanguageMismatch(t *testing.T) {
	users := fakeUsers{1: {ID: 1, Language: "fa"}}
	f := newFixture(users, fakeSettings{rateLimit: 0, maxWords: 100, provider: "openai"})

	receipt, err := f.svc.Submit(context.Background(), Request{UserID: 1, Text: "Hello world"})
	require.NoError(t, err)
	assert.True(t, receipt.LanguageMismatch)
	assert.Equal(t, "en", receipt.DetectedLanguage)
	assert.Equal(t, "fa", receipt.PreferredLanguage)

	receipt, err = f.svc.Submit(context.Background(), Request{UserID: 1, Text: "سلام دنیا"})
	require.NoError(t, err)
	assert.False(t, receipt.LanguageMismatch)
}

func TestSubmit_QueueFullMarksJobError(t *testing.T) {
	f := newFixture(fakeUsers{}, defaultSettings)
	f.queue.err = domain.ErrQueueFull

	_, err := f.svc.Submit(context.Background(), Request{UserID: 1, Text: "text"})

	require.ErrorIs(t, err, domain.ErrQueueFull)
	require.Contains(t, f.jobs.updates, int64(1))
	assert.Equal(t, domain.JobStatusError, f.jobs.updates[1].Status)
}

type failingUsers struct{}

func (failingUsers) GetUser(context.Context, int64) (*apidomain.User, error) {
	return nil, errors.New("db down")
}

func TestSubmit_UserLookupFailure(t *testing.T) {
	f := newFixture(fakeUsers{}, defaultSettings)
	f.svc.users = failingUsers{}

	_, err := f.svc.Submit(context.Background(), Request{UserID: 1, Text: strings.Repeat("a ", 3)})

	require.Error(t, err)
	assert.Equal(t, 0, f.jobs.count())
}
