package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apidomain "github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/provider"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
)

// UserReader looks up per-user preferences
type UserReader interface {
	GetUser(ctx context.Context, id int64) (*apidomain.User, error)
}

// SettingsReader exposes the runtime settings intake depends on
type SettingsReader interface {
	RateLimitSeconds(ctx context.Context) int
	MaxWords(ctx context.Context) int
	DefaultProvider(ctx context.Context) string
}

// JobStore creates job rows and records enqueue failures
type JobStore interface {
	CreateJob(ctx context.Context, userID *int64, provider string) (int64, error)
	UpdateJob(ctx context.Context, jobID int64, update domain.JobUpdate) error
}

// Queue accepts jobs for the worker pool
type Queue interface {
	Enqueue(job *domain.Job) (int, error)
}

// Config holds intake dependencies
type Config struct {
	Logger             *slog.Logger
	Users              UserReader
	Settings           SettingsReader
	Jobs               JobStore
	Queue              Queue
	Limiter            RateLimiter
	DefaultInstruction string
}

// Request is one text submission from a chat
type Request struct {
	UserID int64
	ChatID int64
	Text   string
}

// Receipt describes an accepted submission
type Receipt struct {
	JobID    int64
	Position int
	Provider string

	// DetectedLanguage differs from PreferredLanguage when LanguageMismatch is set
	DetectedLanguage  string
	PreferredLanguage string
	LanguageMismatch  bool
}

// Service validates submissions and hands them to the worker pool
type Service struct {
	logger             *slog.Logger
	users              UserReader
	settings           SettingsReader
	jobs               JobStore
	queue              Queue
	limiter            RateLimiter
	defaultInstruction string
	now                func() time.Time
}

// NewService creates a new intake service
func NewService(cfg *Config) *Service {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = NewMemoryLimiter()
	}
	return &Service{
		logger:             cfg.Logger,
		users:              cfg.Users,
		settings:           cfg.Settings,
		jobs:               cfg.Jobs,
		queue:              cfg.Queue,
		limiter:            limiter,
		defaultInstruction: cfg.DefaultInstruction,
		now:                time.Now,
	}
}

// Submit validates req, creates a pending job and enqueues it. Rejected
// submissions never create a job.
func (s *Service) Submit(ctx context.Context, req Request) (*Receipt, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	maxWords := s.settings.MaxWords(ctx)
	if words := len(strings.Fields(req.Text)); words > maxWords {
		return nil, &TooManyWordsError{Max: maxWords, Words: words}
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil && !errors.Is(err, apidomain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	interval := time.Duration(s.settings.RateLimitSeconds(ctx)) * time.Second
	wait, err := s.limiter.Allow(ctx, req.UserID, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if wait > 0 {
		return nil, &RateLimitError{Interval: interval, Wait: wait}
	}

	instruction, providerName := s.resolve(ctx, user)

	var userID *int64
	if user != nil {
		userID = &user.ID
	}

	jobID, err := s.jobs.CreateJob(ctx, userID, providerName)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job := &domain.Job{
		ID:          jobID,
		UserID:      userID,
		Text:        req.Text,
		Instruction: instruction,
		Provider:    providerName,
		ChatID:      req.ChatID,
		CreatedAt:   s.now(),
	}

	position, err := s.queue.Enqueue(job)
	if err != nil {
		msg := err.Error()
		if updateErr := s.jobs.UpdateJob(ctx, jobID, domain.JobUpdate{Status: domain.JobStatusError, ErrorMessage: &msg}); updateErr != nil {
			s.logger.Error("Failed to mark rejected job",
				slog.Int64("job_id", jobID),
				slog.String("error", updateErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info("Job submitted",
		slog.Int64("job_id", jobID),
		slog.Int64("user_id", req.UserID),
		slog.String("provider", providerName),
		slog.Int("position", position),
	)

	receipt := &Receipt{
		JobID:            jobID,
		Position:         position,
		Provider:         providerName,
		DetectedLanguage: DetectLanguage(req.Text),
	}
	if user != nil && user.Language != "" {
		receipt.PreferredLanguage = user.Language
		receipt.LanguageMismatch = user.Language != receipt.DetectedLanguage
	}
	return receipt, nil
}

// resolve picks the user's overrides, falling back to the system defaults
func (s *Service) resolve(ctx context.Context, user *apidomain.User) (string, string) {
	instruction := s.defaultInstruction
	providerName := s.settings.DefaultProvider(ctx)

	if user != nil {
		if user.Instructions != nil && strings.TrimSpace(*user.Instructions) != "" {
			instruction = *user.Instructions
		}
		if user.PreferredProvider != nil && provider.Valid(*user.PreferredProvider) {
			providerName = *user.PreferredProvider
		}
	}
	return instruction, providerName
}
