package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/editor-bot/internal/api/model"
	"github.com/cuongbtq/editor-bot/internal/api/storage"
	"github.com/cuongbtq/editor-bot/internal/settings"
	workerstorage "github.com/cuongbtq/editor-bot/internal/worker/storage"
	"github.com/cuongbtq/editor-bot/shared/telegram"
)

// JobReader lists persisted jobs
type JobReader interface {
	GetJobByID(ctx context.Context, jobID int64) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
	CountUsers(ctx context.Context) (int64, error)
}

// SettingsService reads and writes runtime settings
type SettingsService interface {
	All(ctx context.Context) []settings.KeyValue
	Set(ctx context.Context, key, value string) (string, error)
}

// JobStats reports aggregated job counts
type JobStats interface {
	Stats(ctx context.Context) (*workerstorage.Stats, error)
}

// QueueInspector reports in-memory queue state
type QueueInspector interface {
	QueueLen() int
	Concurrency() int
}

// KeyReloader re-reads provider credentials
type KeyReloader interface {
	ReloadKeys() map[string]int
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger        *slog.Logger
	Jobs          JobReader
	Settings      SettingsService
	Stats         JobStats
	Queue         QueueInspector
	Keys          KeyReloader
	OnUpdate      telegram.UpdateHandler
	AdminToken    string
	WebhookSecret string
	// HealthCheck is optional; a failing check turns /health into 503
	HealthCheck   func(ctx context.Context) error
}

// AdminHandler serves the admin REST API
type AdminHandler struct {
	logger   *slog.Logger
	jobs     JobReader
	settings SettingsService
	stats    JobStats
	queue    QueueInspector
	keys     KeyReloader
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(deps *Dependencies) *AdminHandler {
	return &AdminHandler{
		logger:   deps.Logger,
		jobs:     deps.Jobs,
		settings: deps.Settings,
		stats:    deps.Stats,
		queue:    deps.Queue,
		keys:     deps.Keys,
	}
}
