package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cuongbtq/editor-bot/internal/observability"
	"github.com/cuongbtq/editor-bot/internal/provider"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/google/uuid"
)

const (
	DefaultConcurrency = 3
	DefaultQueueSize   = 1000
)

// JobStore persists job state transitions. Implementations must be safe for concurrent use.
type JobStore interface {
	UpdateJob(ctx context.Context, jobID int64, update domain.JobUpdate) error
}

// Deliverer sends a message to a chat. Callers pre-truncate text.
type Deliverer interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// EventPublisher receives one event per terminal job outcome
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *domain.JobEvent) error
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Store       JobStore
	Deliverer   Deliverer
	Editors     map[string]provider.Editor
	Publisher   EventPublisher
	Concurrency int
	QueueSize   int
}

// Worker owns the in-memory job queue and the goroutines draining it
type Worker struct {
	logger      *slog.Logger
	store       JobStore
	deliverer   Deliverer
	editors     map[string]provider.Editor
	publisher   EventPublisher
	concurrency int
	workerID    string

	jobsChan chan *domain.Job
	wg       sync.WaitGroup

	mu       sync.RWMutex
	started  bool
	stopping bool
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		logger:      logger,
		store:       cfg.Store,
		deliverer:   cfg.Deliverer,
		editors:     cfg.Editors,
		publisher:   cfg.Publisher,
		concurrency: concurrency,
		workerID:    uuid.NewString(),
		jobsChan:    make(chan *domain.Job, queueSize),
	}
}

// Start spawns the worker goroutines. Jobs run on a context detached from ctx's
// cancellation so a shutdown signal never aborts an in-flight job.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	w.started = true

	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("queue_size", cap(w.jobsChan)),
	)

	w.spawnWorkerPool(context.WithoutCancel(ctx))
	return nil
}

// Enqueue appends job to the queue and returns the queue length observed after the push
func (w *Worker) Enqueue(job *domain.Job) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopping {
		return 0, domain.ErrPoolStopped
	}

	select {
	case w.jobsChan <- job:
	default:
		return 0, domain.ErrQueueFull
	}

	position := len(w.jobsChan)
	observability.EnqueueJob(position)

	w.logger.Debug("Job enqueued",
		slog.Int64("job_id", job.ID),
		slog.Int("position", position),
	)
	return position, nil
}

// QueueLen returns the number of jobs waiting for a worker
func (w *Worker) QueueLen() int {
	return len(w.jobsChan)
}

// Concurrency returns the number of worker goroutines
func (w *Worker) Concurrency() int {
	return w.concurrency
}

// Stop enqueues one sentinel per worker behind the pending jobs and waits for
// every worker to exit. Jobs already queued are drained first.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		return
	}
	w.stopping = true
	started := w.started
	w.mu.Unlock()

	if !started {
		return
	}

	w.logger.Info("Stopping worker...", slog.Int("pending", len(w.jobsChan)))
	for i := 0; i < w.concurrency; i++ {
		w.jobsChan <- nil
	}
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
