package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/editor-bot/internal/observability"
	"github.com/cuongbtq/editor-bot/internal/provider"
	"github.com/cuongbtq/editor-bot/internal/worker/domain"
)

const (
	emptyResultMessage = "✅ Done. The provider returned no text."
	failoverNoticeFmt  = "\n\nℹ️ %s was unavailable (quota exhausted), so this result was produced by %s."
	errorNoticeFmt     = "❌ Processing failed (%s): %s"
	finalErrorFmt      = "❌ Both providers failed. %s: %s"
)

// processJob runs the dispatch-and-failover protocol for one job. Every terminal
// outcome is delivered to the job's chat and persisted; the two side effects are
// independent and a failure in one never blocks the other.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) (result *domain.Result) {
	var terminal *domain.Result
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Recovered from panic",
				slog.Int64("job_id", job.ID),
				slog.Any("panic", r),
			)
			if terminal != nil {
				result = terminal
				return
			}
			err := fmt.Errorf("panic while processing job: %v", r)
			w.finishError(ctx, job, job.Provider, err, errorNoticeFmt)
			result = &domain.Result{Status: domain.JobStatusError, Provider: job.Provider, Err: err}
		}
	}()

	w.persist(ctx, job.ID, domain.JobUpdate{Status: domain.JobStatusProcessing})

	primary := job.Provider
	fallback := provider.Fallback(primary)

	out, err := w.edit(ctx, primary, job)
	if err == nil {
		terminal = &domain.Result{Status: domain.JobStatusDone, Provider: primary}
		w.finishDone(ctx, job, terminal, out, "")
		return terminal
	}

	if !provider.ShouldFailover(err) {
		w.logger.Warn("Primary provider failed without failover",
			slog.Int64("job_id", job.ID),
			slog.String("provider", primary),
			slog.String("error", err.Error()),
		)
		terminal = &domain.Result{Status: domain.JobStatusError, Provider: primary, Err: err}
		w.finishError(ctx, job, primary, err, errorNoticeFmt)
		return terminal
	}

	w.logger.Info("Primary provider exhausted, failing over",
		slog.Int64("job_id", job.ID),
		slog.String("from", primary),
		slog.String("to", fallback),
		slog.String("error", err.Error()),
	)
	observability.Failover(primary, fallback)

	out, err = w.edit(ctx, fallback, job)
	if err == nil {
		terminal = &domain.Result{Status: domain.JobStatusDone, Provider: fallback, RetryCount: 1}
		w.finishDone(ctx, job, terminal, out, fmt.Sprintf(failoverNoticeFmt, primary, fallback))
		return terminal
	}

	terminal = &domain.Result{Status: domain.JobStatusError, Provider: fallback, RetryCount: 1, Err: err}
	w.finishError(ctx, job, fallback, err, finalErrorFmt)
	return terminal
}

// edit dispatches to the named provider's editor
func (w *Worker) edit(ctx context.Context, name string, job *domain.Job) (string, error) {
	editor, ok := w.editors[name]
	if !ok {
		return "", provider.NewFatalError(name, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, name))
	}
	return editor.Edit(ctx, job.Instruction, job.Text)
}

func (w *Worker) finishDone(ctx context.Context, job *domain.Job, result *domain.Result, out, notice string) {
	text := truncateRunes(out, domain.MaxMessageLength)
	if text == "" {
		text = emptyResultMessage
	}
	w.deliver(ctx, job, text+notice)

	name, retryCount := result.Provider, result.RetryCount
	w.persist(ctx, job.ID, domain.JobUpdate{
		Status:     domain.JobStatusDone,
		Provider:   &name,
		RetryCount: &retryCount,
	})
}

func (w *Worker) finishError(ctx context.Context, job *domain.Job, name string, err error, format string) {
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	w.deliver(ctx, job, fmt.Sprintf(format, name, truncateRunes(msg, domain.ErrorExcerptLength)))
	w.persist(ctx, job.ID, domain.JobUpdate{
		Status:       domain.JobStatusError,
		ErrorMessage: &msg,
	})
}

func (w *Worker) deliver(ctx context.Context, job *domain.Job, text string) {
	if w.deliverer == nil {
		return
	}
	defer w.recoverSideEffect(job.ID, "deliver")
	if err := w.deliverer.Send(ctx, job.ChatID, text); err != nil {
		w.logger.Error("Failed to deliver job result",
			slog.Int64("job_id", job.ID),
			slog.Int64("chat_id", job.ChatID),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) persist(ctx context.Context, jobID int64, update domain.JobUpdate) {
	if w.store == nil {
		return
	}
	defer w.recoverSideEffect(jobID, "persist")
	if err := w.store.UpdateJob(ctx, jobID, update); err != nil {
		w.logger.Error("Failed to update job",
			slog.Int64("job_id", jobID),
			slog.String("status", update.Status),
			slog.String("error", err.Error()),
		)
	}
}

// recoverSideEffect keeps a panicking deliverer or store from skipping the other side effect
func (w *Worker) recoverSideEffect(jobID int64, step string) {
	if r := recover(); r != nil {
		w.logger.Error("Recovered from panic in job side effect",
			slog.Int64("job_id", jobID),
			slog.String("step", step),
			slog.Any("panic", r),
		)
	}
}

func (w *Worker) publishEvent(ctx context.Context, job *domain.Job, result *domain.Result) {
	if w.publisher == nil {
		return
	}

	event := &domain.JobEvent{
		JobID:      job.ID,
		UserID:     job.UserID,
		ChatID:     job.ChatID,
		Status:     result.Status,
		Provider:   result.Provider,
		RetryCount: result.RetryCount,
		FinishedAt: time.Now().UTC(),
	}
	if result.Err != nil {
		event.Error = truncateRunes(result.Err.Error(), domain.ErrorExcerptLength)
	}

	if err := w.publisher.PublishJobEvent(ctx, event); err != nil {
		w.logger.Warn("Failed to publish job event",
			slog.Int64("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
