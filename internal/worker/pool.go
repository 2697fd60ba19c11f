package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/editor-bot/internal/observability"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned successfully",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop blocks on the queue and runs each job to completion. A nil job is the stop sentinel.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for job := range w.jobsChan {
		if job == nil {
			w.logger.Debug("Worker goroutine stopping - sentinel received",
				slog.String("worker_name", workerName),
			)
			return
		}

		observability.StartProcessingJob(len(w.jobsChan))
		w.logger.Info("Worker received job",
			slog.String("worker_name", workerName),
			slog.Int64("job_id", job.ID),
			slog.String("provider", job.Provider),
		)

		result := w.processJob(ctx, job)

		if result.Err != nil {
			observability.FailJob()
			w.logger.Warn("Job failed",
				slog.String("worker_name", workerName),
				slog.Int64("job_id", job.ID),
				slog.String("error", result.Err.Error()),
			)
		} else {
			observability.CompleteJob(result.Provider)
			w.logger.Info("Job completed successfully",
				slog.String("worker_name", workerName),
				slog.Int64("job_id", job.ID),
				slog.String("provider", result.Provider),
				slog.Int("retry_count", result.RetryCount),
			)
		}

		w.publishEvent(ctx, job, result)
	}
}
