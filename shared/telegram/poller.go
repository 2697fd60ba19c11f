package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// UpdateHandler processes one update
type UpdateHandler func(ctx context.Context, update Update)

// Updater is the subset of Client the poller needs
type Updater interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller drives getUpdates long polling
type Poller struct {
	client  Updater
	logger  *slog.Logger
	timeout time.Duration
	backoff *backoff.ExponentialBackOff
}

// NewPoller creates a poller. Failed polls back off exponentially up to one minute.
func NewPoller(client Updater, timeout time.Duration, logger *slog.Logger) *Poller {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	expo.MaxInterval = time.Minute
	expo.MaxElapsedTime = 0

	return &Poller{
		client:  client,
		logger:  logger,
		timeout: timeout,
		backoff: expo,
	}
}

// WithBackOff replaces the retry policy
func (p *Poller) WithBackOff(b *backoff.ExponentialBackOff) *Poller {
	p.backoff = b
	return p
}

// Run polls until ctx is canceled, calling handle for every update in order
func (p *Poller) Run(ctx context.Context, handle UpdateHandler) error {
	var offset int64
	p.backoff.Reset()

	p.logger.Info("Starting long polling", slog.Duration("timeout", p.timeout))

	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			wait := p.backoff.NextBackOff()
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > wait {
				wait = apiErr.RetryAfter
			}

			p.logger.Warn("Polling failed, backing off",
				slog.String("error", err.Error()),
				slog.Duration("backoff", wait),
			)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}

		p.backoff.Reset()

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			handle(ctx, update)
		}
	}
}
