package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/editor-bot/internal/observability"
)

// Supported provider names. Exactly two exist; each is the other's fallback.
const (
	OpenAI = "openai"
	Gemini = "gemini"
)

const (
	DefaultCooldown    = 600 * time.Second
	DefaultCallTimeout = 60 * time.Second
)

// Valid reports whether name is a supported provider
func Valid(name string) bool {
	return name == OpenAI || name == Gemini
}

// Fallback returns the other supported provider
func Fallback(name string) string {
	if name == OpenAI {
		return Gemini
	}
	return OpenAI
}

// Client performs one editing call against a provider with a specific credential
type Client interface {
	Complete(ctx context.Context, key, instruction, text string) (string, error)
}

// AdapterConfig holds adapter dependencies
type AdapterConfig struct {
	Name        string
	Client      Client
	Rotator     *Rotator
	CallTimeout time.Duration
	Cooldown    time.Duration
	Logger      *slog.Logger
}

// Adapter runs an editing request against one provider, rotating credentials on quota failures
type Adapter struct {
	name        string
	client      Client
	rotator     *Rotator
	callTimeout time.Duration
	cooldown    time.Duration
	logger      *slog.Logger
}

// NewAdapter creates a new provider adapter
func NewAdapter(cfg AdapterConfig) *Adapter {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Adapter{
		name:        cfg.Name,
		client:      cfg.Client,
		rotator:     cfg.Rotator,
		callTimeout: cfg.CallTimeout,
		cooldown:    cfg.Cooldown,
		logger:      cfg.Logger.With(slog.String("provider", cfg.Name)),
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// Rotator exposes the adapter's credential rotator
func (a *Adapter) Rotator() *Rotator {
	return a.rotator
}

// Edit tries up to Count() distinct credentials. It returns on the first success, on the first
// non-quota error (as *FatalError), or with *ExhaustedError once every credential hit a quota.
func (a *Adapter) Edit(ctx context.Context, instruction, text string) (string, error) {
	total := a.rotator.Count()
	if total == 0 {
		a.logger.Warn("No credentials configured")
		return "", &ExhaustedError{Provider: a.name, Last: ErrNoCredentials}
	}

	tried := make(map[string]struct{}, total)
	var lastErr error

	for attempt := 1; attempt <= total; attempt++ {
		key := a.rotator.Next()
		if key == "" {
			break
		}
		if _, seen := tried[key]; seen {
			continue
		}
		tried[key] = struct{}{}

		a.logger.Debug("Calling provider",
			slog.Int("attempt", attempt),
			slog.String("key", maskKey(key)),
		)

		out, err := a.call(ctx, key, instruction, text)
		if err == nil {
			return out, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.logger.Error("Provider call timed out",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return "", NewFatalError(a.name, fmt.Errorf("call timed out after %s: %w", a.callTimeout, err))
		}

		if errors.Is(err, ErrQuotaExceeded) || IsQuotaMessage(err.Error()) {
			a.logger.Warn("Credential hit quota, trying next one",
				slog.Int("attempt", attempt),
				slog.String("key", maskKey(key)),
				slog.Duration("cooldown", a.cooldown),
				slog.String("error", err.Error()),
			)
			a.rotator.MarkCooldown(key, a.cooldown)
			observability.CooldownCredential(a.name)
			lastErr = err
			continue
		}

		a.logger.Error("Provider call failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return "", NewFatalError(a.name, err)
	}

	a.logger.Error("All credentials exhausted",
		slog.Int("tried", len(tried)),
		slog.Int("configured", total),
	)
	return "", &ExhaustedError{Provider: a.name, Tried: len(tried), Last: lastErr}
}

func (a *Adapter) call(ctx context.Context, key, instruction, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	start := time.Now()
	out, err := a.client.Complete(callCtx, key, instruction, text)

	outcome := "success"
	switch {
	case err == nil:
	case callCtx.Err() != nil:
		outcome = "timeout"
		if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %v", callCtx.Err(), err)
		}
	case IsQuotaMessage(err.Error()):
		outcome = "quota"
	default:
		outcome = "error"
	}
	observability.ObserveProviderCall(a.name, outcome, time.Since(start))

	return out, err
}

// maskKey keeps only the last four characters of a credential for logs
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
