package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cuongbtq/editor-bot/internal/api/domain"
)

// Store is the persistence needed by Service
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	InsertSettingIfAbsent(ctx context.Context, key, value string) error
}

// Service reads and writes runtime settings. Reads never fail: a missing,
// unreadable or corrupt value falls back to the default.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new settings service
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Seed writes env-provided values for keys that have no row yet
func (s *Service) Seed(ctx context.Context, getenv func(string) string) error {
	for _, spec := range domain.Settings {
		value := spec.Default
		if raw := getenv(spec.EnvVar); raw != "" {
			normalized, err := domain.NormalizeSetting(spec.Key, raw)
			if err != nil {
				s.logger.Warn("Ignoring invalid setting from environment",
					slog.String("env", spec.EnvVar),
					slog.String("error", err.Error()),
				)
			} else {
				value = normalized
			}
		}

		if err := s.store.InsertSettingIfAbsent(ctx, spec.Key, value); err != nil {
			return fmt.Errorf("failed to seed %s: %w", spec.Key, err)
		}
	}
	return nil
}

// Get returns the current value of key, or its default
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	spec, ok := domain.LookupSetting(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownSetting, key)
	}
	return s.read(ctx, spec), nil
}

// Set validates and stores value under key, returning the stored form
func (s *Service) Set(ctx context.Context, key, value string) (string, error) {
	normalized, err := domain.NormalizeSetting(key, value)
	if err != nil {
		return "", err
	}
	if err := s.store.SetSetting(ctx, key, normalized); err != nil {
		return "", err
	}

	s.logger.Info("Setting updated",
		slog.String("key", key),
		slog.String("value", normalized),
	)
	return normalized, nil
}

// All returns every setting in display order
func (s *Service) All(ctx context.Context) []KeyValue {
	out := make([]KeyValue, 0, len(domain.Settings))
	for _, spec := range domain.Settings {
		out = append(out, KeyValue{Key: spec.Key, Value: s.read(ctx, spec)})
	}
	return out
}

// KeyValue is one setting entry
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Service) RateLimitSeconds(ctx context.Context) int {
	return s.intSetting(ctx, domain.SettingRateLimitSeconds, domain.DefaultRateLimitSeconds)
}

func (s *Service) MaxWords(ctx context.Context) int {
	return s.intSetting(ctx, domain.SettingMaxWords, domain.DefaultMaxWords)
}

func (s *Service) AllowedLanguages(ctx context.Context) []string {
	spec, _ := domain.LookupSetting(domain.SettingAllowedLanguages)
	langs := domain.SplitLanguages(s.read(ctx, spec))
	if len(langs) == 0 {
		return domain.SplitLanguages(domain.DefaultAllowedLanguages)
	}
	return langs
}

func (s *Service) DefaultProvider(ctx context.Context) string {
	spec, _ := domain.LookupSetting(domain.SettingDefaultProvider)
	v, err := domain.NormalizeSetting(spec.Key, s.read(ctx, spec))
	if err != nil {
		return domain.DefaultProvider
	}
	return v
}

func (s *Service) intSetting(ctx context.Context, key string, def int) int {
	spec, _ := domain.LookupSetting(key)
	n, err := strconv.Atoi(s.read(ctx, spec))
	if err != nil {
		return def
	}
	return n
}

func (s *Service) read(ctx context.Context, spec domain.SettingSpec) string {
	value, ok, err := s.store.GetSetting(ctx, spec.Key)
	if err != nil {
		s.logger.Warn("Failed to read setting, using default",
			slog.String("key", spec.Key),
			slog.String("error", err.Error()),
		)
		return spec.Default
	}
	if !ok {
		return spec.Default
	}
	return value
}
