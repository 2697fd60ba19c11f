package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	values  map[string]string
	readErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (m *memoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return "", false, m.readErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryStore) InsertSettingIfAbsent(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		m.values[key] = value
	}
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, logger.NewNop().Logger)
}

func TestService_Defaults(t *testing.T) {
	s := newTestService(newMemoryStore())
	ctx := context.Background()

	assert.Equal(t, 30, s.RateLimitSeconds(ctx))
	assert.Equal(t, 5000, s.MaxWords(ctx))
	assert.Equal(t, []string{"fa", "en", "ar"}, s.AllowedLanguages(ctx))
	assert.Equal(t, "openai", s.DefaultProvider(ctx))
}

func TestService_ReadErrorFallsBackToDefault(t *testing.T) {
	store := newMemoryStore()
	store.values[domain.SettingMaxWords] = "10"
	store.readErr = errors.New("db down")

	assert.Equal(t, 5000, newTestService(store).MaxWords(context.Background()))
}

func TestService_CorruptValueFallsBackToDefault(t *testing.T) {
	store := newMemoryStore()
	store.values[domain.SettingRateLimitSeconds] = "soon"
	store.values[domain.SettingDefaultProvider] = "claude"
	s := newTestService(store)

	assert.Equal(t, 30, s.RateLimitSeconds(context.Background()))
	assert.Equal(t, "openai", s.DefaultProvider(context.Background()))
}

func TestService_Seed(t *testing.T) {
	store := newMemoryStore()
	store.values[domain.SettingMaxWords] = "777"

	env := map[string]string{
		"RATE_LIMIT_SECONDS": "5",
		"MAX_WORDS":          "100",
		"DEFAULT_PROVIDER":   "not-a-provider",
	}
	s := newTestService(store)
	require.NoError(t, s.Seed(context.Background(), func(k string) string { return env[k] }))

	ctx := context.Background()
	assert.Equal(t, 5, s.RateLimitSeconds(ctx))
	assert.Equal(t, 777, s.MaxWords(ctx), "existing values are never overwritten")
	assert.Equal(t, "openai", s.DefaultProvider(ctx), "invalid env values fall back to the default")
	assert.Equal(t, "fa,en,ar", store.values[domain.SettingAllowedLanguages])
}

func TestService_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    string
		wantErr error
	}{
		{name: "rate limit", key: domain.SettingRateLimitSeconds, value: " 10 ", want: "10"},
		{name: "zero rate limit allowed", key: domain.SettingRateLimitSeconds, value: "0", want: "0"},
		{name: "negative rate limit", key: domain.SettingRateLimitSeconds, value: "-1", wantErr: domain.ErrInvalidSettingValue},
		{name: "max words", key: domain.SettingMaxWords, value: "250", want: "250"},
		{name: "zero max words", key: domain.SettingMaxWords, value: "0", wantErr: domain.ErrInvalidSettingValue},
		{name: "languages normalized", key: domain.SettingAllowedLanguages, value: "FA, en,,fa", want: "fa,en"},
		{name: "empty languages", key: domain.SettingAllowedLanguages, value: " , ", wantErr: domain.ErrInvalidSettingValue},
		{name: "provider", key: domain.SettingDefaultProvider, value: "Gemini", want: "gemini"},
		{name: "bad provider", key: domain.SettingDefaultProvider, value: "claude", wantErr: domain.ErrInvalidSettingValue},
		{name: "unknown key", key: "channel_id", value: "1", wantErr: domain.ErrUnknownSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			s := newTestService(store)

			got, err := s.Set(context.Background(), tt.key, tt.value)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, store.values)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, store.values[tt.key])
		})
	}
}

func TestService_All(t *testing.T) {
	store := newMemoryStore()
	store.values[domain.SettingDefaultProvider] = "gemini"

	all := newTestService(store).All(context.Background())

	require.Len(t, all, len(domain.Settings))
	assert.Equal(t, domain.SettingRateLimitSeconds, all[0].Key)
	assert.Equal(t, KeyValue{Key: domain.SettingDefaultProvider, Value: "gemini"}, all[3])
}
