package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cuongbtq/editor-bot/internal/worker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	key         string
	body        []byte
	contentType string
	err         error
}

func (f *fakeBroker) Publish(_ context.Context, key string, body []byte, contentType string) error {
	f.key, f.body, f.contentType = key, body, contentType
	return f.err
}

func TestBrokerEventPublisher(t *testing.T) {
	broker := &fakeBroker{}
	p := NewBrokerEventPublisher(broker, "")
	userID := int64(77)

	err := p.PublishJobEvent(context.Background(), &domain.JobEvent{
		JobID:      5,
		UserID:     &userID,
		ChatID:     77,
		Status:     domain.JobStatusDone,
		Provider:   "gemini",
		RetryCount: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "job.done", broker.key)
	assert.Equal(t, "application/json", broker.contentType)

	var got map[string]any
	require.NoError(t, json.Unmarshal(broker.body, &got))
	assert.Equal(t, float64(5), got["job_id"])
	assert.Equal(t, "gemini", got["provider"])
	assert.Equal(t, float64(1), got["retry_count"])
	assert.NotContains(t, got, "error")
}

func TestBrokerEventPublisher_PropagatesError(t *testing.T) {
	p := NewBrokerEventPublisher(&fakeBroker{err: errors.New("broker down")}, "editor")

	err := p.PublishJobEvent(context.Background(), &domain.JobEvent{Status: domain.JobStatusError})
	assert.EqualError(t, err, "broker down")
}
