package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/editor-bot/internal/worker/domain"
)

// MessagePublisher sends a raw message with a routing key
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// BrokerEventPublisher encodes job events as JSON and routes them as
// "<prefix>.<status>" so consumers can bind to outcomes they care about.
type BrokerEventPublisher struct {
	broker MessagePublisher
	prefix string
}

func NewBrokerEventPublisher(broker MessagePublisher, prefix string) *BrokerEventPublisher {
	if prefix == "" {
		prefix = "job"
	}
	return &BrokerEventPublisher{broker: broker, prefix: prefix}
}

// PublishJobEvent implements EventPublisher
func (p *BrokerEventPublisher) PublishJobEvent(ctx context.Context, event *domain.JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}
	return p.broker.Publish(ctx, p.prefix+"."+event.Status, body, "application/json")
}
