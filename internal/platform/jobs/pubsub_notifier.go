package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/yemalin/api/internal/notifications"
)

// PubSubNotifier publishes notification jobs to a Pub/Sub topic for delivery workers.
type PubSubNotifier struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubNotifier constructs a Pub/Sub backed notification sender.
func NewPubSubNotifier(topic *pubsub.Topic) (*PubSubNotifier, error) {
	if topic == nil {
		return nil, errors.New("pubsub notifier: topic is required")
	}
	return &PubSubNotifier{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Send enqueues the notification job on the configured topic.
func (p *PubSubNotifier) Send(ctx context.Context, job notifications.Job) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub notifier: not initialised")
	}

	data, err := p.marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "jobId", job.ID)
	setAttr(attrs, "channel", string(job.Channel))
	setAttr(attrs, "template", job.Template)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish notification job: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
