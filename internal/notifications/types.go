package notifications

import (
	"context"
	"time"
)

// Channel identifies the delivery mechanism for an outbound notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Job describes a single outbound notification to deliver.
type Job struct {
	ID         string            `json:"id"`
	Channel    Channel           `json:"channel"`
	Template   string            `json:"template"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body"`
	Variables  map[string]string `json:"variables,omitempty"`
	EnqueuedAt time.Time         `json:"enqueuedAt"`
}

// Sender delivers notification jobs to a downstream transport.
type Sender interface {
	Send(ctx context.Context, job Job) error
}

// SenderFunc adapts ordinary functions to Sender.
type SenderFunc func(ctx context.Context, job Job) error

// Send invokes the wrapped function.
func (f SenderFunc) Send(ctx context.Context, job Job) error {
	return f(ctx, job)
}
