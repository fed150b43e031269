package notifications

import (
	"context"
)

// LoggingSender records notification deliveries through the service logger
// instead of a real provider. Used in local environments and as the default
// transport when no provider credentials are configured.
type LoggingSender struct {
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewLoggingSender constructs a LoggingSender. A nil logger disables output.
func NewLoggingSender(logger func(ctx context.Context, event string, fields map[string]any)) *LoggingSender {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &LoggingSender{logger: logger}
}

// Send logs the job instead of delivering it.
func (s *LoggingSender) Send(ctx context.Context, job Job) error {
	s.logger(ctx, "notification.delivered", map[string]any{
		"job_id":    job.ID,
		"channel":   string(job.Channel),
		"template":  job.Template,
		"recipient": job.Recipient,
	})
	return nil
}
