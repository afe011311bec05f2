package notify

import (
	"context"
	"log/slog"
)

// NoOpNotifier implements Notifier by logging discarded alerts. It is used
// when Discord (or another notification backend) is not configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards alerts with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// JobFailed logs and discards a failure alert.
func (n *NoOpNotifier) JobFailed(_ context.Context, alert FailurePayload) error {
	n.log.Debug("notification discarded (no backend configured)",
		"job", alert.JobName,
		"error", alert.Error,
	)
	return nil
}
