// Package notify defines the notification interface and implementations
// for operational alert delivery.
package notify

import (
	"context"
	"time"
)

// FailurePayload contains the data for a failed scheduled-run alert.
type FailurePayload struct {
	JobName       string
	MarketplaceID string
	Error         string
	StartedAt     time.Time
	Duration      time.Duration
}

// Notifier defines the interface for sending operational alerts.
type Notifier interface {
	JobFailed(ctx context.Context, alert FailurePayload) error
}
