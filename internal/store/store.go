// Package store defines the application datastore abstraction for
// amazon-connector. Business logic depends on the Store interface, never on
// concrete implementations. This enables mock-based testing without a
// running database.
package store

import (
	"context"
	"time"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// ActivityQuery defines optional filters for activity listings.
type ActivityQuery struct {
	MarketplaceID *string
	Type          *string
	Status        *string
	Since         *time.Time
	Limit         int // default 50
	Offset        int
	OrderBy       string // "created_at", "duration"
}

// Store defines all data access operations for amazon-connector.
type Store interface {
	// Activities
	CreateActivity(ctx context.Context, a *domain.Activity) error
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)
	ListActivities(ctx context.Context, opts *ActivityQuery) ([]domain.Activity, int, error)
	CompleteActivity(ctx context.Context, id string, update ActivityCompletion) error
	ActivityStats(ctx context.Context, since time.Time) (*domain.ActivityStats, error)

	// Scheduler
	InsertJobRun(ctx context.Context, jobName string) (id string, err error)
	CompleteJobRun(ctx context.Context, id string, status string, errText string) error
	ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error)
	ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error)
	HasRunningJob(ctx context.Context, jobName string) (bool, error)
	RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}

// ActivityCompletion carries the terminal fields of an activity record.
type ActivityCompletion struct {
	Status        domain.ActivityStatus
	OrdersFetched int
	ItemsFetched  int
	Duration      time.Duration
	Detail        string
	ErrorMessage  string
	DatabaseSaved bool
}
