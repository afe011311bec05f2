package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

const defaultPoolSize = 10

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// TODO(test): PostgresStore methods require live Postgres, tested via integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(
	ctx context.Context,
	connString string,
	opts ...PostgresOption,
) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateActivity inserts a new in-progress activity record, assigning its
// ID when the caller left it empty.
func (s *PostgresStore) CreateActivity(ctx context.Context, a *domain.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.ActivityInProgress
	}

	args := pgx.NamedArgs{
		"id":             a.ID,
		"marketplace_id": a.MarketplaceID,
		"activity_type":  string(a.Type),
		"date_from":      a.DateFrom,
		"date_to":        a.DateTo,
		"action":         a.Action,
		"status":         string(a.Status),
	}

	err := s.pool.QueryRow(ctx, queryCreateActivity, args).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating activity: %w", err)
	}
	return nil
}

// GetActivity retrieves an activity by ID.
func (s *PostgresStore) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	a := &domain.Activity{}
	err := scanActivity(s.pool.QueryRow(ctx, queryGetActivity, id), a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListActivities queries activities with optional filters, returning
// results and total count.
func (s *PostgresStore) ListActivities(
	ctx context.Context,
	opts *ActivityQuery,
) ([]domain.Activity, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting activities: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := scanActivity(rows, &a); err != nil {
			return nil, 0, err
		}
		activities = append(activities, a)
	}
	return activities, total, rows.Err()
}

// CompleteActivity writes an activity's terminal state.
func (s *PostgresStore) CompleteActivity(ctx context.Context, id string, update ActivityCompletion) error {
	args := pgx.NamedArgs{
		"id":               id,
		"status":           string(update.Status),
		"orders_fetched":   update.OrdersFetched,
		"items_fetched":    update.ItemsFetched,
		"duration_seconds": update.Duration.Seconds(),
		"detail":           update.Detail,
		"error_message":    update.ErrorMessage,
		"database_saved":   update.DatabaseSaved,
	}

	tag, err := s.pool.Exec(ctx, queryCompleteActivity, args)
	if err != nil {
		return fmt.Errorf("completing activity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("completing activity %s: %w", id, ErrNotFound)
	}
	return nil
}

// ActivityStats aggregates activity records created since the given time.
func (s *PostgresStore) ActivityStats(ctx context.Context, since time.Time) (*domain.ActivityStats, error) {
	stats := &domain.ActivityStats{ByMarketplace: map[string]int{}}

	err := s.pool.QueryRow(ctx, queryActivityStats, since).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.InProgress,
		&stats.OrdersFetched, &stats.ItemsFetched,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating activities: %w", err)
	}

	rows, err := s.pool.Query(ctx, queryActivityStatsByMarketplace, since)
	if err != nil {
		return nil, fmt.Errorf("aggregating activities by marketplace: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketplaceID string
		var count int
		if err := rows.Scan(&marketplaceID, &count); err != nil {
			return nil, err
		}
		stats.ByMarketplace[marketplaceID] = count
	}
	return stats, rows.Err()
}

// InsertJobRun records the start of a scheduled job execution.
func (s *PostgresStore) InsertJobRun(ctx context.Context, jobName string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, queryInsertJobRun, uuid.NewString(), jobName).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("inserting job run for %s: %w", jobName, err)
	}
	return id, nil
}

// CompleteJobRun records a job execution's terminal status.
func (s *PostgresStore) CompleteJobRun(ctx context.Context, id string, status string, errText string) error {
	_, err := s.pool.Exec(ctx, queryCompleteJobRun, id, status, errText)
	if err != nil {
		return fmt.Errorf("completing job run %s: %w", id, err)
	}
	return nil
}

// ListJobRuns returns recent runs of one job, newest first.
func (s *PostgresStore) ListJobRuns(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.queryJobRuns(ctx, queryListJobRuns, jobName, limit)
}

// ListLatestJobRuns returns the most recent run of every job.
func (s *PostgresStore) ListLatestJobRuns(ctx context.Context) ([]domain.JobRun, error) {
	return s.queryJobRuns(ctx, queryListLatestJobRuns)
}

// HasRunningJob reports whether a run of the named job is still open.
func (s *PostgresStore) HasRunningJob(ctx context.Context, jobName string) (bool, error) {
	var running bool
	err := s.pool.QueryRow(ctx, queryHasRunningJob, jobName).Scan(&running)
	if err != nil {
		return false, fmt.Errorf("checking running job %s: %w", jobName, err)
	}
	return running, nil
}

// RecoverStaleJobRuns fails any run still marked running after olderThan,
// so a crashed process never blocks its job forever.
func (s *PostgresStore) RecoverStaleJobRuns(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := s.pool.Exec(ctx, queryRecoverStaleJobRuns, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("recovering stale job runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) queryJobRuns(ctx context.Context, sql string, args ...any) ([]domain.JobRun, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying job runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		if err := rows.Scan(&r.ID, &r.JobName, &r.StartedAt, &r.CompletedAt, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner, a *domain.Activity) error {
	var activityType, status string
	err := row.Scan(
		&a.ID, &a.MarketplaceID, &activityType, &a.DateFrom, &a.DateTo,
		&a.Action, &status, &a.OrdersFetched, &a.ItemsFetched, &a.Duration,
		&a.Detail, &a.ErrorMessage, &a.DatabaseSaved,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("scanning activity: %w", err)
	}
	a.Type = domain.ActivityType(activityType)
	a.Status = domain.ActivityStatus(status)
	return nil
}
