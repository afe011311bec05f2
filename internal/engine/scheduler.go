package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sellerops/amazon-connector/internal/notify"
	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

const defaultStaleAfter = 2 * time.Hour

// SchedulerConfig describes what runs when. A zero interval disables that
// job family.
type SchedulerConfig struct {
	Marketplaces      []string
	FetchInterval     time.Duration
	InventoryInterval time.Duration

	// FetchLookback is the date window of each scheduled fetch, ending now.
	FetchLookback time.Duration

	// StaleAfter marks job runs still open after this long as failed on
	// startup.
	StaleAfter time.Duration
}

// Scheduler runs periodic fetch and inventory jobs. Overlapping runs of the
// same job are skipped via job-run rows, so a slow fetch never stacks.
type Scheduler struct {
	cron     *cron.Cron
	engine   *Engine
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger

	lookback   time.Duration
	staleAfter time.Duration

	nowFunc func() time.Time
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithNotifier sets the alert backend for failed scheduled runs.
func WithNotifier(n notify.Notifier) SchedulerOption {
	return func(s *Scheduler) {
		s.notifier = n
	}
}

// WithSchedulerNowFunc overrides the time source for testing.
func WithSchedulerNowFunc(f func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.nowFunc = f
	}
}

// NewScheduler creates a Scheduler that runs engine pipelines on a schedule.
func NewScheduler(
	eng *Engine,
	st store.Store,
	cfg SchedulerConfig,
	log *slog.Logger,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	if cfg.FetchLookback <= 0 {
		cfg.FetchLookback = 24 * time.Hour
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}

	s := &Scheduler{
		cron:       cron.New(),
		engine:     eng,
		store:      st,
		notifier:   notify.NewNoOpNotifier(log),
		log:        log,
		lookback:   cfg.FetchLookback,
		staleAfter: cfg.StaleAfter,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, marketplaceID := range cfg.Marketplaces {
		mp := marketplaceID

		if cfg.FetchInterval > 0 {
			job := "fetch:" + mp
			_, err := s.cron.AddFunc("@every "+cfg.FetchInterval.String(), func() {
				s.runGuarded(job, func(ctx context.Context) error {
					to := s.nowFunc().UTC()
					_, err := s.engine.RunFetch(ctx, mp, to.Add(-s.lookback), to, "scheduled")
					return err
				})
			})
			if err != nil {
				return nil, fmt.Errorf("scheduling %s: %w", job, err)
			}
		}

		if cfg.InventoryInterval > 0 {
			job := "inventory:" + mp
			_, err := s.cron.AddFunc("@every "+cfg.InventoryInterval.String(), func() {
				s.runGuarded(job, func(ctx context.Context) error {
					_, err := s.engine.RunInventory(ctx, mp, "scheduled")
					return err
				})
			})
			if err != nil {
				return nil, fmt.Errorf("scheduling %s: %w", job, err)
			}
		}
	}

	return s, nil
}

// Start recovers stale job runs and begins running scheduled tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	recovered, err := s.store.RecoverStaleJobRuns(ctx, s.staleAfter)
	if err != nil {
		return fmt.Errorf("recovering stale job runs: %w", err)
	}
	if recovered > 0 {
		s.log.Warn("stale job runs recovered", "count", recovered)
	}

	s.log.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// runGuarded executes one job under a job-run row. A run already open for
// the same job name means the previous tick is still going, so this tick
// is skipped.
func (s *Scheduler) runGuarded(jobName string, fn func(context.Context) error) {
	ctx := context.Background()

	running, err := s.store.HasRunningJob(ctx, jobName)
	if err != nil {
		s.log.Error("checking running job failed", "job", jobName, "error", err)
		return
	}
	if running {
		s.log.Warn("previous run still in progress, skipping", "job", jobName)
		return
	}

	runID, err := s.store.InsertJobRun(ctx, jobName)
	if err != nil {
		s.log.Error("recording job run failed", "job", jobName, "error", err)
		return
	}

	s.log.Info("scheduled job starting", "job", jobName, "run_id", runID)
	started := s.nowFunc()

	status := domain.JobSucceeded
	errText := ""
	if err := fn(ctx); err != nil {
		status = domain.JobFailed
		errText = err.Error()
		s.log.Error("scheduled job failed", "job", jobName, "error", err)

		if notifyErr := s.notifier.JobFailed(ctx, notify.FailurePayload{
			JobName:       jobName,
			MarketplaceID: jobMarketplace(jobName),
			Error:         errText,
			StartedAt:     started,
			Duration:      s.nowFunc().Sub(started),
		}); notifyErr != nil {
			s.log.Error("sending failure alert failed", "job", jobName, "error", notifyErr)
		}
	}

	if err := s.store.CompleteJobRun(ctx, runID, status, errText); err != nil {
		s.log.Error("completing job run failed", "job", jobName, "run_id", runID, "error", err)
	}
}

// jobMarketplace extracts the marketplace ID from a "family:marketplace"
// job name.
func jobMarketplace(jobName string) string {
	if i := strings.IndexByte(jobName, ':'); i >= 0 {
		return jobName[i+1:]
	}
	return ""
}
