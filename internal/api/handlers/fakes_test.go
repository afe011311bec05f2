package handlers_test

import (
	"context"
	"time"

	"github.com/sellerops/amazon-connector/internal/engine"
	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// fakeStore is a hand-written store.Store with scriptable results.
type fakeStore struct {
	activities []domain.Activity
	activity   *domain.Activity
	stats      *domain.ActivityStats
	jobRuns    []domain.JobRun
	latestRuns []domain.JobRun
	err        error
	pingErr    error

	gotQuery   *store.ActivityQuery
	gotJobName string
	gotLimit   int
	gotSince   time.Time
}

func (f *fakeStore) CreateActivity(context.Context, *domain.Activity) error { return f.err }

func (f *fakeStore) GetActivity(_ context.Context, _ string) (*domain.Activity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activity, nil
}

func (f *fakeStore) ListActivities(
	_ context.Context,
	q *store.ActivityQuery,
) ([]domain.Activity, int, error) {
	f.gotQuery = q
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.activities, len(f.activities), nil
}

func (f *fakeStore) CompleteActivity(context.Context, string, store.ActivityCompletion) error {
	return f.err
}

func (f *fakeStore) ActivityStats(_ context.Context, since time.Time) (*domain.ActivityStats, error) {
	f.gotSince = since
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func (f *fakeStore) InsertJobRun(context.Context, string) (string, error) { return "", f.err }

func (f *fakeStore) CompleteJobRun(context.Context, string, string, string) error { return f.err }

func (f *fakeStore) ListJobRuns(
	_ context.Context,
	jobName string,
	limit int,
) ([]domain.JobRun, error) {
	f.gotJobName = jobName
	f.gotLimit = limit
	return f.jobRuns, f.err
}

func (f *fakeStore) ListLatestJobRuns(context.Context) ([]domain.JobRun, error) {
	return f.latestRuns, f.err
}

func (f *fakeStore) HasRunningJob(context.Context, string) (bool, error) { return false, f.err }

func (f *fakeStore) RecoverStaleJobRuns(context.Context, time.Duration) (int, error) {
	return 0, f.err
}

func (f *fakeStore) Migrate(context.Context) error { return f.err }
func (f *fakeStore) Ping(context.Context) error    { return f.pingErr }

// fakePipeline is a scriptable handlers.Pipeline.
type fakePipeline struct {
	outcome *engine.FetchOutcome
	err     error

	gotMarketplace string
	gotFrom        time.Time
	gotTo          time.Time
	gotAction      string
}

func (f *fakePipeline) RunFetch(
	_ context.Context,
	marketplaceID string,
	from, to time.Time,
	action string,
) (*engine.FetchOutcome, error) {
	f.gotMarketplace = marketplaceID
	f.gotFrom = from
	f.gotTo = to
	f.gotAction = action
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *fakePipeline) RunInventory(
	_ context.Context,
	marketplaceID string,
	action string,
) (*engine.FetchOutcome, error) {
	f.gotMarketplace = marketplaceID
	f.gotAction = action
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

// fakeConnector is a scriptable handlers.Connector.
type fakeConnector struct {
	cred       *domain.Credential
	connectErr error
	statusErr  error
	refreshErr error

	gotCred *domain.Credential
}

func (f *fakeConnector) Connect(_ context.Context, cred *domain.Credential) error {
	f.gotCred = cred
	if f.connectErr != nil {
		return f.connectErr
	}
	cred.ConnectedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return nil
}

func (f *fakeConnector) Status() (*domain.Credential, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.cred, nil
}

func (f *fakeConnector) ForceRefresh(context.Context) (string, error) {
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return "fresh-token", nil
}
