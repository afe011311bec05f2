package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/cache"
	"github.com/sellerops/amazon-connector/internal/fetch"
	"github.com/sellerops/amazon-connector/internal/process"
	"github.com/sellerops/amazon-connector/internal/sink"
	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is a hand-written in-memory store.Store.
type fakeStore struct {
	mu          sync.Mutex
	activities  map[string]*domain.Activity
	completions map[string]store.ActivityCompletion
	createErr   error

	jobRuns        map[string]string // run ID -> job name
	jobStatuses    map[string]string // run ID -> final status
	jobErrors      map[string]string
	running        map[string]bool
	staleRecovered int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		activities:  map[string]*domain.Activity{},
		completions: map[string]store.ActivityCompletion{},
		jobRuns:     map[string]string{},
		jobStatuses: map[string]string{},
		jobErrors:   map[string]string{},
		running:     map[string]bool{},
	}
}

func (f *fakeStore) CreateActivity(_ context.Context, a *domain.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if a.ID == "" {
		a.ID = "act-1"
	}
	f.activities[a.ID] = a
	return nil
}

func (f *fakeStore) GetActivity(_ context.Context, id string) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListActivities(context.Context, *store.ActivityQuery) ([]domain.Activity, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) CompleteActivity(_ context.Context, id string, update store.ActivityCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions[id] = update
	return nil
}

func (f *fakeStore) ActivityStats(context.Context, time.Time) (*domain.ActivityStats, error) {
	return &domain.ActivityStats{}, nil
}

func (f *fakeStore) InsertJobRun(_ context.Context, jobName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "run-" + jobName
	f.jobRuns[id] = jobName
	return id, nil
}

func (f *fakeStore) CompleteJobRun(_ context.Context, id string, status string, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatuses[id] = status
	f.jobErrors[id] = errText
	return nil
}

func (f *fakeStore) ListJobRuns(context.Context, string, int) ([]domain.JobRun, error) {
	return nil, nil
}

func (f *fakeStore) ListLatestJobRuns(context.Context) ([]domain.JobRun, error) {
	return nil, nil
}

func (f *fakeStore) HasRunningJob(_ context.Context, jobName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[jobName], nil
}

func (f *fakeStore) RecoverStaleJobRuns(context.Context, time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staleRecovered++
	return 2, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error    { return nil }

func (f *fakeStore) completion(t *testing.T, id string) store.ActivityCompletion {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.completions[id]
	require.True(t, ok, "activity %s was never completed", id)
	return c
}

type fakeFetcher struct {
	result  *fetch.Result
	err     error
	lastReq fetch.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeInventory struct {
	rows []domain.InventoryRow
	err  error
}

func (f *fakeInventory) FetchInventory(context.Context, string) ([]domain.InventoryRow, error) {
	return f.rows, f.err
}

type fakeSaver struct {
	report       sink.SaveReport
	gotOrderRows []process.Row
	gotInvRows   []domain.InventoryRow
}

func (f *fakeSaver) SaveOrders(_ context.Context, rows []process.Row) sink.SaveReport {
	f.gotOrderRows = rows
	return f.report
}

func (f *fakeSaver) SaveInventory(_ context.Context, rows []domain.InventoryRow) sink.SaveReport {
	f.gotInvRows = rows
	return f.report
}

func okReport(rows int) sink.SaveReport {
	return sink.SaveReport{Results: []sink.SinkResult{
		{Sink: "warehouse", RowsWritten: rows},
		{Sink: "analytics", RowsWritten: rows},
	}}
}

func failedReport() sink.SaveReport {
	return sink.SaveReport{Results: []sink.SinkResult{
		{Sink: "warehouse", Error: "connection refused"},
		{Sink: "analytics", Error: "connection refused"},
	}}
}

func testOrders(n int) []domain.Order {
	orders := make([]domain.Order, n)
	for i := range orders {
		orders[i] = domain.Order{
			AmazonOrderID: "026-000000-000000" + string(rune('0'+i)),
			SalesChannel:  "Amazon.de",
			Items: []domain.OrderItem{
				{OrderItemID: "item-1", Quantity: 1, Fields: map[string]any{}},
			},
		}
	}
	return orders
}

func newTestEngine(
	st store.Store,
	f Fetcher,
	inv InventoryFetcher,
	s Saver,
) *Engine {
	return NewEngine(
		st, f, inv, process.New(), s, cache.NewMemory(),
		WithLogger(quietLogger()),
	)
}

func TestRunFetch_CompletesActivityAndSaves(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	fetcher := &fakeFetcher{result: &fetch.Result{
		Orders: testOrders(3),
		Summary: domain.FetchSummary{
			MarketplaceID: "A1PA6795UKMFR9",
			OrdersFetched: 3,
			ItemsFetched:  3,
		},
	}}
	saver := &fakeSaver{report: okReport(3)}
	eng := newTestEngine(st, fetcher, &fakeInventory{}, saver)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	outcome, err := eng.RunFetch(context.Background(), "A1PA6795UKMFR9", from, to, "manual")
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.RowCount)
	assert.NotEmpty(t, outcome.CacheKey)
	assert.Len(t, saver.gotOrderRows, 3)
	assert.Equal(t, from, fetcher.lastReq.CreatedAfter)
	assert.Equal(t, to, fetcher.lastReq.CreatedBefore)

	completion := st.completion(t, outcome.ActivityID)
	assert.Equal(t, domain.ActivityCompleted, completion.Status)
	assert.Equal(t, 3, completion.OrdersFetched)
	assert.Equal(t, 3, completion.ItemsFetched)
	assert.True(t, completion.DatabaseSaved)
	assert.Contains(t, completion.Detail, "saved to warehouse, analytics")
}

func TestRunFetch_CachesProcessedRows(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	fetcher := &fakeFetcher{result: &fetch.Result{
		Orders:  testOrders(2),
		Summary: domain.FetchSummary{OrdersFetched: 2, ItemsFetched: 2},
	}}
	c := cache.NewMemory()
	eng := NewEngine(
		st, fetcher, &fakeInventory{}, process.New(),
		&fakeSaver{report: okReport(2)}, c,
		WithLogger(quietLogger()),
	)

	outcome, err := eng.RunFetch(
		context.Background(), "A1PA6795UKMFR9",
		time.Now().Add(-time.Hour), time.Now(), "manual",
	)
	require.NoError(t, err)

	rows, err := c.Get(context.Background(), outcome.CacheKey)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRunFetch_FetchErrorFailsActivity(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	fetcher := &fakeFetcher{err: errors.New("breaker open")}
	eng := newTestEngine(st, fetcher, &fakeInventory{}, &fakeSaver{})

	_, err := eng.RunFetch(
		context.Background(), "A1PA6795UKMFR9",
		time.Now().Add(-time.Hour), time.Now(), "manual",
	)
	require.Error(t, err)

	completion := st.completion(t, "act-1")
	assert.Equal(t, domain.ActivityFailed, completion.Status)
	assert.Contains(t, completion.ErrorMessage, "breaker open")
	assert.False(t, completion.DatabaseSaved)
}

func TestRunFetch_AllSinksFailedFailsActivity(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	fetcher := &fakeFetcher{result: &fetch.Result{
		Orders:  testOrders(1),
		Summary: domain.FetchSummary{OrdersFetched: 1, ItemsFetched: 1},
	}}
	eng := newTestEngine(st, fetcher, &fakeInventory{}, &fakeSaver{report: failedReport()})

	outcome, err := eng.RunFetch(
		context.Background(), "A1PA6795UKMFR9",
		time.Now().Add(-time.Hour), time.Now(), "manual",
	)
	require.NoError(t, err, "a failed save is reported via the activity, not an error")

	completion := st.completion(t, outcome.ActivityID)
	assert.Equal(t, domain.ActivityFailed, completion.Status)
	assert.Contains(t, completion.ErrorMessage, "warehouse: connection refused")
	assert.False(t, completion.DatabaseSaved)
}

func TestRunFetch_NoRowsSkipsSave(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	fetcher := &fakeFetcher{result: &fetch.Result{Summary: domain.FetchSummary{}}}
	saver := &fakeSaver{report: failedReport()}
	eng := newTestEngine(st, fetcher, &fakeInventory{}, saver)

	outcome, err := eng.RunFetch(
		context.Background(), "A1PA6795UKMFR9",
		time.Now().Add(-time.Hour), time.Now(), "manual",
	)
	require.NoError(t, err)

	assert.Nil(t, saver.gotOrderRows)
	assert.Empty(t, outcome.CacheKey)

	completion := st.completion(t, outcome.ActivityID)
	assert.Equal(t, domain.ActivityCompleted, completion.Status)
	assert.False(t, completion.DatabaseSaved)
}

func TestRunInventory_SavesSnapshot(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	inv := &fakeInventory{rows: []domain.InventoryRow{
		{SKU: "SKU-1", Quantity: 4},
		{SKU: "SKU-2", Quantity: 9},
	}}
	saver := &fakeSaver{report: okReport(2)}
	eng := newTestEngine(st, &fakeFetcher{}, inv, saver)

	outcome, err := eng.RunInventory(context.Background(), "A1PA6795UKMFR9", "scheduled")
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.RowCount)
	assert.Len(t, saver.gotInvRows, 2)

	completion := st.completion(t, outcome.ActivityID)
	assert.Equal(t, domain.ActivityCompleted, completion.Status)
	assert.Equal(t, 2, completion.ItemsFetched)
	assert.True(t, completion.DatabaseSaved)

	activity, err := st.GetActivity(context.Background(), outcome.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActivityInventory, activity.Type)
	assert.Equal(t, "scheduled", activity.Action)
}

func TestRunInventory_FetchErrorFailsActivity(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	inv := &fakeInventory{err: errors.New("report timed out")}
	eng := newTestEngine(st, &fakeFetcher{}, inv, &fakeSaver{})

	_, err := eng.RunInventory(context.Background(), "A1PA6795UKMFR9", "manual")
	require.Error(t, err)

	completion := st.completion(t, "act-1")
	assert.Equal(t, domain.ActivityFailed, completion.Status)
	assert.Contains(t, completion.ErrorMessage, "report timed out")
}
