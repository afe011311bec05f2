// Package engine runs the fetch-process-save pipeline and its schedule.
// It records every run as an activity so the dashboard can show what
// happened, when, and whether the downstream databases accepted the rows.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sellerops/amazon-connector/internal/cache"
	"github.com/sellerops/amazon-connector/internal/fetch"
	"github.com/sellerops/amazon-connector/internal/process"
	"github.com/sellerops/amazon-connector/internal/sink"
	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// Fetcher pulls orders and items for one marketplace and date window.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// InventoryFetcher pulls the current FBA inventory snapshot.
type InventoryFetcher interface {
	FetchInventory(ctx context.Context, marketplaceID string) ([]domain.InventoryRow, error)
}

// Saver fans rows out to the configured sinks.
type Saver interface {
	SaveOrders(ctx context.Context, rows []process.Row) sink.SaveReport
	SaveInventory(ctx context.Context, rows []domain.InventoryRow) sink.SaveReport
}

// Engine orchestrates fetching, processing, caching and saving.
type Engine struct {
	store     store.Store
	fetcher   Fetcher
	inventory InventoryFetcher
	processor *process.Processor
	sinks     Saver
	cache     cache.Cache
	log       *slog.Logger

	nowFunc func() time.Time
}

// NewEngine creates a new Engine with injected dependencies.
func NewEngine(
	st store.Store,
	f Fetcher,
	inv InventoryFetcher,
	p *process.Processor,
	sinks Saver,
	c cache.Cache,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		store:     st,
		fetcher:   f,
		inventory: inv,
		processor: p,
		sinks:     sinks,
		cache:     c,
		log:       slog.Default(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithNowFunc sets the clock used for durations and cache keys.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// FetchOutcome is the caller-facing result of one pipeline run.
type FetchOutcome struct {
	ActivityID string              `json:"activity_id"`
	Summary    domain.FetchSummary `json:"summary"`
	RowCount   int                 `json:"row_count"`
	CacheKey   string              `json:"cache_key,omitempty"`
	Save       sink.SaveReport     `json:"save"`
}

// RunFetch executes the full pipeline for one marketplace and date window:
// fetch orders and items, transform to rows, cache the processed set, save
// to every sink, and record the run as an activity. Action is "manual" or
// "scheduled".
func (eng *Engine) RunFetch(
	ctx context.Context,
	marketplaceID string,
	from, to time.Time,
	action string,
) (*FetchOutcome, error) {
	start := eng.nowFunc()

	activity := &domain.Activity{
		MarketplaceID: marketplaceID,
		Type:          domain.ActivityFetch,
		DateFrom:      from,
		DateTo:        to,
		Action:        action,
	}
	if err := eng.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	result, err := eng.fetcher.Fetch(ctx, fetch.Request{
		MarketplaceID: marketplaceID,
		CreatedAfter:  from,
		CreatedBefore: to,
	})
	if err != nil {
		eng.failActivity(ctx, activity.ID, start, err)
		return nil, fmt.Errorf("fetching orders: %w", err)
	}

	rows := eng.processor.Process(marketplaceID, result.Orders)

	outcome := &FetchOutcome{
		ActivityID: activity.ID,
		Summary:    result.Summary,
		RowCount:   len(rows),
	}

	if len(rows) > 0 {
		key, cacheErr := eng.cache.Store(ctx, marketplaceID, rows)
		if cacheErr != nil {
			// Cache is a convenience for downloads, not the system of
			// record. The save still proceeds.
			eng.log.Error("caching processed rows failed",
				"marketplace", marketplaceID, "error", cacheErr)
		} else {
			outcome.CacheKey = key
		}

		outcome.Save = eng.sinks.SaveOrders(ctx, rows)
	}

	completion := store.ActivityCompletion{
		Status:        domain.ActivityCompleted,
		OrdersFetched: result.Summary.OrdersFetched,
		ItemsFetched:  result.Summary.ItemsFetched,
		Duration:      eng.nowFunc().Sub(start),
		Detail:        fetchDetail(outcome, len(result.Failed)),
		DatabaseSaved: len(rows) > 0 && !outcome.Save.AllFailed(),
	}
	if len(rows) > 0 && outcome.Save.AllFailed() {
		completion.Status = domain.ActivityFailed
		completion.ErrorMessage = saveErrorText(outcome.Save)
	}

	if err := eng.store.CompleteActivity(ctx, activity.ID, completion); err != nil {
		eng.log.Error("completing activity failed", "activity", activity.ID, "error", err)
	}

	return outcome, nil
}

// RunInventory pulls the current FBA inventory for one marketplace and
// saves the snapshot to every sink.
func (eng *Engine) RunInventory(
	ctx context.Context,
	marketplaceID string,
	action string,
) (*FetchOutcome, error) {
	start := eng.nowFunc()

	activity := &domain.Activity{
		MarketplaceID: marketplaceID,
		Type:          domain.ActivityInventory,
		DateFrom:      start,
		DateTo:        start,
		Action:        action,
	}
	if err := eng.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	rows, err := eng.inventory.FetchInventory(ctx, marketplaceID)
	if err != nil {
		eng.failActivity(ctx, activity.ID, start, err)
		return nil, fmt.Errorf("fetching inventory: %w", err)
	}

	outcome := &FetchOutcome{
		ActivityID: activity.ID,
		RowCount:   len(rows),
	}
	if len(rows) > 0 {
		outcome.Save = eng.sinks.SaveInventory(ctx, rows)
	}

	completion := store.ActivityCompletion{
		Status:        domain.ActivityCompleted,
		ItemsFetched:  len(rows),
		Duration:      eng.nowFunc().Sub(start),
		Detail:        fmt.Sprintf("%d inventory rows", len(rows)),
		DatabaseSaved: len(rows) > 0 && !outcome.Save.AllFailed(),
	}
	if len(rows) > 0 && outcome.Save.AllFailed() {
		completion.Status = domain.ActivityFailed
		completion.ErrorMessage = saveErrorText(outcome.Save)
	}

	if err := eng.store.CompleteActivity(ctx, activity.ID, completion); err != nil {
		eng.log.Error("completing activity failed", "activity", activity.ID, "error", err)
	}

	return outcome, nil
}

func (eng *Engine) failActivity(ctx context.Context, id string, start time.Time, cause error) {
	err := eng.store.CompleteActivity(ctx, id, store.ActivityCompletion{
		Status:       domain.ActivityFailed,
		Duration:     eng.nowFunc().Sub(start),
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		eng.log.Error("completing failed activity", "activity", id, "error", err)
	}
}

func fetchDetail(outcome *FetchOutcome, failedOrders int) string {
	parts := []string{fmt.Sprintf("%d rows processed", outcome.RowCount)}
	if failedOrders > 0 {
		parts = append(parts, fmt.Sprintf("%d orders failed", failedOrders))
	}
	if saved := outcome.Save.Succeeded(); len(saved) > 0 {
		parts = append(parts, "saved to "+strings.Join(saved, ", "))
	}
	return strings.Join(parts, "; ")
}

func saveErrorText(report sink.SaveReport) string {
	var parts []string
	for _, res := range report.Results {
		if res.Error != "" {
			parts = append(parts, res.Sink+": "+res.Error)
		}
	}
	if len(parts) == 0 {
		return "no sinks configured"
	}
	return strings.Join(parts, "; ")
}
