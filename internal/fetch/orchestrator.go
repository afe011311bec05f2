package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
	"github.com/sellerops/amazon-connector/internal/spapi"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// Orchestrator runs one marketplace's fetch: paginate the order listing,
// then fetch each order's items in adaptively sized concurrent batches.
//
// Pagination is strictly sequential (one list call in flight, ordered by
// continuation cursor) and batches are strictly sequential too: batch N+1
// waits for batch N's recovery pass because sizing depends on N's outcome.
type Orchestrator struct {
	api    spapi.OrdersAPI
	tokens spapi.TokenProvider
	retry  *spapi.RetryPolicy
	log    *slog.Logger

	batchInitial  int
	batchMin      int
	batchMax      int
	workerCeiling int
	maxOrders     int // 0 means no cap
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p *spapi.RetryPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.retry = p
	}
}

// WithBatchSizing overrides the initial, minimum and maximum batch sizes.
func WithBatchSizing(initial, minSize, maxSize int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.batchInitial = initial
		o.batchMin = minSize
		o.batchMax = maxSize
	}
}

// WithWorkerCeiling overrides the per-batch worker ceiling.
func WithWorkerCeiling(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.workerCeiling = n
	}
}

// WithMaxOrders caps how many orders a fetch run will collect.
func WithMaxOrders(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxOrders = n
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// NewOrchestrator creates an Orchestrator over the given API client and
// token provider.
func NewOrchestrator(api spapi.OrdersAPI, tokens spapi.TokenProvider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:           api,
		tokens:        tokens,
		retry:         spapi.NewRetryPolicy(),
		log:           slog.Default(),
		batchInitial:  DefaultBatchSize,
		batchMin:      MinBatchSize,
		batchMax:      MaxBatchSize,
		workerCeiling: DefaultWorkerCeiling,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Request describes one fetch run.
type Request struct {
	MarketplaceID string
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// Result is the aggregate outcome of a fetch run. Every listed order is
// present in Orders; ones whose item fetch was exhausted carry nil Items
// and appear in Failed.
type Result struct {
	Orders  []domain.Order
	Failed  []domain.FailedOrder
	Summary domain.FetchSummary
}

// itemResult is one order's item-fetch outcome, keyed by order ID so batch
// aggregation stays independent of completion order.
type itemResult struct {
	orderID string
	items   []domain.OrderItem
	err     error
}

// Fetch runs the full pipeline for one marketplace and date window.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	orders, err := o.fetchAllOrders(ctx, req)
	if err != nil {
		return nil, err
	}
	fetchOrdersDone := time.Now()

	result := o.fetchAllItems(ctx, req.MarketplaceID, orders)

	total := time.Since(start)
	result.Summary.Performance = domain.Performance{
		TotalTime:      total,
		FetchTime:      fetchOrdersDone.Sub(start),
		ProcessingTime: total - fetchOrdersDone.Sub(start),
	}

	metrics.FetchDuration.WithLabelValues(req.MarketplaceID).Observe(total.Seconds())
	metrics.OrdersFetchedTotal.WithLabelValues(req.MarketplaceID).Add(float64(result.Summary.OrdersFetched))
	metrics.ItemsFetchedTotal.WithLabelValues(req.MarketplaceID).Add(float64(result.Summary.ItemsFetched))

	o.log.Info("fetch run complete",
		"marketplace", req.MarketplaceID,
		"orders", result.Summary.OrdersFetched,
		"items", result.Summary.ItemsFetched,
		"failed_orders", len(result.Failed),
		"duration", total,
	)
	return result, nil
}

// fetchAllOrders follows the continuation cursor until it is absent or the
// order cap is hit.
func (o *Orchestrator) fetchAllOrders(ctx context.Context, req Request) ([]domain.Order, error) {
	var orders []domain.Order
	nextToken := ""
	page := 0

	for {
		listReq := spapi.ListOrdersRequest{
			MarketplaceID: req.MarketplaceID,
			CreatedAfter:  req.CreatedAfter.UTC().Format(time.RFC3339),
			CreatedBefore: req.CreatedBefore.UTC().Format(time.RFC3339),
			NextToken:     nextToken,
			Priority:      spapi.PriorityNormal,
		}

		var resp *spapi.OrdersPage
		err := o.callWithAuthRetry(ctx, "list_orders", func() error {
			var callErr error
			resp, callErr = o.api.ListOrders(ctx, listReq)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("listing orders page %d: %w", page+1, err)
		}

		orders = append(orders, resp.Orders...)
		page++

		o.log.Debug("orders page fetched",
			"marketplace", req.MarketplaceID,
			"page", page,
			"orders", len(resp.Orders),
			"has_next", resp.NextToken != "",
		)

		if o.maxOrders > 0 && len(orders) >= o.maxOrders {
			orders = orders[:o.maxOrders]
			break
		}
		if resp.NextToken == "" {
			break
		}
		nextToken = resp.NextToken
	}

	return orders, nil
}

// fetchAllItems partitions orders into adaptively sized batches and fetches
// each batch concurrently with a bounded pool. One exhausted order never
// aborts the run; it is recorded and the rest continue.
func (o *Orchestrator) fetchAllItems(ctx context.Context, marketplaceID string, orders []domain.Order) *Result {
	controller, err := NewBatchController(o.batchInitial, o.batchMin, o.batchMax)
	if err != nil {
		// Misconfigured sizing falls back to the defaults rather than
		// failing a run that already fetched its orders.
		o.log.Error("invalid batch sizing, using defaults", "error", err)
		controller, _ = NewBatchController(DefaultBatchSize, MinBatchSize, MaxBatchSize)
	}

	result := &Result{
		Summary: domain.FetchSummary{MarketplaceID: marketplaceID},
	}

	for offset := 0; offset < len(orders); {
		size := controller.Size()
		end := offset + size
		if end > len(orders) {
			end = len(orders)
		}
		batch := orders[offset:end]
		offset = end

		outcomes := o.runBatch(ctx, marketplaceID, batch, controller.Workers(o.workerCeiling))

		// Main-pass failures feed the sizing decision; the recovery
		// pass below does not inflate that accounting.
		failures := 0
		reconnect := false
		for _, out := range outcomes {
			if out.err != nil {
				failures++
				if errors.Is(out.err, spapi.ErrReconnectRequired) {
					reconnect = true
				}
			}
		}
		controller.Observe(len(batch), failures)

		// A rejected refresh token is fatal to the whole session: no
		// retry or recovery pass can succeed until the seller
		// reconnects, so stop grinding through the remaining orders.
		if failures > 0 && !reconnect {
			o.recoverFailed(ctx, marketplaceID, outcomes)
		}

		for i := range batch {
			out := outcomes[batch[i].AmazonOrderID]
			if out == nil {
				continue
			}
			if out.err != nil {
				category := string(spapi.Classify(out.err))
				result.Failed = append(result.Failed, domain.FailedOrder{
					OrderID:  out.orderID,
					Error:    out.err.Error(),
					Category: category,
				})
				metrics.FailedOrdersTotal.WithLabelValues(category).Inc()
			} else {
				if out.items == nil {
					out.items = []domain.OrderItem{}
				}
				batch[i].Items = out.items
				result.Summary.ItemsFetched += len(out.items)
			}
		}

		if reconnect {
			o.log.Error("refresh token rejected, aborting item fetch",
				"marketplace", marketplaceID,
				"orders_remaining", len(orders)-offset,
			)
			break
		}
	}

	result.Orders = orders
	result.Summary.OrdersFetched = len(orders)
	result.Summary.FailedOrders = result.Failed
	return result
}

// runBatch fetches one batch's items through a bounded worker pool and
// returns outcomes keyed by order ID.
func (o *Orchestrator) runBatch(
	ctx context.Context,
	marketplaceID string,
	batch []domain.Order,
	workers int,
) map[string]*itemResult {
	jobs := make(chan domain.Order)
	results := make(chan *itemResult, len(batch))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for order := range jobs {
				items, err := o.fetchOrderItems(ctx, marketplaceID, order.AmazonOrderID, spapi.PriorityNormal)
				results <- &itemResult{orderID: order.AmazonOrderID, items: items, err: err}
			}
		}()
	}

	for _, order := range batch {
		jobs <- order
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make(map[string]*itemResult, len(batch))
	for out := range results {
		outcomes[out.orderID] = out
	}
	return outcomes
}

// recoverFailed retries each failed order once more on a dedicated
// single-order path with a fresh retry budget. High priority shortens its
// limiter waits so recovery drains quickly.
func (o *Orchestrator) recoverFailed(ctx context.Context, marketplaceID string, outcomes map[string]*itemResult) {
	for _, out := range outcomes {
		if out.err == nil {
			continue
		}
		// An open breaker will not recover within this pass.
		if errors.Is(out.err, spapi.ErrCircuitOpen) {
			continue
		}

		items, err := o.fetchOrderItems(ctx, marketplaceID, out.orderID, spapi.PriorityHigh)
		if err != nil {
			o.log.Warn("order recovery failed",
				"order_id", out.orderID,
				"category", string(spapi.Classify(err)),
				"error", err,
			)
			out.err = err
			continue
		}

		o.log.Info("order recovered", "order_id", out.orderID, "items", len(items))
		out.items = items
		out.err = nil
	}
}

func (o *Orchestrator) fetchOrderItems(
	ctx context.Context,
	marketplaceID, orderID string,
	p spapi.Priority,
) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := o.callWithAuthRetry(ctx, "get_order_items", func() error {
		var callErr error
		items, callErr = o.api.GetOrderItems(ctx, marketplaceID, orderID, p)
		return callErr
	})
	return items, err
}

// callWithAuthRetry wraps a call in the retry policy, with one twist: an
// authentication failure first forces a coordinated token refresh and
// replays the call once before normal backoff classification applies.
func (o *Orchestrator) callWithAuthRetry(ctx context.Context, op string, call func() error) error {
	return o.retry.Execute(ctx, op, func() error {
		err := call()
		if err == nil {
			return nil
		}
		if errors.Is(err, spapi.ErrReconnectRequired) {
			return err
		}
		if spapi.Classify(err) != spapi.CategoryAuthentication {
			return err
		}

		o.log.Warn("authentication failure, forcing token refresh", "op", op)
		if _, refreshErr := o.tokens.ForceRefresh(ctx); refreshErr != nil {
			return refreshErr
		}
		return call()
	})
}
