package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/engine"
	"github.com/sellerops/amazon-connector/internal/spapi"
)

// maxDateRange bounds a single fetch window. Wider ranges multiply SP-API
// call volume past what the order rate limit can absorb in one run.
const maxDateRange = 30 * 24 * time.Hour

const dateLayout = "2006-01-02"

// Pipeline runs fetch and inventory pipelines.
type Pipeline interface {
	RunFetch(ctx context.Context, marketplaceID string, from, to time.Time, action string) (*engine.FetchOutcome, error)
	RunInventory(ctx context.Context, marketplaceID string, action string) (*engine.FetchOutcome, error)
}

// FetchHandler handles manual fetch and inventory trigger requests.
type FetchHandler struct {
	pipeline Pipeline
}

// NewFetchHandler creates a new FetchHandler.
func NewFetchHandler(p Pipeline) *FetchHandler {
	return &FetchHandler{pipeline: p}
}

// FetchInput is the request body for triggering a fetch run.
type FetchInput struct {
	Body struct {
		MarketplaceID string `json:"marketplace_id" doc:"Amazon marketplace ID" minLength:"1"`
		DateFrom      string `json:"date_from"      doc:"Start date (YYYY-MM-DD, inclusive)"`
		DateTo        string `json:"date_to"        doc:"End date (YYYY-MM-DD, exclusive)"`
	}
}

// FetchOutput is the response for a completed fetch run.
type FetchOutput struct {
	Body engine.FetchOutcome
}

// InventoryInput is the request body for triggering an inventory run.
type InventoryInput struct {
	Body struct {
		MarketplaceID string `json:"marketplace_id" doc:"Amazon marketplace ID" minLength:"1"`
	}
}

// InventoryOutput is the response for a completed inventory run.
type InventoryOutput struct {
	Body engine.FetchOutcome
}

// Fetch runs the fetch-process-save pipeline for one marketplace and date
// window.
func (h *FetchHandler) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	if !spapi.SupportedMarketplace(input.Body.MarketplaceID) {
		return nil, huma.Error422UnprocessableEntity(
			"unknown marketplace: " + input.Body.MarketplaceID,
		)
	}

	from, to, err := parseDateRange(input.Body.DateFrom, input.Body.DateTo)
	if err != nil {
		return nil, err
	}

	outcome, runErr := h.pipeline.RunFetch(ctx, input.Body.MarketplaceID, from, to, "manual")
	if runErr != nil {
		return nil, huma.Error500InternalServerError("fetch failed: " + runErr.Error())
	}

	return &FetchOutput{Body: *outcome}, nil
}

// Inventory runs the inventory report pipeline for one marketplace.
func (h *FetchHandler) Inventory(
	ctx context.Context,
	input *InventoryInput,
) (*InventoryOutput, error) {
	if !spapi.SupportedMarketplace(input.Body.MarketplaceID) {
		return nil, huma.Error422UnprocessableEntity(
			"unknown marketplace: " + input.Body.MarketplaceID,
		)
	}

	outcome, err := h.pipeline.RunInventory(ctx, input.Body.MarketplaceID, "manual")
	if err != nil {
		return nil, huma.Error500InternalServerError("inventory run failed: " + err.Error())
	}

	return &InventoryOutput{Body: *outcome}, nil
}

// parseDateRange validates the window: ISO dates, start before end, at most
// 30 days.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, huma.Error422UnprocessableEntity(
			"date_from must be a YYYY-MM-DD date: " + fromStr,
		)
	}

	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, huma.Error422UnprocessableEntity(
			"date_to must be a YYYY-MM-DD date: " + toStr,
		)
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, huma.Error422UnprocessableEntity(
			"date_from must be before date_to",
		)
	}

	if to.Sub(from) > maxDateRange {
		return time.Time{}, time.Time{}, huma.Error422UnprocessableEntity(
			"date range must not exceed 30 days",
		)
	}

	return from, to, nil
}

// RegisterFetchRoutes registers fetch trigger endpoints with the Huma API.
func RegisterFetchRoutes(api huma.API, h *FetchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-fetch",
		Method:      http.MethodPost,
		Path:        "/api/v1/fetch",
		Summary:     "Trigger a fetch run",
		Description: "Fetches orders and items for a marketplace and date window, " +
			"processes them, caches the rows, and saves to the configured sinks.",
		Tags:   []string{"fetch"},
		Errors: []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.Fetch)

	huma.Register(api, huma.Operation{
		OperationID: "trigger-inventory",
		Method:      http.MethodPost,
		Path:        "/api/v1/inventory",
		Summary:     "Trigger an inventory run",
		Description: "Requests an FBA inventory report, waits for it, and saves the snapshot.",
		Tags:        []string{"fetch"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.Inventory)
}
