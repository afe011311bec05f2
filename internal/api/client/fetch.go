package client

import (
	"context"

	"github.com/sellerops/amazon-connector/internal/engine"
)

// fetchRequest is the body of a manual fetch trigger.
type fetchRequest struct {
	MarketplaceID string `json:"marketplace_id"`
	DateFrom      string `json:"date_from"`
	DateTo        string `json:"date_to"`
}

// inventoryRequest is the body of a manual inventory trigger.
type inventoryRequest struct {
	MarketplaceID string `json:"marketplace_id"`
}

// TriggerFetch runs the fetch pipeline for one marketplace and date window.
// Dates are YYYY-MM-DD, from inclusive, to exclusive.
func (c *Client) TriggerFetch(
	ctx context.Context,
	marketplaceID, dateFrom, dateTo string,
) (*engine.FetchOutcome, error) {
	var outcome engine.FetchOutcome
	req := fetchRequest{
		MarketplaceID: marketplaceID,
		DateFrom:      dateFrom,
		DateTo:        dateTo,
	}
	if err := c.post(ctx, "/api/v1/fetch", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// TriggerInventory runs the inventory report pipeline for one marketplace.
func (c *Client) TriggerInventory(
	ctx context.Context,
	marketplaceID string,
) (*engine.FetchOutcome, error) {
	var outcome engine.FetchOutcome
	req := inventoryRequest{MarketplaceID: marketplaceID}
	if err := c.post(ctx, "/api/v1/inventory", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
