package client

import (
	"context"

	"github.com/sellerops/amazon-connector/internal/api/handlers"
)

// ListMarketplaces returns the marketplaces the connector supports.
func (c *Client) ListMarketplaces(ctx context.Context) ([]handlers.Marketplace, error) {
	var resp struct {
		Marketplaces []handlers.Marketplace `json:"marketplaces"`
	}
	if err := c.get(ctx, "/api/v1/marketplaces", &resp); err != nil {
		return nil, err
	}
	return resp.Marketplaces, nil
}

// Health reports whether the server and its database are up.
type Health struct {
	Status string `json:"status"`
}

// GetHealth checks the server's readiness endpoint.
func (c *Client) GetHealth(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/readyz", &h); err != nil {
		return nil, err
	}
	return &h, nil
}
