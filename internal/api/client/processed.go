package client

import (
	"context"
	"net/url"

	"github.com/sellerops/amazon-connector/internal/cache"
)

// ListProcessed returns cached processed sets, newest first, optionally
// filtered by marketplace.
func (c *Client) ListProcessed(
	ctx context.Context,
	marketplaceID string,
) ([]cache.Entry, error) {
	path := "/api/v1/processed-data"
	if marketplaceID != "" {
		path += "?marketplace_id=" + url.QueryEscape(marketplaceID)
	}

	var resp struct {
		Entries []cache.Entry `json:"entries"`
		Total   int           `json:"total"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// DownloadProcessed returns one cached processed set as CSV bytes.
func (c *Client) DownloadProcessed(ctx context.Context, key string) ([]byte, error) {
	return c.getRaw(ctx, "/api/v1/processed-data/"+url.PathEscape(key)+"/download")
}

// DownloadLatestProcessed returns the newest cached set for a marketplace
// as CSV bytes.
func (c *Client) DownloadLatestProcessed(
	ctx context.Context,
	marketplaceID string,
) ([]byte, error) {
	return c.getRaw(
		ctx,
		"/api/v1/processed-data/latest/"+url.PathEscape(marketplaceID)+"/download",
	)
}
