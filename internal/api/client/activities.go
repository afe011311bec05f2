package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// ActivityFilter narrows an activity listing. Zero values mean "no filter".
type ActivityFilter struct {
	MarketplaceID string
	Type          string
	Status        string
	SinceHours    int
	Limit         int
	Offset        int
	OrderBy       string
}

// ActivityPage is one page of activity records.
type ActivityPage struct {
	Activities []domain.Activity `json:"activities"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ListActivities returns activity records matching the filter, newest first.
func (c *Client) ListActivities(
	ctx context.Context,
	filter ActivityFilter,
) (*ActivityPage, error) {
	q := url.Values{}
	if filter.MarketplaceID != "" {
		q.Set("marketplace_id", filter.MarketplaceID)
	}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.SinceHours > 0 {
		q.Set("since_hours", strconv.Itoa(filter.SinceHours))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.OrderBy != "" {
		q.Set("order_by", filter.OrderBy)
	}

	path := "/api/v1/activities"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page ActivityPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetActivity returns a single activity record by ID.
func (c *Client) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	var a domain.Activity
	if err := c.get(ctx, "/api/v1/activities/"+id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ActivityStats returns aggregate activity counts over the last sinceHours
// hours. Zero uses the server default window.
func (c *Client) ActivityStats(
	ctx context.Context,
	sinceHours int,
) (*domain.ActivityStats, error) {
	path := "/api/v1/activities/stats"
	if sinceHours > 0 {
		path += "?since_hours=" + strconv.Itoa(sinceHours)
	}

	var stats domain.ActivityStats
	if err := c.get(ctx, path, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
