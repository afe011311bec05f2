package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/store"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// ActivitiesHandler handles activity query endpoints.
type ActivitiesHandler struct {
	store store.Store
}

// NewActivitiesHandler creates a new ActivitiesHandler.
func NewActivitiesHandler(s store.Store) *ActivitiesHandler {
	return &ActivitiesHandler{store: s}
}

// ListActivitiesInput is the input for listing activities with optional
// filters.
type ListActivitiesInput struct {
	MarketplaceID string `query:"marketplace_id" doc:"Filter by marketplace ID"`
	Type          string `query:"type"           doc:"Filter by activity type"        enum:"fetch,process,save,inventory,"`
	Status        string `query:"status"         doc:"Filter by status"               enum:"in_progress,completed,failed,"`
	SinceHours    int    `query:"since_hours"    doc:"Only activities from the last N hours" minimum:"0"`
	Limit         int    `query:"limit"          doc:"Number of results (default 50)" minimum:"1" maximum:"500"`
	Offset        int    `query:"offset"         doc:"Pagination offset"              minimum:"0"`
	OrderBy       string `query:"order_by"       doc:"Sort field"                     enum:"created_at,duration,"`
}

// ListActivitiesOutput is the response for listing activities.
type ListActivitiesOutput struct {
	Body struct {
		Activities []domain.Activity `json:"activities"`
		Total      int               `json:"total"`
		Limit      int               `json:"limit"`
		Offset     int               `json:"offset"`
	}
}

// GetActivityInput is the input for getting a single activity.
type GetActivityInput struct {
	ID string `path:"id" doc:"Activity ID"`
}

// GetActivityOutput is the response for getting a single activity.
type GetActivityOutput struct {
	Body domain.Activity
}

// ActivityStatsInput is the input for the activity stats endpoint.
type ActivityStatsInput struct {
	SinceHours int `query:"since_hours" doc:"Aggregation window in hours (default 168)" minimum:"0"`
}

// ActivityStatsOutput is the response for the activity stats endpoint.
type ActivityStatsOutput struct {
	Body domain.ActivityStats
}

// ListActivities returns recorded runs with optional filters.
func (h *ActivitiesHandler) ListActivities(
	ctx context.Context,
	input *ListActivitiesInput,
) (*ListActivitiesOutput, error) {
	q := &store.ActivityQuery{
		Offset:  input.Offset,
		OrderBy: input.OrderBy,
	}

	if input.MarketplaceID != "" {
		q.MarketplaceID = &input.MarketplaceID
	}

	if input.Type != "" {
		q.Type = &input.Type
	}

	if input.Status != "" {
		q.Status = &input.Status
	}

	if input.SinceHours > 0 {
		since := time.Now().Add(-time.Duration(input.SinceHours) * time.Hour)
		q.Since = &since
	}

	if input.Limit != 0 {
		q.Limit = input.Limit
	}

	activities, total, err := h.store.ListActivities(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("activity query failed: " + err.Error())
	}

	resp := &ListActivitiesOutput{}
	resp.Body.Activities = activities
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetActivity returns a single activity by ID.
func (h *ActivitiesHandler) GetActivity(
	ctx context.Context,
	input *GetActivityInput,
) (*GetActivityOutput, error) {
	activity, err := h.store.GetActivity(ctx, input.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("activity not found")
		}
		return nil, huma.Error500InternalServerError("activity query failed: " + err.Error())
	}

	return &GetActivityOutput{Body: *activity}, nil
}

// ActivityStats aggregates run counts and fetched totals over a window.
func (h *ActivitiesHandler) ActivityStats(
	ctx context.Context,
	input *ActivityStatsInput,
) (*ActivityStatsOutput, error) {
	hours := input.SinceHours
	if hours <= 0 {
		hours = 7 * 24
	}

	stats, err := h.store.ActivityStats(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return nil, huma.Error500InternalServerError("stats query failed: " + err.Error())
	}

	return &ActivityStatsOutput{Body: *stats}, nil
}

// RegisterActivityRoutes registers activity endpoints with the Huma API.
func RegisterActivityRoutes(api huma.API, h *ActivitiesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities",
		Summary:     "List activities",
		Description: "Returns recorded fetch/process/save runs with optional filters.",
		Tags:        []string{"activities"},
	}, h.ListActivities)

	huma.Register(api, huma.Operation{
		OperationID: "get-activity-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/stats",
		Summary:     "Activity statistics",
		Description: "Aggregates run counts and fetched totals over a window.",
		Tags:        []string{"activities"},
	}, h.ActivityStats)

	huma.Register(api, huma.Operation{
		OperationID: "get-activity",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/{id}",
		Summary:     "Get an activity by ID",
		Description: "Returns a single recorded run.",
		Tags:        []string{"activities"},
		Errors:      []int{http.StatusNotFound},
	}, h.GetActivity)
}
