package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sellerops/amazon-connector/internal/cache"
	"github.com/sellerops/amazon-connector/internal/process"
	"github.com/sellerops/amazon-connector/internal/sink"
)

// ProcessedHandler serves cached processed row sets.
type ProcessedHandler struct {
	cache cache.Cache
}

// NewProcessedHandler creates a new ProcessedHandler.
func NewProcessedHandler(c cache.Cache) *ProcessedHandler {
	return &ProcessedHandler{cache: c}
}

// ListProcessedInput is the input for listing cached processed sets.
type ListProcessedInput struct {
	MarketplaceID string `query:"marketplace_id" doc:"Filter by marketplace ID"`
}

// ListProcessedOutput is the response for listing cached processed sets.
type ListProcessedOutput struct {
	Body struct {
		Entries []cache.Entry `json:"entries"`
		Total   int           `json:"total"`
	}
}

// DownloadProcessedInput is the input for downloading one cached set.
type DownloadProcessedInput struct {
	Key string `path:"key" doc:"Cache key of the processed set"`
}

// DownloadLatestInput is the input for downloading the newest cached set of
// a marketplace.
type DownloadLatestInput struct {
	MarketplaceID string `path:"marketplaceID" doc:"Amazon marketplace ID"`
}

// CSVOutput is a CSV file response.
type CSVOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// ListProcessed lists cached processed sets, newest first.
func (h *ProcessedHandler) ListProcessed(
	ctx context.Context,
	input *ListProcessedInput,
) (*ListProcessedOutput, error) {
	entries, err := h.cache.Entries(ctx, input.MarketplaceID)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing processed sets failed: " + err.Error())
	}

	resp := &ListProcessedOutput{}
	resp.Body.Entries = entries
	resp.Body.Total = len(entries)
	return resp, nil
}

// DownloadProcessed returns one cached set as a CSV file.
func (h *ProcessedHandler) DownloadProcessed(
	ctx context.Context,
	input *DownloadProcessedInput,
) (*CSVOutput, error) {
	rows, err := h.cache.Get(ctx, input.Key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, huma.Error404NotFound("no processed data under key " + input.Key)
		}
		return nil, huma.Error500InternalServerError("reading processed data failed: " + err.Error())
	}

	return csvResponse(input.Key, rows)
}

// DownloadLatest returns the newest cached set for a marketplace as CSV.
func (h *ProcessedHandler) DownloadLatest(
	ctx context.Context,
	input *DownloadLatestInput,
) (*CSVOutput, error) {
	key, rows, err := h.cache.Latest(ctx, input.MarketplaceID)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, huma.Error404NotFound(
				"no processed data for marketplace " + input.MarketplaceID,
			)
		}
		return nil, huma.Error500InternalServerError("reading processed data failed: " + err.Error())
	}

	return csvResponse(key, rows)
}

func csvResponse(key string, rows []process.Row) (*CSVOutput, error) {
	var buf bytes.Buffer
	if err := sink.WriteCSV(&buf, rows); err != nil {
		return nil, huma.Error500InternalServerError("encoding CSV failed: " + err.Error())
	}

	return &CSVOutput{
		ContentType:        "text/csv",
		ContentDisposition: `attachment; filename="` + key + `.csv"`,
		Body:               buf.Bytes(),
	}, nil
}

// RegisterProcessedRoutes registers processed-data endpoints with the Huma API.
func RegisterProcessedRoutes(api huma.API, h *ProcessedHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-processed-data",
		Method:      http.MethodGet,
		Path:        "/api/v1/processed-data",
		Summary:     "List cached processed sets",
		Description: "Returns cached processed row sets, newest first, optionally filtered by marketplace.",
		Tags:        []string{"processed-data"},
	}, h.ListProcessed)

	huma.Register(api, huma.Operation{
		OperationID: "download-latest-processed-data",
		Method:      http.MethodGet,
		Path:        "/api/v1/processed-data/latest/{marketplaceID}/download",
		Summary:     "Download the newest processed set for a marketplace",
		Description: "Returns the most recent cached set for the marketplace as a CSV file.",
		Tags:        []string{"processed-data"},
		Errors:      []int{http.StatusNotFound},
	}, h.DownloadLatest)

	huma.Register(api, huma.Operation{
		OperationID: "download-processed-data",
		Method:      http.MethodGet,
		Path:        "/api/v1/processed-data/{key}/download",
		Summary:     "Download a processed set",
		Description: "Returns one cached processed set as a CSV file.",
		Tags:        []string{"processed-data"},
		Errors:      []int{http.StatusNotFound},
	}, h.DownloadProcessed)
}
