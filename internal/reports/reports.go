// Package reports requests, polls and downloads SP-API inventory reports.
package reports

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sellerops/amazon-connector/internal/spapi"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

const (
	reportsPath   = "/reports/2021-06-30/reports"
	documentsPath = "/reports/2021-06-30/documents"

	// FBA unsuppressed inventory, tab separated.
	fbaInventoryReportType = "GET_FBA_MYI_UNSUPPRESSED_INVENTORY_DATA"

	// Report polling is throttled well below the published 2 rps so a
	// long-running report never competes with order fetches for quota.
	defaultPollRate  = rate.Limit(0.5)
	defaultPollBurst = 1

	defaultPollInterval = 15 * time.Second
	defaultMaxWait      = 15 * time.Minute
)

// Report processing states.
const (
	statusDone      = "DONE"
	statusCancelled = "CANCELLED"
	statusFatal     = "FATAL"
)

// ErrReportTimeout is returned when a report does not finish within the
// polling window.
var ErrReportTimeout = errors.New("inventory report not ready within polling window")

// ErrReportFailed is returned when Amazon cancels or fatally fails a report.
var ErrReportFailed = errors.New("inventory report failed upstream")

// Caller is the request surface the report service needs from the SP-API
// client.
type Caller interface {
	Call(ctx context.Context, marketplaceID, method, path string,
		query url.Values, reqBody any, class string, p spapi.Priority) ([]byte, error)
}

// Service drives the create-poll-download report cycle.
type Service struct {
	api     Caller
	limiter *rate.Limiter
	http    *http.Client
	log     *slog.Logger

	pollInterval time.Duration
	maxWait      time.Duration
	sleepFunc    func(context.Context, time.Duration) error
}

// Option configures the Service.
type Option func(*Service)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(s *Service) {
		s.pollInterval = d
	}
}

// WithMaxWait bounds the total polling time per report.
func WithMaxWait(d time.Duration) Option {
	return func(s *Service) {
		s.maxWait = d
	}
}

// WithLimiter replaces the poll limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithHTTPClient overrides the document download client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		s.http = hc
	}
}

// WithSleepFunc overrides the inter-poll sleep for testing.
func WithSleepFunc(f func(context.Context, time.Duration) error) Option {
	return func(s *Service) {
		s.sleepFunc = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a report service over the given SP-API caller.
func NewService(api Caller, opts ...Option) *Service {
	s := &Service{
		api:          api,
		limiter:      rate.NewLimiter(defaultPollRate, defaultPollBurst),
		http:         &http.Client{Timeout: 2 * time.Minute},
		log:          slog.Default(),
		pollInterval: defaultPollInterval,
		maxWait:      defaultMaxWait,
		sleepFunc: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

type reportStatusResponse struct {
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

type reportDocumentResponse struct {
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}

// FetchInventory runs the full report cycle for one marketplace and returns
// the decoded rows.
func (s *Service) FetchInventory(ctx context.Context, marketplaceID string) ([]domain.InventoryRow, error) {
	reportID, err := s.createReport(ctx, marketplaceID)
	if err != nil {
		return nil, fmt.Errorf("creating inventory report: %w", err)
	}
	s.log.Info("inventory report requested", "marketplace", marketplaceID, "report_id", reportID)

	documentID, err := s.pollReport(ctx, marketplaceID, reportID)
	if err != nil {
		return nil, err
	}

	rows, err := s.downloadDocument(ctx, marketplaceID, documentID)
	if err != nil {
		return nil, fmt.Errorf("downloading report document: %w", err)
	}

	s.log.Info("inventory report decoded",
		"marketplace", marketplaceID,
		"report_id", reportID,
		"rows", len(rows),
	)
	return rows, nil
}

func (s *Service) createReport(ctx context.Context, marketplaceID string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body := map[string]any{
		"reportType":     fbaInventoryReportType,
		"marketplaceIds": []string{marketplaceID},
	}
	raw, err := s.api.Call(ctx, marketplaceID, http.MethodPost, reportsPath, nil, body,
		spapi.EndpointReports, spapi.PriorityLow)
	if err != nil {
		return "", err
	}

	var resp createReportResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parsing create response: %w", err)
	}
	if resp.ReportID == "" {
		return "", errors.New("create response missing reportId")
	}
	return resp.ReportID, nil
}

// pollReport waits for the report to finish, pacing polls with the limiter
// and giving up after maxWait.
func (s *Service) pollReport(ctx context.Context, marketplaceID, reportID string) (string, error) {
	deadline := time.Now().Add(s.maxWait)

	for time.Now().Before(deadline) {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		raw, err := s.api.Call(ctx, marketplaceID, http.MethodGet, reportsPath+"/"+reportID, nil, nil,
			spapi.EndpointReports, spapi.PriorityLow)
		if err != nil {
			return "", fmt.Errorf("polling report %s: %w", reportID, err)
		}

		var resp reportStatusResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", fmt.Errorf("parsing status response: %w", err)
		}

		switch resp.ProcessingStatus {
		case statusDone:
			if resp.ReportDocumentID == "" {
				return "", errors.New("finished report missing document id")
			}
			return resp.ReportDocumentID, nil
		case statusCancelled, statusFatal:
			return "", fmt.Errorf("%w: report %s status %s", ErrReportFailed, reportID, resp.ProcessingStatus)
		}

		s.log.Debug("report still processing",
			"report_id", reportID,
			"status", resp.ProcessingStatus,
		)
		if err := s.sleepFunc(ctx, s.pollInterval); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: report %s", ErrReportTimeout, reportID)
}

// downloadDocument resolves the document's presigned URL, fetches it and
// decodes the TSV payload.
func (s *Service) downloadDocument(ctx context.Context, marketplaceID, documentID string) ([]domain.InventoryRow, error) {
	raw, err := s.api.Call(ctx, marketplaceID, http.MethodGet, documentsPath+"/"+documentID, nil, nil,
		spapi.EndpointReports, spapi.PriorityLow)
	if err != nil {
		return nil, err
	}

	var doc reportDocumentResponse
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document response: %w", err)
	}
	if doc.URL == "" {
		return nil, errors.New("document response missing url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document download returned status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if doc.CompressionAlgorithm == "GZIP" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip document: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return DecodeTSV(reader, marketplaceID)
}

// DecodeTSV parses a tab-separated inventory report. Column positions come
// from the header row, so column reordering upstream is harmless.
func DecodeTSV(r io.Reader, marketplaceID string) ([]domain.InventoryRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading report header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []domain.InventoryRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading report row %d: %w", len(rows)+2, err)
		}

		qty, _ := strconv.Atoi(field(record, "afn-fulfillable-quantity"))
		rows = append(rows, domain.InventoryRow{
			SKU:           field(record, "sku"),
			FNSKU:         field(record, "fnsku"),
			ASIN:          field(record, "asin"),
			ProductName:   field(record, "product-name"),
			Condition:     field(record, "condition"),
			Quantity:      qty,
			MarketplaceID: marketplaceID,
		})
	}
	return rows, nil
}
