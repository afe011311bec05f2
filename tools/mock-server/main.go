// Package main implements a mock Selling Partner API server for local
// development. It serves canned orders from a JSON fixture and simulates the
// LWA token endpoint and the inventory report cycle without requiring real
// Amazon credentials.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// ordersFixture is the fixture file layout: raw orders with their items
// inlined under the "items" key. The server splits them across the orders
// and orderItems endpoints the way the real API does.
type ordersFixture struct {
	Orders []fixtureOrder `json:"orders"`
}

type fixtureOrder struct {
	Order map[string]any   `json:"order"`
	Items []map[string]any `json:"items"`
}

func (f fixtureOrder) id() string {
	id, _ := f.Order["AmazonOrderId"].(string)
	return id
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/orders.json", "path to orders fixture")
	pageSize := flag.Int("page-size", 2, "orders per page, to exercise NextToken paging")
	reportPolls := flag.Int("report-polls", 2, "IN_PROGRESS polls before an inventory report finishes")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "orders", len(fixture.Orders))

	addr := fmt.Sprintf(":%d", *port)
	reports := newReportTracker(*reportPolls, fmt.Sprintf("http://localhost%s", addr))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/o2/token", tokenHandler(logger))
	mux.HandleFunc("GET /orders/v0/orders", ordersHandler(logger, fixture, *pageSize))
	mux.HandleFunc("GET /orders/v0/orders/{orderID}/orderItems", orderItemsHandler(logger, fixture))
	mux.HandleFunc("POST /reports/2021-06-30/reports", reports.create(logger))
	mux.HandleFunc("GET /reports/2021-06-30/reports/{reportID}", reports.status(logger))
	mux.HandleFunc("GET /reports/2021-06-30/documents/{documentID}", reports.document)
	mux.HandleFunc("GET /mock/inventory.tsv", inventoryDocumentHandler)

	logger.Info("starting mock SP-API server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*ordersFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f ordersFixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func tokenHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostFormValue("refresh_token") == "" {
			logger.Warn("token request missing refresh_token")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_grant",
				"error_description": "refresh token is missing or invalid",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "mock-token-" + strconv.FormatInt(time.Now().Unix(), 16),
			"token_type":   "bearer",
			"expires_in":   3600,
		})
		logger.Info("issued mock token")
	}
}

// ordersHandler pages through the fixture orders. NextToken is the numeric
// offset of the next page.
func ordersHandler(logger *slog.Logger, fixture *ordersFixture, pageSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-amz-access-token") == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "missing access token"})
			return
		}

		offset := 0
		if tok := r.URL.Query().Get("NextToken"); tok != "" {
			if v, err := strconv.Atoi(tok); err == nil && v >= 0 {
				offset = v
			}
		}

		end := min(offset+pageSize, len(fixture.Orders))
		orders := make([]map[string]any, 0, end-offset)
		for _, fo := range fixture.Orders[offset:end] {
			orders = append(orders, fo.Order)
		}

		next := ""
		if end < len(fixture.Orders) {
			next = strconv.Itoa(end)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"payload": map[string]any{
				"Orders":    orders,
				"NextToken": next,
			},
		})
		logger.Info("orders page served", "offset", offset, "returned", len(orders), "next", next)
	}
}

func orderItemsHandler(logger *slog.Logger, fixture *ordersFixture) http.HandlerFunc {
	byID := make(map[string][]map[string]any, len(fixture.Orders))
	for _, fo := range fixture.Orders {
		byID[fo.id()] = fo.Items
	}

	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.PathValue("orderID")
		items, ok := byID[orderID]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		if items == nil {
			items = []map[string]any{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"payload": map[string]any{
				"OrderItems": items,
			},
		})
		logger.Info("order items served", "order_id", orderID, "items", len(items))
	}
}

// reportTracker simulates the create-poll-download report cycle: each
// report stays IN_PROGRESS for a fixed number of polls, then finishes.
type reportTracker struct {
	mu          sync.Mutex
	nextID      int
	polls       map[string]int
	pollsNeeded int
	baseURL     string
}

func newReportTracker(pollsNeeded int, baseURL string) *reportTracker {
	return &reportTracker{
		polls:       map[string]int{},
		pollsNeeded: pollsNeeded,
		baseURL:     baseURL,
	}
}

func (t *reportTracker) create(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		t.mu.Lock()
		t.nextID++
		reportID := "mock-report-" + strconv.Itoa(t.nextID)
		t.polls[reportID] = 0
		t.mu.Unlock()

		writeJSON(w, http.StatusAccepted, map[string]string{"reportId": reportID})
		logger.Info("report created", "report_id", reportID)
	}
}

func (t *reportTracker) status(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := r.PathValue("reportID")

		t.mu.Lock()
		polled, ok := t.polls[reportID]
		if ok {
			t.polls[reportID]++
		}
		t.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
			return
		}

		if polled < t.pollsNeeded {
			writeJSON(w, http.StatusOK, map[string]string{"processingStatus": "IN_PROGRESS"})
			logger.Info("report still processing", "report_id", reportID, "poll", polled+1)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"processingStatus": "DONE",
			"reportDocumentId": "doc-" + reportID,
		})
		logger.Info("report finished", "report_id", reportID)
	}
}

func (t *reportTracker) document(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"url": t.baseURL + "/mock/inventory.tsv",
	})
	_ = r
}

const inventoryTSV = "sku\tfnsku\tasin\tproduct-name\tcondition\tafn-fulfillable-quantity\n" +
	"SKU-WIDGET-1\tX0001ABCD\tB08XYZ1111\tWidget Classic\tNEW\t42\n" +
	"SKU-WIDGET-2\tX0002EFGH\tB08XYZ2222\tWidget Deluxe\tNEW\t7\n"

func inventoryDocumentHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/tab-separated-values")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	w.Write([]byte(inventoryTSV))
}
