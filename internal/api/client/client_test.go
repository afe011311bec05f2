package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/engine"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500)")
}

func TestClient_TriggerFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/fetch", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req fetchRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "A1PA6795UKMFR9", req.MarketplaceID)
		assert.Equal(t, "2026-08-01", req.DateFrom)
		assert.Equal(t, "2026-08-08", req.DateTo)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(engine.FetchOutcome{
			ActivityID: "act-1",
			RowCount:   12,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	outcome, err := c.TriggerFetch(
		context.Background(),
		"A1PA6795UKMFR9",
		"2026-08-01",
		"2026-08-08",
	)
	require.NoError(t, err)
	assert.Equal(t, "act-1", outcome.ActivityID)
	assert.Equal(t, 12, outcome.RowCount)
}

func TestClient_ListActivities(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/activities", r.URL.Path)
		assert.Equal(t, "A1PA6795UKMFR9", r.URL.Query().Get("marketplace_id"))
		assert.Equal(t, "failed", r.URL.Query().Get("status"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ActivityPage{
			Activities: []domain.Activity{{ID: "act-1", Status: domain.ActivityFailed}},
			Total:      1,
			Limit:      20,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	page, err := c.ListActivities(context.Background(), ActivityFilter{
		MarketplaceID: "A1PA6795UKMFR9",
		Status:        "failed",
		Limit:         20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Activities, 1)
	assert.Equal(t, "act-1", page.Activities[0].ID)
}

func TestClient_ListJobs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[{"id":"run-1","job_name":"fetch:A1PA6795UKMFR9"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	jobs, err := c.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "fetch:A1PA6795UKMFR9", jobs[0].JobName)
}

func TestClient_GetJobHistory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/fetch:A1PA6795UKMFR9/runs", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job":"fetch:A1PA6795UKMFR9","runs":[{"id":"run-2"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	runs, err := c.GetJobHistory(context.Background(), "fetch:A1PA6795UKMFR9", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
}

func TestClient_Connect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/connect", r.URL.Path)

		var req ConnectRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "refresh-abc", req.RefreshToken)
		assert.Equal(t, "client-id", req.ClientID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"connected","connected_at":"2026-08-30T12:00:00Z"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	result, err := c.Connect(context.Background(), ConnectRequest{
		RefreshToken: "refresh-abc",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "connected", result.Status)
	assert.False(t, result.ConnectedAt.IsZero())
}

func TestClient_DownloadProcessed(t *testing.T) {
	t.Parallel()

	csv := "AmazonOrderId,OrderItemId,SKU\n026-001,item-1,SKU-1\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/processed-data/processed_data_de_1/download", r.URL.Path)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csv))
	}))
	defer srv.Close()

	c := New(srv.URL)
	data, err := c.DownloadProcessed(context.Background(), "processed_data_de_1")
	require.NoError(t, err)
	assert.Equal(t, csv, string(data))
}

func TestClient_ListMarketplaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/marketplaces", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(
			`{"marketplaces":[{"code":"DE","marketplace_id":"A1PA6795UKMFR9","region":"eu"}]}`,
		))
	}))
	defer srv.Close()

	c := New(srv.URL)
	markets, err := c.ListMarketplaces(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "A1PA6795UKMFR9", markets[0].MarketplaceID)
}
