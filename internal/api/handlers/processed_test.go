package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/api/handlers"
	"github.com/sellerops/amazon-connector/internal/cache"
	"github.com/sellerops/amazon-connector/internal/process"
)

func seededCache(t *testing.T, marketplaceID string, rows []process.Row) (cache.Cache, string) {
	t.Helper()

	c := cache.NewMemory()
	key, err := c.Store(context.Background(), marketplaceID, rows)
	require.NoError(t, err)
	return c, key
}

func TestListProcessed(t *testing.T) {
	t.Parallel()

	c, _ := seededCache(t, "A1PA6795UKMFR9", []process.Row{
		{AmazonOrderID: "026-001", OrderItemID: "item-1"},
		{AmazonOrderID: "026-001", OrderItemID: "item-2"},
	})
	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(c))

	resp := api.Get("/api/v1/processed-data")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":1`)
	assert.Contains(t, resp.Body.String(), `"row_count":2`)
}

func TestListProcessed_MarketplaceFilter(t *testing.T) {
	t.Parallel()

	c, _ := seededCache(t, "A1PA6795UKMFR9", []process.Row{{AmazonOrderID: "026-001"}})
	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(c))

	resp := api.Get("/api/v1/processed-data?marketplace_id=ATVPDKIKX0DER")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total":0`)
}

func TestDownloadProcessed_CSV(t *testing.T) {
	t.Parallel()

	c, key := seededCache(t, "A1PA6795UKMFR9", []process.Row{
		{AmazonOrderID: "026-001", OrderItemID: "item-1", SKU: "SKU-1", Quantity: 2},
	})
	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(c))

	resp := api.Get("/api/v1/processed-data/" + key + "/download")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/csv", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), key+".csv")

	body := resp.Body.String()
	assert.Contains(t, body, "AmazonOrderId,OrderItemId,SKU,ASIN,Quantity")
	assert.Contains(t, body, "026-001,item-1,SKU-1,,2")
}

func TestDownloadProcessed_NotFound(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(cache.NewMemory()))

	resp := api.Get("/api/v1/processed-data/processed_data_nope_1/download")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadLatest(t *testing.T) {
	t.Parallel()

	c, _ := seededCache(t, "A1PA6795UKMFR9", []process.Row{
		{AmazonOrderID: "026-002", OrderItemID: "item-9"},
	})
	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(c))

	resp := api.Get("/api/v1/processed-data/latest/A1PA6795UKMFR9/download")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "026-002")
}

func TestDownloadLatest_NoData(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	handlers.RegisterProcessedRoutes(api, handlers.NewProcessedHandler(cache.NewMemory()))

	resp := api.Get("/api/v1/processed-data/latest/A1PA6795UKMFR9/download")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
