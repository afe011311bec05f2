package spapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/amazon-connector/internal/spapi"
)

// staticTokens is a TokenProvider that always returns the same token.
type staticTokens struct {
	token string
}

func (s *staticTokens) Token(context.Context) (string, error)        { return s.token, nil }
func (s *staticTokens) ForceRefresh(context.Context) (string, error) { return s.token, nil }

// fastGates returns wide-open gates so client tests never rate limit.
func fastGates(t *testing.T) []spapi.ClientOption {
	t.Helper()

	ordersBucket, err := spapi.NewTokenBucket("orders", 1000, 1000)
	require.NoError(t, err)
	itemsBucket, err := spapi.NewTokenBucket("items", 1000, 1000)
	require.NoError(t, err)

	return []spapi.ClientOption{
		spapi.WithOrdersGate(ordersBucket, spapi.NewCircuitBreaker("orders", 5, time.Minute)),
		spapi.WithItemsGate(itemsBucket, spapi.NewCircuitBreaker("items", 5, time.Minute)),
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, extra ...spapi.ClientOption) *spapi.Client {
	t.Helper()

	opts := append(fastGates(t), spapi.WithClientBaseURL(srv.URL))
	opts = append(opts, extra...)

	c, err := spapi.NewClient(&staticTokens{token: "test-token"}, opts...)
	require.NoError(t, err)
	return c
}

func TestClient_ListOrders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/v0/orders", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("x-amz-access-token"))

		q := r.URL.Query()
		assert.Equal(t, "ATVPDKIKX0DER", q.Get("MarketplaceIds"))
		assert.Equal(t, "2025-06-01T00:00:00Z", q.Get("CreatedAfter"))
		assert.Equal(t, "100", q.Get("MaxResultsPerPage"))
		assert.Contains(t, q.Get("OrderStatuses"), "Shipped")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"payload": {
				"Orders": [
					{
						"AmazonOrderId": "111-1111111-1111111",
						"OrderStatus": "Shipped",
						"SalesChannel": "Amazon.com",
						"PurchaseDate": "2025-06-01T10:30:00Z",
						"OrderTotal": {"CurrencyCode": "USD", "Amount": "42.99"}
					},
					{
						"AmazonOrderId": "111-2222222-2222222",
						"OrderStatus": "Unshipped"
					}
				],
				"NextToken": "page-2-token"
			}
		}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)

	page, err := c.ListOrders(context.Background(), spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
		Priority:      spapi.PriorityNormal,
	})
	require.NoError(t, err)

	assert.Equal(t, "page-2-token", page.NextToken)
	require.Len(t, page.Orders, 2)

	first := page.Orders[0]
	assert.Equal(t, "111-1111111-1111111", first.AmazonOrderID)
	assert.Equal(t, "Shipped", first.OrderStatus)
	assert.Equal(t, "Amazon.com", first.SalesChannel)
	require.NotNil(t, first.PurchaseDate)
	assert.Equal(t, 2025, first.PurchaseDate.Year())

	// The full raw order survives in Fields for downstream processing.
	assert.Contains(t, first.Fields, "OrderTotal")
}

func TestClient_ListOrders_NextTokenForwarded(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "page-2-token", r.URL.Query().Get("NextToken"))
		_, _ = w.Write([]byte(`{"payload": {"Orders": []}}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)

	page, err := c.ListOrders(context.Background(), spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
		NextToken:     "page-2-token",
	})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Empty(t, page.NextToken)
}

func TestClient_GetOrderItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/v0/orders/111-1111111-1111111/orderItems", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"payload": {
				"OrderItems": [
					{
						"OrderItemId": "item-1",
						"ASIN": "B000TEST01",
						"SellerSKU": "SKU-1",
						"QuantityOrdered": 2,
						"ItemPrice": {"CurrencyCode": "USD", "Amount": "19.99"}
					}
				]
			}
		}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)

	items, err := c.GetOrderItems(context.Background(), "ATVPDKIKX0DER", "111-1111111-1111111", spapi.PriorityNormal)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "111-1111111-1111111", item.OrderID)
	assert.Equal(t, "item-1", item.OrderItemID)
	assert.Equal(t, "B000TEST01", item.ASIN)
	assert.Equal(t, "SKU-1", item.SellerSKU)
	assert.Equal(t, 2, item.Quantity)
	assert.Contains(t, item.Fields, "ItemPrice")
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantCategory spapi.Category
		wantCode     string
	}{
		{
			name:         "429 is throttling",
			status:       http.StatusTooManyRequests,
			body:         `{"errors":[{"code":"TooManyRequests","message":"slow down"}]}`,
			wantCategory: spapi.CategoryRateLimit,
			wantCode:     "TooManyRequests",
		},
		{
			name:         "quota exhaustion on 403 is throttling not auth",
			status:       http.StatusForbidden,
			body:         `{"errors":[{"code":"QuotaExceeded","message":"quota exceeded"}]}`,
			wantCategory: spapi.CategoryRateLimit,
			wantCode:     "QuotaExceeded",
		},
		{
			name:         "401 is authentication",
			status:       http.StatusUnauthorized,
			body:         `{"errors":[{"code":"Unauthorized","message":"token expired"}]}`,
			wantCategory: spapi.CategoryAuthentication,
			wantCode:     "Unauthorized",
		},
		{
			name:         "plain 403 is authentication",
			status:       http.StatusForbidden,
			body:         `{"errors":[{"code":"Forbidden","message":"no access"}]}`,
			wantCategory: spapi.CategoryAuthentication,
			wantCode:     "Forbidden",
		},
		{
			name:         "500 is service unavailable",
			status:       http.StatusInternalServerError,
			body:         `{"errors":[{"code":"InternalFailure","message":"boom"}]}`,
			wantCategory: spapi.CategoryServiceUnavailable,
			wantCode:     "InternalFailure",
		},
		{
			name:         "503 is service unavailable",
			status:       http.StatusServiceUnavailable,
			body:         `{"errors":[{"code":"ServiceUnavailable","message":"try later"}]}`,
			wantCategory: spapi.CategoryServiceUnavailable,
			wantCode:     "ServiceUnavailable",
		},
		{
			name:         "400 is validation",
			status:       http.StatusBadRequest,
			body:         `{"errors":[{"code":"InvalidInput","message":"bad CreatedAfter"}]}`,
			wantCategory: spapi.CategoryValidation,
			wantCode:     "InvalidInput",
		},
		{
			name:         "404 is validation",
			status:       http.StatusNotFound,
			body:         `{"errors":[{"code":"NotFound","message":"no such order"}]}`,
			wantCategory: spapi.CategoryValidation,
			wantCode:     "NotFound",
		},
		{
			name:         "unparseable error body still classifies",
			status:       http.StatusInternalServerError,
			body:         `<html>gateway error</html>`,
			wantCategory: spapi.CategoryServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			c := newTestClient(t, srv)

			_, err := c.ListOrders(context.Background(), spapi.ListOrdersRequest{
				MarketplaceID: "ATVPDKIKX0DER",
				CreatedAfter:  "2025-06-01T00:00:00Z",
				CreatedBefore: "2025-06-02T00:00:00Z",
			})
			require.Error(t, err)

			var apiErr *spapi.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCategory, apiErr.Category)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestClient_BreakerTripsOnRepeatedOutage(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"errors":[{"code":"ServiceUnavailable","message":"down"}]}`))
	}))
	t.Cleanup(srv.Close)

	bucket, err := spapi.NewTokenBucket("orders", 1000, 1000)
	require.NoError(t, err)
	breaker := spapi.NewCircuitBreaker("orders", 3, time.Minute)

	c := newTestClient(t, srv, spapi.WithOrdersGate(bucket, breaker))

	req := spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
	}

	for range 3 {
		_, err := c.ListOrders(context.Background(), req)
		require.Error(t, err)
	}
	require.Equal(t, spapi.StateOpen, breaker.State())

	// The open breaker fails fast without touching the server.
	_, err = c.ListOrders(context.Background(), req)
	assert.ErrorIs(t, err, spapi.ErrCircuitOpen)
	assert.Equal(t, 3, hits)
}

func TestClient_ValidationDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"code":"InvalidInput","message":"bad request"}]}`))
	}))
	t.Cleanup(srv.Close)

	bucket, err := spapi.NewTokenBucket("orders", 1000, 1000)
	require.NoError(t, err)
	breaker := spapi.NewCircuitBreaker("orders", 2, time.Minute)

	c := newTestClient(t, srv, spapi.WithOrdersGate(bucket, breaker))

	req := spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
	}

	for range 5 {
		_, err := c.ListOrders(context.Background(), req)
		require.Error(t, err)
	}

	assert.Equal(t, spapi.StateClosed, breaker.State())
	assert.Equal(t, 0, breaker.FailureCount())
}

func TestClient_AuthAnsweredProbeClosesBreaker(t *testing.T) {
	t.Parallel()

	var step int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch step {
		case 0:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"errors":[{"code":"InternalFailure","message":"boom"}]}`))
		case 1:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"code":"Unauthorized","message":"token expired"}]}`))
		default:
			_, _ = w.Write([]byte(`{"payload": {"Orders": []}}`))
		}
	}))
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	bucket, err := spapi.NewTokenBucket("orders", 1000, 1000)
	require.NoError(t, err)
	breaker := spapi.NewCircuitBreaker("orders", 1, 30*time.Second, spapi.WithBreakerNowFunc(clock.Now))

	c := newTestClient(t, srv, spapi.WithOrdersGate(bucket, breaker))

	req := spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
	}

	// One countable failure trips the breaker.
	_, err = c.ListOrders(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, spapi.StateOpen, breaker.State())

	// After the recovery window a probe is admitted. The upstream answers
	// 401: not a breaker-countable failure, but still an answer, so the
	// probe resolves and the breaker closes instead of wedging half-open.
	step = 1
	clock.Advance(31 * time.Second)
	_, err = c.ListOrders(context.Background(), req)
	require.Error(t, err)

	var apiErr *spapi.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, spapi.CategoryAuthentication, apiErr.Category)
	require.Equal(t, spapi.StateClosed, breaker.State())

	// With the upstream healthy again, calls flow normally.
	step = 2
	_, err = c.ListOrders(context.Background(), req)
	assert.NoError(t, err)
}

// failOnceTokens fails the first Token call and succeeds afterward.
type failOnceTokens struct {
	failed bool
}

func (f *failOnceTokens) Token(context.Context) (string, error) {
	if !f.failed {
		f.failed = true
		return "", errors.New("lwa unavailable")
	}
	return "test-token", nil
}

func (f *failOnceTokens) ForceRefresh(context.Context) (string, error) {
	return "test-token", nil
}

func TestClient_ProbeWithoutOutcomeFreesSlot(t *testing.T) {
	t.Parallel()

	var step int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if step == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"errors":[{"code":"ServiceUnavailable","message":"down"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"payload": {"Orders": []}}`))
	}))
	t.Cleanup(srv.Close)

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	bucket, err := spapi.NewTokenBucket("orders", 1000, 1000)
	require.NoError(t, err)
	breaker := spapi.NewCircuitBreaker("orders", 1, 30*time.Second, spapi.WithBreakerNowFunc(clock.Now))

	c, err := spapi.NewClient(&failOnceTokens{failed: true},
		spapi.WithClientBaseURL(srv.URL),
		spapi.WithOrdersGate(bucket, breaker),
	)
	require.NoError(t, err)

	req := spapi.ListOrdersRequest{
		MarketplaceID: "ATVPDKIKX0DER",
		CreatedAfter:  "2025-06-01T00:00:00Z",
		CreatedBefore: "2025-06-02T00:00:00Z",
	}

	_, err = c.ListOrders(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, spapi.StateOpen, breaker.State())

	// The admitted probe dies before reaching the upstream (token fetch
	// fails). The slot must come free so the next call can probe.
	step = 1
	clock.Advance(31 * time.Second)
	c2, err := spapi.NewClient(&failOnceTokens{},
		spapi.WithClientBaseURL(srv.URL),
		spapi.WithOrdersGate(bucket, breaker),
	)
	require.NoError(t, err)

	_, err = c2.ListOrders(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, spapi.StateHalfOpen, breaker.State())

	// Next call is admitted as a fresh probe and closes the breaker.
	_, err = c2.ListOrders(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, spapi.StateClosed, breaker.State())
}
