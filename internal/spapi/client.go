// Package spapi implements the Amazon Selling Partner API client: token
// refresh coordination, per-endpoint token-bucket rate limiting, circuit
// breaking, categorized retry backoff, and the orders/items call surface.
//
// Rate limits follow Amazon's published values for the Orders API:
// getOrders 0.0167 req/s with burst, getOrderItems 0.5 req/s with burst.
// Both are configured below the published numbers to stay clear of
// throttling under concurrent marketplaces.
package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sellerops/amazon-connector/internal/metrics"
	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// Endpoint classes. Each class gets its own bucket and breaker, shared by
// every worker in the process targeting that class.
const (
	EndpointOrders  = "orders"
	EndpointItems   = "items"
	EndpointReports = "reports"
)

// Conservative rate configuration, below Amazon's published limits.
const (
	ordersRefillRate = 0.0167 // one token a minute
	ordersBurst      = 10.0
	itemsRefillRate  = 0.33 // one token every ~3s
	itemsBurst       = 15.0

	defaultFailureThreshold = 5
	defaultRecoveryTimeout  = 60 * time.Second
	defaultRequestTimeout   = 60 * time.Second

	ordersPath     = "/orders/v0/orders"
	orderItemsPath = "/orders/v0/orders/%s/orderItems"

	maxResultsPerPage = 100
)

// orderStatuses is the status filter applied to every order listing.
const orderStatuses = "Shipped,Unshipped,PartiallyShipped,Canceled,Unfulfillable"

// OrdersAPI is the call surface the fetch orchestrator depends on.
type OrdersAPI interface {
	ListOrders(ctx context.Context, req ListOrdersRequest) (*OrdersPage, error)
	GetOrderItems(ctx context.Context, marketplaceID, orderID string, p Priority) ([]domain.OrderItem, error)
}

// ListOrdersRequest describes one page of an order listing.
type ListOrdersRequest struct {
	MarketplaceID string
	CreatedAfter  string // ISO 8601
	CreatedBefore string // ISO 8601
	NextToken     string
	Priority      Priority
}

// OrdersPage is one page of results plus the continuation cursor. An empty
// NextToken means pagination is done.
type OrdersPage struct {
	Orders    []domain.Order
	NextToken string
}

// gate bundles the shared per-endpoint-class protections.
type gate struct {
	bucket  *TokenBucket
	breaker *CircuitBreaker
}

// Client talks to SP-API with breaker -> rate limit -> HTTP on every call.
// It owns one gate per endpoint class; retry policy is layered on top by
// the orchestrator so classification stays independent of transport.
type Client struct {
	tokens     TokenProvider
	httpClient *http.Client
	log        *slog.Logger

	orders gate
	items  gate

	// baseURL overrides marketplace endpoint resolution when set (tests).
	baseURL string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithClientHTTPClient overrides the HTTP client.
func WithClientHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientBaseURL pins all calls to one base URL instead of resolving
// the marketplace's regional endpoint.
func WithClientBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// WithOrdersGate replaces the orders bucket and breaker.
func WithOrdersGate(b *TokenBucket, cb *CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.orders = gate{bucket: b, breaker: cb}
	}
}

// WithItemsGate replaces the items bucket and breaker.
func WithItemsGate(b *TokenBucket, cb *CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.items = gate{bucket: b, breaker: cb}
	}
}

// NewClient creates an SP-API client with default gates for the orders and
// items endpoint classes.
func NewClient(tokens TokenProvider, opts ...ClientOption) (*Client, error) {
	ordersBucket, err := NewTokenBucket(EndpointOrders, ordersRefillRate, ordersBurst)
	if err != nil {
		return nil, err
	}
	itemsBucket, err := NewTokenBucket(EndpointItems, itemsRefillRate, itemsBurst)
	if err != nil {
		return nil, err
	}

	c := &Client{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		log:        slog.Default(),
		orders: gate{
			bucket:  ordersBucket,
			breaker: NewCircuitBreaker(EndpointOrders, defaultFailureThreshold, defaultRecoveryTimeout),
		},
		items: gate{
			bucket:  itemsBucket,
			breaker: NewCircuitBreaker(EndpointItems, defaultFailureThreshold, defaultRecoveryTimeout),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// spAPIError is the error element of an SP-API error payload.
type spAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type spAPIErrorBody struct {
	Errors []spAPIError `json:"errors"`
}

// ordersPayload is the subset of the getOrders response the core reads: the
// raw order maps plus the continuation cursor.
type ordersPayload struct {
	Payload struct {
		Orders    []map[string]any `json:"Orders"`
		NextToken string           `json:"NextToken"`
	} `json:"payload"`
}

type orderItemsPayload struct {
	Payload struct {
		OrderItems []map[string]any `json:"OrderItems"`
	} `json:"payload"`
}

// ListOrders fetches one page of orders created in the request's window.
func (c *Client) ListOrders(ctx context.Context, req ListOrdersRequest) (*OrdersPage, error) {
	query := url.Values{}
	query.Set("MarketplaceIds", req.MarketplaceID)
	query.Set("CreatedAfter", req.CreatedAfter)
	query.Set("CreatedBefore", req.CreatedBefore)
	query.Set("OrderStatuses", orderStatuses)
	query.Set("MaxResultsPerPage", strconv.Itoa(maxResultsPerPage))
	if req.NextToken != "" {
		query.Set("NextToken", req.NextToken)
	}

	body, err := c.Call(ctx, req.MarketplaceID, http.MethodGet, ordersPath, query, nil, EndpointOrders, req.Priority)
	if err != nil {
		return nil, err
	}

	var resp ordersPayload
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing orders response: %w", err)
	}

	page := &OrdersPage{NextToken: resp.Payload.NextToken}
	for _, raw := range resp.Payload.Orders {
		page.Orders = append(page.Orders, decodeOrder(raw))
	}
	return page, nil
}

// GetOrderItems fetches the line items for one order.
func (c *Client) GetOrderItems(
	ctx context.Context,
	marketplaceID, orderID string,
	p Priority,
) ([]domain.OrderItem, error) {
	path := fmt.Sprintf(orderItemsPath, url.PathEscape(orderID))

	body, err := c.Call(ctx, marketplaceID, http.MethodGet, path, nil, nil, EndpointItems, p)
	if err != nil {
		return nil, err
	}

	var resp orderItemsPayload
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing order items response: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(resp.Payload.OrderItems))
	for _, raw := range resp.Payload.OrderItems {
		items = append(items, decodeOrderItem(orderID, raw))
	}
	return items, nil
}

// Call is the generic request primitive: breaker gate, rate limit acquire,
// HTTP round trip, then status classification. The reports endpoint class
// carries no gate; its limiter lives with the report poller.
func (c *Client) Call(
	ctx context.Context,
	marketplaceID, method, path string,
	query url.Values,
	reqBody any,
	class string,
	p Priority,
) ([]byte, error) {
	g := c.gateFor(class)

	if g.breaker != nil {
		if err := g.breaker.Allow(); err != nil {
			metrics.BreakerRejectionsTotal.WithLabelValues(class).Inc()
			return nil, fmt.Errorf("%s: %w", class, err)
		}
	}

	if g.bucket != nil {
		if err := g.bucket.Acquire(ctx, p); err != nil {
			c.cancelProbe(g)
			return nil, err
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.cancelProbe(g)
		return nil, err
	}

	u := c.resolveBase(marketplaceID) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			c.cancelProbe(g)
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		c.cancelProbe(g)
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-amz-access-token", token)
	req.Header.Set("x-amz-date", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "amazon-connector/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := &APIError{Category: CategoryNetwork, Err: err}
		c.observe(g, class, 0, apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := &APIError{Category: CategoryNetwork, Err: err}
		c.observe(g, class, resp.StatusCode, apiErr)
		return nil, apiErr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.observe(g, class, resp.StatusCode, nil)
		return respBody, nil
	}

	apiErr := c.buildAPIError(resp.StatusCode, respBody)
	c.observe(g, class, resp.StatusCode, apiErr)
	return nil, apiErr
}

// OrdersBreaker exposes the orders breaker for status reporting.
func (c *Client) OrdersBreaker() *CircuitBreaker { return c.orders.breaker }

// ItemsBreaker exposes the items breaker for status reporting.
func (c *Client) ItemsBreaker() *CircuitBreaker { return c.items.breaker }

func (c *Client) gateFor(class string) gate {
	switch class {
	case EndpointOrders:
		return c.orders
	case EndpointItems:
		return c.items
	default:
		return gate{}
	}
}

func (c *Client) resolveBase(marketplaceID string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return Endpoint(marketplaceID)
}

// buildAPIError classifies a non-2xx response using the SP-API error code
// when one is present.
func (c *Client) buildAPIError(status int, body []byte) *APIError {
	var errBody spAPIErrorBody
	_ = json.Unmarshal(body, &errBody) //nolint:errcheck // best-effort error parsing

	code, message := "", ""
	if len(errBody.Errors) > 0 {
		code = errBody.Errors[0].Code
		message = errBody.Errors[0].Message
	}
	if message == "" {
		message = truncate(string(body), 200)
	}

	return &APIError{
		Category: classifyStatus(status, code),
		Status:   status,
		Code:     code,
		Message:  message,
	}
}

// observe records the call against metrics and the breaker. Validation and
// authentication failures never count toward the failure threshold: they say
// nothing about upstream health. They still resolve a half-open probe as a
// success, because the upstream answered; a probe must always end in CLOSED
// or OPEN, never hold its slot.
func (c *Client) observe(g gate, class string, status int, apiErr *APIError) {
	metrics.APICallsTotal.WithLabelValues(class, strconv.Itoa(status)).Inc()

	if g.breaker == nil {
		return
	}
	if apiErr == nil {
		g.breaker.RecordSuccess()
		return
	}
	switch apiErr.Category {
	case CategoryNetwork, CategoryServiceUnavailable, CategoryRateLimit:
		g.breaker.RecordFailure()
	case CategoryValidation, CategoryAuthentication, CategoryUnknown:
		g.breaker.RecordSuccess()
	}
}

// cancelProbe frees an admitted half-open slot when the call exits before an
// upstream outcome exists.
func (c *Client) cancelProbe(g gate) {
	if g.breaker != nil {
		g.breaker.CancelProbe()
	}
}

func decodeOrder(raw map[string]any) domain.Order {
	o := domain.Order{Fields: raw}
	o.AmazonOrderID, _ = raw["AmazonOrderId"].(string)
	o.OrderStatus, _ = raw["OrderStatus"].(string)
	o.SalesChannel, _ = raw["SalesChannel"].(string)
	if s, ok := raw["PurchaseDate"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			o.PurchaseDate = &t
		}
	}
	return o
}

func decodeOrderItem(orderID string, raw map[string]any) domain.OrderItem {
	it := domain.OrderItem{OrderID: orderID, Fields: raw}
	it.OrderItemID, _ = raw["OrderItemId"].(string)
	it.ASIN, _ = raw["ASIN"].(string)
	it.SellerSKU, _ = raw["SellerSKU"].(string)
	if q, ok := raw["QuantityOrdered"].(float64); ok {
		it.Quantity = int(q)
	}
	return it
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
