// Package domain defines the core business types for the Amazon connector.
package domain

import (
	"time"
)

// Order is a raw SP-API order record. Amazon's order schema is wide and
// changes over time, so everything beyond the identity fields stays in the
// Fields map exactly as returned by the API.
type Order struct {
	AmazonOrderID string         `json:"AmazonOrderId"`
	PurchaseDate  *time.Time     `json:"purchase_date,omitempty"`
	OrderStatus   string         `json:"order_status,omitempty"`
	SalesChannel  string         `json:"sales_channel,omitempty"`
	Fields        map[string]any `json:"fields"`

	// Items fetched for this order. Nil means the item fetch failed or
	// was never attempted; an empty slice means the order has no items.
	Items []OrderItem `json:"items"`
}

// OrderItem is a raw SP-API order line item, keyed back to its order.
type OrderItem struct {
	OrderID     string         `json:"order_id"`
	OrderItemID string         `json:"OrderItemId"`
	ASIN        string         `json:"asin,omitempty"`
	SellerSKU   string         `json:"seller_sku,omitempty"`
	Quantity    int            `json:"quantity_ordered"`
	Fields      map[string]any `json:"fields"`
}

// FailedOrder records an order whose item fetch was exhausted, with the
// error category preserved for user-facing mapping.
type FailedOrder struct {
	OrderID  string `json:"order_id"`
	Error    string `json:"error"`
	Category string `json:"category"`
}

// Performance breaks a fetch run's wall time into stages.
type Performance struct {
	TotalTime      time.Duration `json:"total_time"`
	FetchTime      time.Duration `json:"fetch_time"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// FetchSummary is the caller-facing result of a fetch run.
type FetchSummary struct {
	MarketplaceID string        `json:"marketplace_id"`
	OrdersFetched int           `json:"orders_fetched"`
	ItemsFetched  int           `json:"items_fetched"`
	FailedOrders  []FailedOrder `json:"failed_orders"`
	Performance   Performance   `json:"performance"`
}

// Credential holds the SP-API token set shared across fetch workers.
// Mutated only under the refresh coordinator's lock.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	ExpiresAt    time.Time `json:"expires_at"`
	AppID        string    `json:"app_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at,omitempty"`
}

// ActivityStatus enumerates activity record states.
type ActivityStatus string

// Activity status constants.
const (
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityFailed     ActivityStatus = "failed"
)

// ActivityType enumerates the kinds of recorded runs.
type ActivityType string

// Activity type constants.
const (
	ActivityFetch     ActivityType = "fetch"
	ActivityProcess   ActivityType = "process"
	ActivitySave      ActivityType = "save"
	ActivityInventory ActivityType = "inventory"
)

// Activity records a single fetch/process/save run for the dashboard.
type Activity struct {
	ID            string         `json:"id"                      db:"id"`
	MarketplaceID string         `json:"marketplace_id"          db:"marketplace_id"`
	Type          ActivityType   `json:"activity_type"           db:"activity_type"`
	DateFrom      time.Time      `json:"date_from"               db:"date_from"`
	DateTo        time.Time      `json:"date_to"                 db:"date_to"`
	Action        string         `json:"action"                  db:"action"` // manual, scheduled
	Status        ActivityStatus `json:"status"                  db:"status"`
	OrdersFetched int            `json:"orders_fetched"          db:"orders_fetched"`
	ItemsFetched  int            `json:"items_fetched"           db:"items_fetched"`
	Duration      float64        `json:"duration_seconds"        db:"duration_seconds"`
	Detail        string         `json:"detail,omitempty"        db:"detail"`
	ErrorMessage  string         `json:"error_message,omitempty" db:"error_message"`
	DatabaseSaved bool           `json:"database_saved"          db:"database_saved"`
	CreatedAt     time.Time      `json:"created_at"              db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"              db:"updated_at"`
}

// ActivityStats aggregates activity records for the stats endpoint.
type ActivityStats struct {
	Total         int            `json:"total"`
	Completed     int            `json:"completed"`
	Failed        int            `json:"failed"`
	InProgress    int            `json:"in_progress"`
	OrdersFetched int            `json:"orders_fetched"`
	ItemsFetched  int            `json:"items_fetched"`
	ByMarketplace map[string]int `json:"by_marketplace"`
}

// JobRun records a single execution of a scheduled job.
type JobRun struct {
	ID          string     `json:"id"                     db:"id"`
	JobName     string     `json:"job_name"               db:"job_name"`
	StartedAt   time.Time  `json:"started_at"             db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status      string     `json:"status"                 db:"status"`
	Error       string     `json:"error,omitempty"        db:"error"`
}

// Job run status constants.
const (
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
)

// InventoryRow is one decoded line of an FBA inventory report.
type InventoryRow struct {
	SKU           string `json:"sku"`
	FNSKU         string `json:"fnsku"`
	ASIN          string `json:"asin"`
	ProductName   string `json:"product_name"`
	Condition     string `json:"condition"`
	Quantity      int    `json:"quantity"`
	MarketplaceID string `json:"marketplace_id"`
}
