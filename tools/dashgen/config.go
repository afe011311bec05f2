package main

import "errors"

// KnownMetrics is the set of metric names exported by amazon-connector
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"amzc_http_request_duration_seconds": true,
	"amzc_http_requests_total":           true,

	// Health metrics.
	"amzc_healthz_up": true,
	"amzc_readyz_up":  true,

	// SP-API client metrics.
	"amzc_spapi_calls_total":       true,
	"amzc_rate_limit_wait_seconds": true,
	"amzc_token_refreshes_total":   true,

	// Circuit breaker metrics.
	"amzc_breaker_state":            true,
	"amzc_breaker_rejections_total": true,

	// Retry metrics.
	"amzc_retries_total":           true,
	"amzc_retries_exhausted_total": true,

	// Fetch pipeline metrics.
	"amzc_fetch_duration_seconds": true,
	"amzc_orders_fetched_total":   true,
	"amzc_items_fetched_total":    true,
	"amzc_failed_orders_total":    true,
	"amzc_batch_size":             true,

	// Sink metrics.
	"amzc_sink_rows_written_total": true,
	"amzc_sink_errors_total":       true,

	// Recording rules.
	"amzc:http_requests:rate5m":  true,
	"amzc:http_errors:rate5m":    true,
	"amzc:spapi_calls:rate5m":    true,
	"amzc:orders_fetched:rate5m": true,
	"amzc:retries:rate5m":        true,
	"amzc:sink_errors:rate5m":    true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
