package spapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category classifies an API failure for retry and backoff decisions.
type Category string

// Error categories, ordered roughly by severity of backoff.
const (
	CategoryValidation         Category = "validation"
	CategoryAuthentication     Category = "authentication"
	CategoryRateLimit          Category = "rate_limit"
	CategoryServiceUnavailable Category = "service_unavailable"
	CategoryNetwork            Category = "network"
	CategoryUnknown            Category = "unknown"
)

// Sentinel errors surfaced by the client and its gates.
var (
	// ErrCircuitOpen is returned without a network call while a breaker
	// is open. It never consumes retry budget.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrReconnectRequired means the refresh token itself was rejected.
	// The stored credential is no longer usable and the seller must
	// reconnect their account.
	ErrReconnectRequired = errors.New("reconnection required: refresh token invalid or revoked")
)

// APIError is a classified SP-API failure. Category survives retry
// exhaustion so the presentation layer can map it to an actionable message.
type APIError struct {
	Category Category
	Status   int
	Code     string // SP-API error code, e.g. "InvalidInput"
	Message  string
	Err      error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sp-api %s (status %d, %s): %s", e.Category, e.Status, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("sp-api %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("sp-api %s (status %d): %s", e.Category, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error category may recover with backoff.
func (e *APIError) Retryable() bool {
	return e.Category != CategoryValidation
}

// classifyStatus maps an HTTP status plus SP-API error code to a category.
// Quota exhaustion arrives as 403 QuotaExceeded and is throttling, not an
// auth problem.
func classifyStatus(status int, code string) Category {
	switch {
	case status == 429 || code == "TooManyRequests" || code == "QuotaExceeded":
		return CategoryRateLimit
	case status == 401 || status == 403 || code == "Unauthorized" || code == "Forbidden" || code == "InvalidAccessToken":
		return CategoryAuthentication
	case status >= 500:
		return CategoryServiceUnavailable
	case status >= 400:
		// InvalidInput, NotFound and other request-shape problems.
		return CategoryValidation
	default:
		return CategoryUnknown
	}
}

// Classify returns the category of any error the fetch path can produce.
// It is a pure function so retry behavior stays testable without HTTP.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}

	if errors.Is(err, ErrReconnectRequired) {
		return CategoryAuthentication
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}

	return CategoryUnknown
}
