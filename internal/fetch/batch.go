// Package fetch drives the order and order-item fetch pipeline: sequential
// cursor pagination, adaptively sized concurrent item batches, and a
// single-order recovery pass for exhausted failures.
package fetch

import (
	"fmt"

	"github.com/sellerops/amazon-connector/internal/metrics"
)

// Batch sizing defaults. The item endpoint refills at a third of a token a
// second, so growth is deliberately slow and shrink is quick.
const (
	DefaultBatchSize = 10
	MinBatchSize     = 5
	MaxBatchSize     = 20

	// Worker ceiling per batch. Kept small so a batch never bursts past
	// the item endpoint's refill rate even when the bucket holds tokens.
	DefaultWorkerCeiling = 3

	// A batch with less than 10% failures counts toward growth.
	lowFailureRate = 0.10

	growAfterBatches   = 3
	shrinkAfterBatches = 2
)

// BatchController adjusts the item-fetch batch size from observed failure
// rates. One instance belongs to one fetch session; concurrent sessions
// each own their own and never share sizing state.
type BatchController struct {
	size int
	min  int
	max  int

	consecutiveSuccesses int
	consecutiveFailures  int
}

// NewBatchController creates a controller starting at initial, clamped
// between min and max for its whole lifetime.
func NewBatchController(initial, minSize, maxSize int) (*BatchController, error) {
	if minSize < 1 {
		return nil, fmt.Errorf("batch controller: min size must be >= 1, got %d", minSize)
	}
	if maxSize < minSize {
		return nil, fmt.Errorf("batch controller: max size %d below min %d", maxSize, minSize)
	}
	if initial < minSize || initial > maxSize {
		return nil, fmt.Errorf("batch controller: initial size %d outside [%d, %d]", initial, minSize, maxSize)
	}
	return &BatchController{size: initial, min: minSize, max: maxSize}, nil
}

// Size returns the batch size to use for the next batch.
func (c *BatchController) Size() int {
	return c.size
}

// Workers returns the bounded pool size for a batch: min(ceiling, size),
// never below one. A zero-worker pool would leave the batch's job sends
// with no receiver.
func (c *BatchController) Workers(ceiling int) int {
	if ceiling < 1 {
		return 1
	}
	if ceiling < c.size {
		return ceiling
	}
	return c.size
}

// Observe feeds one completed batch's outcome into the sizing state. The
// low-failure boundary is strict: a batch failing exactly 10% of its orders
// does not count toward growth.
func (c *BatchController) Observe(batchSize, failureCount int) {
	if batchSize <= 0 {
		return
	}

	failureRate := float64(failureCount) / float64(batchSize)

	if failureRate < lowFailureRate {
		c.consecutiveFailures = 0
		c.consecutiveSuccesses++
		if c.consecutiveSuccesses >= growAfterBatches && c.size < c.max {
			c.size++
			c.consecutiveSuccesses = 0
		}
	} else {
		c.consecutiveSuccesses = 0
		c.consecutiveFailures++
		if c.consecutiveFailures >= shrinkAfterBatches && c.size > c.min {
			c.size--
			c.consecutiveFailures = 0
		}
	}

	metrics.BatchSize.Set(float64(c.size))
}
