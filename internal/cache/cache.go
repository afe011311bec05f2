// Package cache holds processed row sets between a fetch run and their
// download or save. Keys are processed_data_<marketplaceID>_<unix> so the
// newest set for a marketplace sorts last.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sellerops/amazon-connector/internal/process"
)

const keyPrefix = "processed_data_"

// DefaultTTL is how long a processed set stays retrievable.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when no cached set matches.
var ErrNotFound = errors.New("processed data not found")

// Entry describes one cached processed set.
type Entry struct {
	Key           string    `json:"key"`
	MarketplaceID string    `json:"marketplace_id"`
	CreatedAt     time.Time `json:"created_at"`
	RowCount      int       `json:"row_count"`
}

// Cache stores processed row sets.
type Cache interface {
	// Store saves rows under a fresh key for the marketplace and
	// returns that key.
	Store(ctx context.Context, marketplaceID string, rows []process.Row) (string, error)

	// Get returns the rows stored under key.
	Get(ctx context.Context, key string) ([]process.Row, error)

	// Latest returns the newest entry's key and rows for a marketplace.
	Latest(ctx context.Context, marketplaceID string) (string, []process.Row, error)

	// Entries lists cached sets, newest first, optionally filtered by
	// marketplace ("" lists all).
	Entries(ctx context.Context, marketplaceID string) ([]Entry, error)

	Close() error
}

// envelope is the stored representation of a processed set.
type envelope struct {
	MarketplaceID string        `json:"marketplace_id"`
	CreatedAt     time.Time     `json:"created_at"`
	Rows          []process.Row `json:"rows"`
}

func newKey(marketplaceID string, now time.Time) string {
	return keyPrefix + marketplaceID + "_" + strconv.FormatInt(now.Unix(), 10)
}

func keyMarketplace(key string) string {
	trimmed := strings.TrimPrefix(key, keyPrefix)
	i := strings.LastIndex(trimmed, "_")
	if i < 0 {
		return trimmed
	}
	return trimmed[:i]
}

func encode(marketplaceID string, rows []process.Row, now time.Time) ([]byte, error) {
	data, err := json.Marshal(envelope{
		MarketplaceID: marketplaceID,
		CreatedAt:     now,
		Rows:          rows,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding processed set: %w", err)
	}
	return data, nil
}

func decode(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decoding processed set: %w", err)
	}
	return env, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
