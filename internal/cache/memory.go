package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sellerops/amazon-connector/internal/process"
)

// Memory is an in-process Cache for single-instance deployments and tests.
// Entries expire lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	nowFunc func() time.Time
}

type memoryEntry struct {
	marketplaceID string
	createdAt     time.Time
	rows          []process.Row
}

// MemoryOption configures the Memory cache.
type MemoryOption func(*Memory)

// WithMemoryTTL overrides the default entry TTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithMemoryNowFunc overrides the time source for testing.
func WithMemoryNowFunc(f func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.nowFunc = f
	}
}

// NewMemory creates an empty in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     DefaultTTL,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store implements Cache.
func (m *Memory) Store(_ context.Context, marketplaceID string, rows []process.Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc().UTC()
	key := newKey(marketplaceID, now)

	// Key collisions within one second keep the newer rows.
	m.entries[key] = memoryEntry{
		marketplaceID: marketplaceID,
		createdAt:     now,
		rows:          rows,
	}
	return key, nil
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]process.Row, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return entry.rows, nil
}

// Latest implements Cache.
func (m *Memory) Latest(ctx context.Context, marketplaceID string) (string, []process.Row, error) {
	entries, err := m.Entries(ctx, marketplaceID)
	if err != nil {
		return "", nil, err
	}
	if len(entries) == 0 {
		return "", nil, fmt.Errorf("%w: marketplace %s", ErrNotFound, marketplaceID)
	}

	rows, err := m.Get(ctx, entries[0].Key)
	if err != nil {
		return "", nil, err
	}
	return entries[0].Key, rows, nil
}

// Entries implements Cache.
func (m *Memory) Entries(_ context.Context, marketplaceID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []Entry
	for key, entry := range m.entries {
		if m.expired(entry) {
			continue
		}
		if marketplaceID != "" && entry.marketplaceID != marketplaceID {
			continue
		}
		entries = append(entries, Entry{
			Key:           key,
			MarketplaceID: entry.marketplaceID,
			CreatedAt:     entry.createdAt,
			RowCount:      len(entry.rows),
		})
	}

	sortEntries(entries)
	return entries, nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) expired(entry memoryEntry) bool {
	return m.nowFunc().Sub(entry.createdAt) > m.ttl
}
