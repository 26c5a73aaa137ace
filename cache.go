package arbor

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/arbor/dialect/sql"
)

// Cache stores encoded result sets for Query.Remember. Implementations
// own their expiry policy; Get must not return expired entries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// MemoryCache is an in-process Cache with per-entry expiry. Like the
// query log it is unsynchronized; callers running queries from multiple
// goroutines must wrap it.
type MemoryCache struct {
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns the entry's value when present and unexpired. Expired
// entries are evicted on access.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if nowFunc().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores the value for ttl.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.entries[key] = memoryEntry{value: value, expiresAt: nowFunc().Add(ttl)}
}

// Delete evicts the entry.
func (m *MemoryCache) Delete(_ context.Context, key string) {
	delete(m.entries, key)
}

// Flush drops every entry.
func (m *MemoryCache) Flush() {
	m.entries = make(map[string]memoryEntry)
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int { return len(m.entries) }

// rememberRows serves the statement's row maps from the client's cache,
// executing and storing on miss. The key is the rendered SQL plus its
// bindings, so equivalent builder states share an entry.
func rememberRows(ctx context.Context, c *Client, q sql.Querier, ttl time.Duration) ([]map[string]any, error) {
	stmt, args := q.Query()
	key := cacheKey(stmt, args)
	if raw, ok := c.cache.Get(ctx, key); ok {
		var rows []map[string]any
		if err := msgpack.Unmarshal(raw, &rows); err == nil {
			return rows, nil
		}
		// Undecodable entry; fall through and overwrite.
		c.cache.Delete(ctx, key)
	}
	rows, err := c.query(ctx, sql.Raw(stmt, args...))
	if err != nil {
		return nil, err
	}
	raw, err := msgpack.Marshal(rows)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, key, raw, ttl)
	return rows, nil
}

func cacheKey(stmt string, args []any) string {
	return fmt.Sprintf("%s|%v", stmt, args)
}
