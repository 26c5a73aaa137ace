package arbor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)

	cache.Set(ctx, "k", []byte("v"), time.Minute)
	v, ok := cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, cache.Len())

	cache.Delete(ctx, "k")
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)

	cache.Set(ctx, "a", []byte("1"), time.Minute)
	cache.Set(ctx, "b", []byte("2"), time.Minute)
	cache.Flush()
	assert.Zero(t, cache.Len())
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	base := time.Now()
	nowFunc = func() time.Time { return base }
	defer func() { nowFunc = time.Now }()

	cache.Set(ctx, "k", []byte("v"), time.Second)
	_, ok := cache.Get(ctx, "k")
	assert.True(t, ok)

	nowFunc = func() time.Time { return base.Add(2 * time.Second) }
	_, ok = cache.Get(ctx, "k")
	assert.False(t, ok)
	// Expired entries are evicted on access.
	assert.Zero(t, cache.Len())
}

func TestRememberRoundtrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "ada", "active": 1})

	first, err := c.Model("User").Remember(time.Minute).Get(ctx)
	require.NoError(t, err)
	second, err := c.Model("User").Remember(time.Minute).Get(ctx)
	require.NoError(t, err)

	// Cached rows materialize identically, including cast behavior.
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Get("name"), second[0].Get("name"))
	assert.Equal(t, true, second[0].Get("active"))
}

func TestRememberWithoutCache(t *testing.T) {
	drvClient := newTestClient(t)
	// A client without a cache silently executes every time.
	c := NewClient(Driver(drvClient.Driver()), WithRegistry(drvClient.Registry()))
	seedRow(t, c, "users", map[string]any{"name": "ada"})

	c.QueryLog().Enable()
	_, err := c.Model("User").Remember(time.Minute).Get(context.Background())
	require.NoError(t, err)
	_, err = c.Model("User").Remember(time.Minute).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.QueryLog().Len())
}
