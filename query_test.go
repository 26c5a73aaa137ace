package arbor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryGetAndFirst(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "ada", "active": 1})
	seedRow(t, c, "users", map[string]any{"name": "grace", "active": 0})

	users, err := c.Model("User").Where("active", "=", 1).Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ada", users[0].Get("name"))

	first, err := c.Model("User").OrderByDesc("id").First(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "grace", first.Get("name"))

	none, err := c.Model("User").Where("name", "=", "nobody").First(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQueryFindOrFail(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	id := seedRow(t, c, "users", map[string]any{"name": "ada"})

	e, err := c.Model("User").FindOrFail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ada", e.Get("name"))

	_, err = c.Model("User").FindOrFail(ctx, 404)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "User", nf.Label())
	assert.Equal(t, 404, nf.ID())
}

func TestQueryCountAndExists(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "ada", "active": 1})
	seedRow(t, c, "users", map[string]any{"name": "grace", "active": 1})
	seedRow(t, c, "users", map[string]any{"name": "edsger", "active": 0})

	n, err := c.Model("User").Where("active", "=", 1).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := c.Model("User").Where("active", "=", 0).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Model("User").Where("name", "=", "nobody").Exists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryChunk(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		seedRow(t, c, "users", map[string]any{"name": name})
	}

	var sizes []int
	err := c.Model("User").OrderBy("id").Chunk(ctx, 2, func(entities []*Entity) (bool, error) {
		sizes = append(sizes, len(entities))
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)

	// A stop signal on the second call halts before the third.
	sizes = nil
	err = c.Model("User").OrderBy("id").Chunk(ctx, 2, func(entities []*Entity) (bool, error) {
		sizes = append(sizes, len(entities))
		return len(sizes) < 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, sizes)

	// A callback error aborts the remaining chunks.
	boom := errors.New("boom")
	calls := 0
	err = c.Model("User").Chunk(ctx, 2, func([]*Entity) (bool, error) {
		calls++
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestQueryInsertUpdateDelete(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	id, err := c.Model("User").Insert(ctx, map[string]any{"name": "ada", "active": 1})
	require.NoError(t, err)
	assert.Positive(t, id)

	n, err := c.Model("User").Where("id", "=", id).Update(ctx, map[string]any{"name": "grace"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	e, err := c.Model("User").Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "grace", e.Get("name"))

	n, err = c.Model("User").Where("id", "=", id).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := c.Model("User").Find(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestQueryUnknownModel(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	q := c.Model("Ghost")
	_, err := q.Get(ctx)
	assert.Error(t, err)
	_, err = q.Count(ctx)
	assert.Error(t, err)
	_, err = q.Insert(ctx, map[string]any{"name": "x"})
	assert.Error(t, err)
}

func TestQueryRemember(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "ada"})

	c.QueryLog().Enable()
	users, err := c.Model("User").Remember(time.Minute).Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, c.QueryLog().Len())

	// The identical statement serves from the cache without touching the
	// engine.
	users, err = c.Model("User").Remember(time.Minute).Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, c.QueryLog().Len())
	assert.Equal(t, "ada", users[0].Get("name"))

	// A different statement misses.
	_, err = c.Model("User").Where("active", "=", 1).Remember(time.Minute).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.QueryLog().Len())
}
