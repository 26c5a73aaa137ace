package arbor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 1; i <= 23; i++ {
		seedRow(t, c, "users", map[string]any{"name": fmt.Sprintf("user-%02d", i)})
	}

	p, err := c.Model("User").OrderBy("id").Paginate(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 23, p.Total)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, 3, p.LastPage)
	assert.Len(t, p.Items, 10)
	assert.True(t, p.HasMorePages())
	assert.Equal(t, 1, p.From())
	assert.Equal(t, 10, p.To())

	// The final short page.
	p, err = c.Model("User").OrderBy("id").Paginate(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, 3, p.LastPage)
	assert.False(t, p.HasMorePages())
	assert.Equal(t, 21, p.From())
	assert.Equal(t, 23, p.To())
	assert.Equal(t, "user-21", p.Items[0].Get("name"))

	// Past the end: empty items, counts intact.
	p, err = c.Model("User").Paginate(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.Equal(t, 0, p.From())
	assert.Equal(t, 0, p.To())
	assert.False(t, p.HasMorePages())
}

func TestPaginateClampsPage(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "ada"})

	p, err := c.Model("User").Paginate(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Len(t, p.Items, 1)

	p, err = c.Model("User").Paginate(ctx, -3, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
}

func TestPaginateEmptyTable(t *testing.T) {
	c := newTestClient(t)

	p, err := c.Model("User").Paginate(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, p.Total)
	assert.Equal(t, 1, p.LastPage)
	assert.Empty(t, p.Items)
	assert.False(t, p.HasMorePages())
}

func TestPaginateWithEagerLoad(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p1"})

	p, err := c.Model("User").With("posts").Paginate(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	assert.True(t, p.Items[0].RelationLoaded("posts"))
}
