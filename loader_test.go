package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEagerLoadHasMany(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u1 := seedRow(t, c, "users", map[string]any{"name": "ada"})
	u2 := seedRow(t, c, "users", map[string]any{"name": "grace"})
	seedRow(t, c, "users", map[string]any{"name": "edsger"})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p1"})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p2"})
	seedRow(t, c, "posts", map[string]any{"user_id": u2, "title": "p3"})

	c.QueryLog().Enable()
	users, err := c.Model("User").OrderBy("id").With("posts").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	// One query for the parents, one batched query for the relation.
	require.Equal(t, 2, c.QueryLog().Len())
	assert.Contains(t, c.QueryLog().Entries()[1].SQL, "user_id IN (?, ?, ?)")

	posts, err := users[0].Relation("posts")
	require.NoError(t, err)
	assert.Len(t, posts.([]*Entity), 2)
	posts, err = users[1].Relation("posts")
	require.NoError(t, err)
	assert.Len(t, posts.([]*Entity), 1)
	// A parent without children gets an empty list, not an absent key.
	assert.True(t, users[2].RelationLoaded("posts"))
	posts, err = users[2].Relation("posts")
	require.NoError(t, err)
	assert.Empty(t, posts.([]*Entity))
}

func TestEagerLoadHasOneFirstMatch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	p1 := seedRow(t, c, "profiles", map[string]any{"user_id": u, "bio": "first"})
	seedRow(t, c, "profiles", map[string]any{"user_id": u, "bio": "second"})
	seedRow(t, c, "users", map[string]any{"name": "grace"})

	users, err := c.Model("User").OrderBy("id").With("profile").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Multiple candidate rows keep only the first match.
	profile, err := users[0].Relation("profile")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, p1, profile.(*Entity).Get("id"))

	// No candidate row resolves to nil, still marked loaded.
	assert.True(t, users[1].RelationLoaded("profile"))
	profile, err = users[1].Relation("profile")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestEagerLoadBelongsTo(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	country := seedRow(t, c, "countries", map[string]any{"name": "GB"})
	u1 := seedRow(t, c, "users", map[string]any{"name": "ada", "country_id": country})
	u2 := seedRow(t, c, "users", map[string]any{"name": "grace", "country_id": country})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p1"})
	seedRow(t, c, "posts", map[string]any{"user_id": u2, "title": "p2"})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p3"})

	c.QueryLog().Enable()
	posts, err := c.Model("Post").OrderBy("id").With("user").Get(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	require.Equal(t, 2, c.QueryLog().Len())
	// The owner set is deduplicated before querying.
	assert.Contains(t, c.QueryLog().Entries()[1].SQL, "id IN (?, ?)")

	owner, err := posts[0].Relation("user")
	require.NoError(t, err)
	assert.Equal(t, "ada", owner.(*Entity).Get("name"))
	// Parents sharing an owner share the loaded entity.
	other, err := posts[2].Relation("user")
	require.NoError(t, err)
	assert.Same(t, owner.(*Entity), other.(*Entity))
}

func TestEagerLoadBelongsToNullForeignKey(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seedRow(t, c, "users", map[string]any{"name": "stateless"})

	c.QueryLog().Enable()
	users, err := c.Model("User").With("country").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	// All foreign keys are NULL: the shortcut assigns defaults without
	// issuing the relation query.
	assert.Equal(t, 1, c.QueryLog().Len())
	assert.True(t, users[0].RelationLoaded("country"))
	country, err := users[0].Relation("country")
	require.NoError(t, err)
	assert.Nil(t, country)
}

func TestEagerLoadBelongsToMany(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u1 := seedRow(t, c, "users", map[string]any{"name": "ada"})
	u2 := seedRow(t, c, "users", map[string]any{"name": "grace"})
	admin := seedRow(t, c, "roles", map[string]any{"name": "admin"})
	editor := seedRow(t, c, "roles", map[string]any{"name": "editor"})
	seedRow(t, c, "role_user", map[string]any{"user_id": u1, "role_id": admin, "assigned_by": "root"})
	seedRow(t, c, "role_user", map[string]any{"user_id": u1, "role_id": editor, "assigned_by": "root"})
	seedRow(t, c, "role_user", map[string]any{"user_id": u2, "role_id": admin, "assigned_by": "ada"})

	c.QueryLog().Enable()
	users, err := c.Model("User").OrderBy("id").With("roles").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	// Parents, pivot rows, related rows.
	require.Equal(t, 3, c.QueryLog().Len())

	roles, err := users[0].Relation("roles")
	require.NoError(t, err)
	require.Len(t, roles.([]*Entity), 2)
	adaAdmin := roles.([]*Entity)[0]
	assert.Equal(t, "admin", adaAdmin.Get("name"))
	require.NotNil(t, adaAdmin.Pivot())
	assert.Equal(t, "root", adaAdmin.Pivot()["assigned_by"])

	roles, err = users[1].Relation("roles")
	require.NoError(t, err)
	require.Len(t, roles.([]*Entity), 1)
	graceAdmin := roles.([]*Entity)[0]
	assert.Equal(t, "admin", graceAdmin.Get("name"))
	assert.Equal(t, "ada", graceAdmin.Pivot()["assigned_by"])

	// The shared role is attached as independent copies so the pivot
	// payloads never bleed across parents.
	assert.NotSame(t, adaAdmin, graceAdmin)
	assert.Equal(t, adaAdmin.Get("id"), graceAdmin.Get("id"))
}

func TestEagerLoadNested(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u1 := seedRow(t, c, "users", map[string]any{"name": "ada"})
	u2 := seedRow(t, c, "users", map[string]any{"name": "grace"})
	p1 := seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p1"})
	p2 := seedRow(t, c, "posts", map[string]any{"user_id": u2, "title": "p2"})
	seedRow(t, c, "comments", map[string]any{"post_id": p1, "body": "c1"})
	seedRow(t, c, "comments", map[string]any{"post_id": p1, "body": "c2"})
	seedRow(t, c, "comments", map[string]any{"post_id": p2, "body": "c3"})

	c.QueryLog().Enable()
	users, err := c.Model("User").OrderBy("id").With("posts.comments").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	// One query per nesting level: users, posts, comments.
	require.Equal(t, 3, c.QueryLog().Len())

	posts, err := users[0].Relation("posts")
	require.NoError(t, err)
	require.Len(t, posts.([]*Entity), 1)
	comments, err := posts.([]*Entity)[0].Relation("comments")
	require.NoError(t, err)
	assert.Len(t, comments.([]*Entity), 2)
}

func TestEagerLoadThrough(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	gb := seedRow(t, c, "countries", map[string]any{"name": "GB"})
	nl := seedRow(t, c, "countries", map[string]any{"name": "NL"})
	u1 := seedRow(t, c, "users", map[string]any{"name": "ada", "country_id": gb})
	u2 := seedRow(t, c, "users", map[string]any{"name": "edsger", "country_id": nl})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p1"})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p2"})
	seedRow(t, c, "posts", map[string]any{"user_id": u2, "title": "p3"})

	c.QueryLog().Enable()
	countries, err := c.Model("Country").OrderBy("id").With("posts").Get(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	// One joined query resolves the whole batch.
	require.Equal(t, 2, c.QueryLog().Len())
	assert.Contains(t, c.QueryLog().Entries()[1].SQL, "JOIN users ON users.id = posts.user_id")

	posts, err := countries[0].Relation("posts")
	require.NoError(t, err)
	require.Len(t, posts.([]*Entity), 2)
	// The grouping alias never leaks into the materialized attributes.
	_, ok := posts.([]*Entity)[0].RawAttribute(throughKeyAlias)
	assert.False(t, ok)

	posts, err = countries[1].Relation("posts")
	require.NoError(t, err)
	assert.Len(t, posts.([]*Entity), 1)
}

func TestEagerLoadMorphOneAndMany(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	p := seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p1"})
	seedRow(t, c, "images", map[string]any{"imageable_type": "User", "imageable_id": u, "url": "avatar.png"})
	seedRow(t, c, "images", map[string]any{"imageable_type": "Post", "imageable_id": p, "url": "cover.png"})
	seedRow(t, c, "images", map[string]any{"imageable_type": "Post", "imageable_id": p, "url": "inline.png"})

	users, err := c.Model("User").With("avatar").Get(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	avatar, err := users[0].Relation("avatar")
	require.NoError(t, err)
	require.NotNil(t, avatar)
	// The type filter keeps the post image with the same owner id out.
	assert.Equal(t, "avatar.png", avatar.(*Entity).Get("url"))

	posts, err := c.Model("Post").With("images").Get(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	images, err := posts[0].Relation("images")
	require.NoError(t, err)
	assert.Len(t, images.([]*Entity), 2)
}

func TestEagerLoadMorphTo(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	p := seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p1"})
	seedRow(t, c, "images", map[string]any{"imageable_type": "User", "imageable_id": u, "url": "a.png"})
	seedRow(t, c, "images", map[string]any{"imageable_type": "Post", "imageable_id": p, "url": "b.png"})
	seedRow(t, c, "images", map[string]any{"url": "orphan.png"})

	c.QueryLog().Enable()
	images, err := c.Model("Image").OrderBy("id").With("imageable").Get(ctx)
	require.NoError(t, err)
	require.Len(t, images, 3)
	// One query per distinct stored type.
	require.Equal(t, 3, c.QueryLog().Len())

	owner, err := images[0].Relation("imageable")
	require.NoError(t, err)
	assert.Equal(t, "ada", owner.(*Entity).Get("name"))
	owner, err = images[1].Relation("imageable")
	require.NoError(t, err)
	assert.Equal(t, "p1", owner.(*Entity).Get("title"))
	// Rows with no discriminator resolve to nil.
	assert.True(t, images[2].RelationLoaded("imageable"))
	owner, err = images[2].Relation("imageable")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestEagerLoadMorphToMany(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	p1 := seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p1"})
	p2 := seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p2"})
	golang := seedRow(t, c, "tags", map[string]any{"name": "go"})
	db := seedRow(t, c, "tags", map[string]any{"name": "databases"})
	seedRow(t, c, "taggables", map[string]any{"tag_id": golang, "taggable_id": p1, "taggable_type": "Post"})
	seedRow(t, c, "taggables", map[string]any{"tag_id": db, "taggable_id": p1, "taggable_type": "Post"})
	// Same pivot ids under a different type must not leak in.
	seedRow(t, c, "taggables", map[string]any{"tag_id": db, "taggable_id": p1, "taggable_type": "Video"})
	seedRow(t, c, "taggables", map[string]any{"tag_id": golang, "taggable_id": p2, "taggable_type": "Post"})

	posts, err := c.Model("Post").OrderBy("id").With("tags").Get(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	tags, err := posts[0].Relation("tags")
	require.NoError(t, err)
	assert.Len(t, tags.([]*Entity), 2)
	tags, err = posts[1].Relation("tags")
	require.NoError(t, err)
	require.Len(t, tags.([]*Entity), 1)
	assert.Equal(t, "go", tags.([]*Entity)[0].Get("name"))
}

func TestEagerLoadMissingRelation(t *testing.T) {
	c := newTestClient(t)
	seedRow(t, c, "users", map[string]any{"name": "ada"})

	_, err := c.Model("User").With("bogus").Get(context.Background())
	require.Error(t, err)
	assert.True(t, IsMissingRelation(err))
}

func TestLazyResolve(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u := seedRow(t, c, "users", map[string]any{"name": "ada"})
	seedRow(t, c, "posts", map[string]any{"user_id": u, "title": "p1"})

	user, err := c.Model("User").Find(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, user)

	// Accessing before resolution is an explicit error, never a query.
	_, err = user.Relation("posts")
	assert.True(t, IsNotLoaded(err))

	c.QueryLog().Enable()
	posts, err := user.Resolve(ctx, c, "posts")
	require.NoError(t, err)
	assert.Len(t, posts.([]*Entity), 1)
	assert.Equal(t, 1, c.QueryLog().Len())

	// Second access serves the cache.
	_, err = user.Resolve(ctx, c, "posts")
	require.NoError(t, err)
	assert.Equal(t, 1, c.QueryLog().Len())

	_, err = user.Resolve(ctx, c, "bogus")
	assert.True(t, IsMissingRelation(err))
}

func TestClientLoad(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	u1 := seedRow(t, c, "users", map[string]any{"name": "ada"})
	seedRow(t, c, "posts", map[string]any{"user_id": u1, "title": "p1"})

	users, err := c.Model("User").Get(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Load(ctx, users, "posts", "profile"))
	assert.True(t, users[0].RelationLoaded("posts"))
	assert.True(t, users[0].RelationLoaded("profile"))

	// No entities or no paths is a no-op.
	require.NoError(t, c.Load(ctx, nil, "posts"))
	require.NoError(t, c.Load(ctx, users))
}
