package arbor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/arbor/dialect/sql"
)

// testSchema is the fixture schema exercising every relation kind:
// countries -> users -> posts -> comments, a profile per user, roles
// through a pivot, tags through a polymorphic pivot, and images owned
// polymorphically by users and posts.
var testSchema = []string{
	`CREATE TABLE countries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		country_id INTEGER,
		name TEXT NOT NULL,
		active INTEGER DEFAULT 1,
		settings TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		bio TEXT
	)`,
	`CREATE TABLE posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		published INTEGER DEFAULT 0
	)`,
	`CREATE TABLE comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL,
		user_id INTEGER,
		body TEXT
	)`,
	`CREATE TABLE roles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE role_user (
		user_id INTEGER NOT NULL,
		role_id INTEGER NOT NULL,
		assigned_by TEXT,
		created_at TEXT,
		updated_at TEXT
	)`,
	`CREATE TABLE tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE taggables (
		tag_id INTEGER NOT NULL,
		taggable_id INTEGER NOT NULL,
		taggable_type TEXT NOT NULL
	)`,
	`CREATE TABLE images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		imageable_id INTEGER,
		imageable_type TEXT,
		url TEXT
	)`,
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.MustRegister(&Definition{
		Name: "Country",
		Relations: map[string]RelationFunc{
			"users": func() *Relation { return HasMany("User", "country_id", "id") },
			"posts": func() *Relation {
				return HasManyThrough("Post", "User", "country_id", "user_id", "id", "id")
			},
		},
	})
	r.MustRegister(&Definition{
		Name:       "User",
		Timestamps: true,
		Guarded:    []string{"id"},
		Casts: map[string]CastType{
			"active":   CastBool,
			"settings": CastObject,
		},
		Relations: map[string]RelationFunc{
			"country": func() *Relation { return BelongsTo("Country", "country_id", "id") },
			"profile": func() *Relation { return HasOne("Profile", "user_id", "id") },
			"posts":   func() *Relation { return HasMany("Post", "user_id", "id") },
			"roles": func() *Relation {
				return BelongsToMany("Role", "role_user", "user_id", "role_id", "id", "id").
					WithPivot("assigned_by")
			},
			"avatar": func() *Relation { return MorphOne("Image", "imageable_type", "imageable_id", "id") },
		},
	})
	r.MustRegister(&Definition{
		Name:  "Profile",
		Table: "profiles",
		Relations: map[string]RelationFunc{
			"user": func() *Relation { return BelongsTo("User", "user_id", "id") },
		},
	})
	r.MustRegister(&Definition{
		Name: "Post",
		Relations: map[string]RelationFunc{
			"user":     func() *Relation { return BelongsTo("User", "user_id", "id") },
			"comments": func() *Relation { return HasMany("Comment", "post_id", "id") },
			"images":   func() *Relation { return MorphMany("Image", "imageable_type", "imageable_id", "id") },
			"tags": func() *Relation {
				return MorphToMany("Tag", "taggables", "taggable_type", "taggable_id", "tag_id", "id", "id")
			},
		},
	})
	r.MustRegister(&Definition{
		Name: "Comment",
		Relations: map[string]RelationFunc{
			"post": func() *Relation { return BelongsTo("Post", "post_id", "id") },
			"user": func() *Relation { return BelongsTo("User", "user_id", "id") },
		},
	})
	r.MustRegister(&Definition{Name: "Role"})
	r.MustRegister(&Definition{Name: "Tag"})
	r.MustRegister(&Definition{
		Name: "Image",
		Relations: map[string]RelationFunc{
			"imageable": func() *Relation { return MorphTo("imageable_type", "imageable_id") },
		},
	})
	return r
}

// newTestClient opens an in-memory database, creates the fixture schema
// and returns a client over it.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	drv, err := sql.OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	ctx := context.Background()
	for _, ddl := range testSchema {
		require.NoError(t, drv.Exec(ctx, ddl, []any{}, nil))
	}
	return NewClient(Driver(drv), WithRegistry(testRegistry(t)), WithCache(NewMemoryCache()))
}

// seedRow inserts one row and returns its generated id.
func seedRow(t *testing.T, c *Client, table string, row map[string]any) int64 {
	t.Helper()
	cols := make([]string, 0, len(row))
	vals := make([]any, 0, len(row))
	for k, v := range row {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	sortByColumns(cols, vals)
	res, err := c.exec(context.Background(), sql.Insert(table).Columns(cols...).Values(vals...))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}
