package arbor

import (
	"context"
	"time"

	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
)

// Client is the explicit context object threaded into every call that
// needs storage access or logging: it binds a driver, a registry, the
// query log and an optional result cache. Hosts construct one Client at
// start-up and pass it down; nothing in the core reaches for global
// state.
type Client struct {
	driver   dialect.Driver
	registry *Registry
	log      *QueryLog
	cache    Cache
}

// Option configures a Client.
type Option func(*Client)

// Driver sets the storage driver.
func Driver(d dialect.Driver) Option {
	return func(c *Client) { c.driver = d }
}

// WithRegistry sets the entity registry.
func WithRegistry(r *Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithCache sets the result cache used by Query.Remember.
func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient returns a Client configured with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		registry: NewRegistry(),
		log:      NewQueryLog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the entity registry.
func (c *Client) Registry() *Registry { return c.registry }

// QueryLog returns the passive query log.
func (c *Client) QueryLog() *QueryLog { return c.log }

// Driver returns the underlying storage driver.
func (c *Client) Driver() dialect.Driver { return c.driver }

// Close closes the underlying driver.
func (c *Client) Close() error { return c.driver.Close() }

// Model starts a query for the named entity. The name must be
// registered; unknown names surface on the first terminal operation.
func (c *Client) Model(name string) *Query {
	def, err := c.registry.Definition(name)
	if err != nil {
		// Keep the builder chainable; the error surfaces on execution.
		return &Query{client: c, sel: sql.Table(name), err: err}
	}
	return newQuery(c, def)
}

// Load eager-loads the given relation paths onto the entities. All
// entities must share one definition. Paths may be dot-separated for
// nested loads ("posts.comments").
func (c *Client) Load(ctx context.Context, entities []*Entity, paths ...string) error {
	if len(entities) == 0 || len(paths) == 0 {
		return nil
	}
	return loadRelations(ctx, c, entities[0].def, entities, paths)
}

// query renders and executes a statement, returning row maps. Every
// successful execution is reported to the query log with its SQL,
// bindings and elapsed time when logging is enabled.
func (c *Client) query(ctx context.Context, q sql.Querier) ([]map[string]any, error) {
	stmt, args := q.Query()
	var rows sql.Rows
	start := nowFunc()
	if err := c.driver.Query(ctx, stmt, args, &rows); err != nil {
		return nil, err
	}
	out, err := sql.ScanMaps(&rows)
	if err != nil {
		return nil, err
	}
	c.log.Record(QueryEntry{SQL: stmt, Bindings: args, Elapsed: elapsedSince(start)})
	return out, nil
}

// queryInt executes a statement expected to return a single integer.
func (c *Client) queryInt(ctx context.Context, q sql.Querier) (int, error) {
	stmt, args := q.Query()
	var rows sql.Rows
	start := nowFunc()
	if err := c.driver.Query(ctx, stmt, args, &rows); err != nil {
		return 0, err
	}
	n, err := sql.ScanInt(&rows)
	if err != nil {
		return 0, err
	}
	c.log.Record(QueryEntry{SQL: stmt, Bindings: args, Elapsed: elapsedSince(start)})
	return n, nil
}

// exec renders and executes a mutation statement.
func (c *Client) exec(ctx context.Context, q sql.Querier) (sql.Result, error) {
	stmt, args := q.Query()
	var res sql.Result
	start := nowFunc()
	if err := c.driver.Exec(ctx, stmt, args, &res); err != nil {
		return nil, err
	}
	c.log.Record(QueryEntry{SQL: stmt, Bindings: args, Elapsed: elapsedSince(start)})
	return res, nil
}

func elapsedSince(start time.Time) time.Duration {
	return nowFunc().Sub(start)
}
