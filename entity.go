package arbor

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/arbor/dialect/sql"
)

// nowFunc returns the current time. Overridden in tests.
var nowFunc = time.Now

// Entity is one loaded or unsaved record: a mapping from attribute name
// to storage value, the last-persisted snapshot, and a relation cache
// kept strictly apart from the attribute map.
//
// There is no identity map: two loads of the same row produce two
// independent entities.
type Entity struct {
	def        *Definition
	attributes map[string]any
	original   map[string]any
	relations  map[string]any
	pivot      map[string]any

	exists             bool
	wasRecentlyCreated bool
}

// NewEntity returns an empty, unsaved entity for the definition.
func NewEntity(def *Definition) *Entity {
	return &Entity{
		def:        def,
		attributes: make(map[string]any),
		original:   make(map[string]any),
	}
}

// newFromRow materializes a persisted entity from a raw row map.
func newFromRow(def *Definition, row map[string]any) *Entity {
	e := NewEntity(def)
	for k, v := range row {
		e.attributes[k] = v
	}
	e.SyncOriginal()
	e.exists = true
	return e
}

// Definition returns the entity's definition.
func (e *Entity) Definition() *Definition { return e.def }

// Table returns the backing table name.
func (e *Entity) Table() string { return e.def.Table }

// Exists reports whether the entity is persisted.
func (e *Entity) Exists() bool { return e.exists }

// WasRecentlyCreated reports whether the last Save inserted the entity.
func (e *Entity) WasRecentlyCreated() bool { return e.wasRecentlyCreated }

// Key returns the primary-key value in storage form.
func (e *Entity) Key() any { return e.attributes[e.def.PrimaryKey] }

// Set assigns an attribute, applying its declared cast to produce the
// storage form. Relation values never enter the attribute map.
func (e *Entity) Set(name string, v any) error {
	if t, ok := e.def.Casts[name]; ok {
		sv, err := castToStorage(t, v)
		if err != nil {
			return err
		}
		e.attributes[name] = sv
		return nil
	}
	e.attributes[name] = v
	return nil
}

// Get returns the attribute in its typed form, falling back to the
// relation cache when no attribute exists. Returns nil when neither is
// present; use Resolve for lazy relation loading.
func (e *Entity) Get(name string) any {
	if v, ok := e.attributes[name]; ok {
		if t, ok := e.def.Casts[name]; ok {
			tv, err := castFromStorage(t, v)
			if err == nil {
				return tv
			}
		}
		return v
	}
	if v, ok := e.relations[name]; ok {
		return v
	}
	return nil
}

// RawAttribute returns the storage form of an attribute.
func (e *Entity) RawAttribute(name string) (any, bool) {
	v, ok := e.attributes[name]
	return v, ok
}

// Attributes returns a copy of the attribute map in storage form.
func (e *Entity) Attributes() map[string]any {
	out := make(map[string]any, len(e.attributes))
	for k, v := range e.attributes {
		out[k] = v
	}
	return out
}

// Fill mass-assigns the attributes passing the fillability check: an
// attribute is fillable when it is not guarded and either the fillable
// allow-list is empty or it is explicitly listed. Non-fillable keys are
// skipped silently.
func (e *Entity) Fill(values map[string]any) error {
	for k, v := range values {
		if !e.def.fillable(k) {
			continue
		}
		if err := e.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Dirty returns the attributes whose current value is absent from or
// differs in the original snapshot.
func (e *Entity) Dirty() map[string]any {
	dirty := make(map[string]any)
	for k, v := range e.attributes {
		ov, ok := e.original[k]
		if !ok || !valuesEqual(v, ov) {
			dirty[k] = v
		}
	}
	return dirty
}

// IsDirty reports whether any (or any of the given) attributes changed
// since the last snapshot.
func (e *Entity) IsDirty(names ...string) bool {
	dirty := e.Dirty()
	if len(names) == 0 {
		return len(dirty) > 0
	}
	for _, n := range names {
		if _, ok := dirty[n]; ok {
			return true
		}
	}
	return false
}

// SyncOriginal re-snapshots the current attributes, clearing dirtiness.
func (e *Entity) SyncOriginal() {
	e.original = make(map[string]any, len(e.attributes))
	for k, v := range e.attributes {
		e.original[k] = v
	}
}

// Original returns the last-synced value of an attribute.
func (e *Entity) Original(name string) any { return e.original[name] }

// setRelation stores a resolved relation value in the cache. The value
// is a *Entity, a []*Entity, or nil.
func (e *Entity) setRelation(name string, v any) {
	if e.relations == nil {
		e.relations = make(map[string]any)
	}
	e.relations[name] = v
}

// Relation returns the cached value of a loaded relation, or a
// NotLoadedError when it was neither eager-loaded nor resolved.
func (e *Entity) Relation(name string) (any, error) {
	if v, ok := e.relations[name]; ok {
		return v, nil
	}
	return nil, NewNotLoadedError(name)
}

// RelationLoaded reports whether the relation is present in the cache.
func (e *Entity) RelationLoaded(name string) bool {
	_, ok := e.relations[name]
	return ok
}

// Resolve returns the relation value, lazily loading and caching it on
// first access. Unknown names return a MissingRelationError.
func (e *Entity) Resolve(ctx context.Context, c *Client, name string) (any, error) {
	if v, ok := e.relations[name]; ok {
		return v, nil
	}
	if _, err := e.def.relation(name); err != nil {
		return nil, err
	}
	if err := c.Load(ctx, []*Entity{e}, name); err != nil {
		return nil, err
	}
	return e.relations[name], nil
}

// Pivot returns the pivot payload attached by a BelongsToMany or
// MorphToMany load, or nil outside that context.
func (e *Entity) Pivot() map[string]any { return e.pivot }

// clone returns a shallow copy of the entity with its own attribute and
// snapshot maps. Used for per-parent pivot attachments: the same related
// row legitimately carries different pivot payloads under different
// parents, so payloads must never share an entity.
func (e *Entity) clone() *Entity {
	c := NewEntity(e.def)
	for k, v := range e.attributes {
		c.attributes[k] = v
	}
	for k, v := range e.original {
		c.original[k] = v
	}
	for k, v := range e.relations {
		c.setRelation(k, v)
	}
	c.exists = e.exists
	return c
}

// Save persists the entity: an INSERT when it does not exist yet,
// otherwise an UPDATE of only the dirty columns filtered by primary key.
// With timestamps enabled, created_at is stamped on insert and
// updated_at on every save. Saving re-snapshots the attributes.
func (e *Entity) Save(ctx context.Context, c *Client) error {
	if e.def.Timestamps {
		now := nowFunc().UTC().Format(datetimeLayout)
		if !e.exists {
			if _, ok := e.attributes[createdAtColumn]; !ok {
				e.attributes[createdAtColumn] = now
			}
		}
		e.attributes[updatedAtColumn] = now
	}
	if !e.exists {
		return e.insert(ctx, c)
	}
	return e.update(ctx, c)
}

func (e *Entity) insert(ctx context.Context, c *Client) error {
	cols := make([]string, 0, len(e.attributes))
	vals := make([]any, 0, len(e.attributes))
	for k, v := range e.attributes {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	sortByColumns(cols, vals)
	res, err := c.exec(ctx, sql.Insert(e.def.Table).Columns(cols...).Values(vals...))
	if err != nil {
		return NewMutationError(e.def.Name, "insert", err)
	}
	if _, ok := e.attributes[e.def.PrimaryKey]; !ok {
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			e.attributes[e.def.PrimaryKey] = id
		}
	}
	e.exists = true
	e.wasRecentlyCreated = true
	e.SyncOriginal()
	return nil
}

func (e *Entity) update(ctx context.Context, c *Client) error {
	dirty := e.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	cols := make([]string, 0, len(dirty))
	vals := make([]any, 0, len(dirty))
	for k, v := range dirty {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	sortByColumns(cols, vals)
	upd := sql.Update(e.def.Table)
	for i, col := range cols {
		upd.Set(col, vals[i])
	}
	key := e.original[e.def.PrimaryKey]
	if key == nil {
		key = e.attributes[e.def.PrimaryKey]
	}
	upd.Where(e.def.PrimaryKey, "=", key)
	if _, err := c.exec(ctx, upd); err != nil {
		return NewMutationError(e.def.Name, "update", err)
	}
	e.SyncOriginal()
	return nil
}

// Delete removes the entity by primary key and flips its exists flag.
func (e *Entity) Delete(ctx context.Context, c *Client) error {
	if !e.exists {
		return nil
	}
	del := sql.Delete(e.def.Table).Where(e.def.PrimaryKey, "=", e.Key())
	if _, err := c.exec(ctx, del); err != nil {
		return NewMutationError(e.def.Name, "delete", err)
	}
	e.exists = false
	return nil
}

// valuesEqual compares two storage values. Storage forms are scalars
// and strings; the string fallback covers driver-dependent numeric
// widths without reflecting.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// sortByColumns orders the column/value pairs by column name so emitted
// SQL is deterministic for a given attribute set.
func sortByColumns(cols []string, vals []any) {
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j-1] > cols[j]; j-- {
			cols[j-1], cols[j] = cols[j], cols[j-1]
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}
