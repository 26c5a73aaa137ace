package arbor

import (
	"fmt"

	"github.com/go-openapi/inflect"
)

const (
	createdAtColumn = "created_at"
	updatedAtColumn = "updated_at"
)

// RelationFunc constructs the immutable descriptor for one named
// relation. Descriptors are built once per resolution call; they hold
// key columns, never entity state.
type RelationFunc func() *Relation

// Definition describes one entity type: its table, primary key, casts,
// mass-assignment policy and relation registry. Definitions are built
// once at registration time and are read-only afterwards.
type Definition struct {
	// Name is the entity name, e.g. "User". It doubles as the type tag
	// stored in polymorphic discriminator columns.
	Name string
	// Table is the backing table. Defaults to the pluralized snake_case
	// of Name ("User" -> "users").
	Table string
	// PrimaryKey defaults to "id".
	PrimaryKey string
	// Timestamps enables created_at/updated_at stamping on save.
	Timestamps bool
	// Fillable is the mass-assignment allow-list. Empty means allow all
	// attributes not in Guarded.
	Fillable []string
	// Guarded lists attributes Fill always rejects.
	Guarded []string
	// Casts maps attribute names to their declared cast.
	Casts map[string]CastType
	// Relations maps relation names to descriptor constructors.
	Relations map[string]RelationFunc
}

// relation returns the named descriptor or a MissingRelationError.
func (d *Definition) relation(name string) (*Relation, error) {
	fn, ok := d.Relations[name]
	if !ok {
		return nil, NewMissingRelationError(d.Name, name)
	}
	return fn(), nil
}

// fillable reports whether the attribute passes the mass-assignment
// check: not guarded, and either the allow-list is empty or it is listed.
func (d *Definition) fillable(name string) bool {
	for _, g := range d.Guarded {
		if g == name {
			return false
		}
	}
	if len(d.Fillable) == 0 {
		return true
	}
	for _, f := range d.Fillable {
		if f == name {
			return true
		}
	}
	return false
}

// Registry maps entity names to their definitions and polymorphic type
// tags to entity names. It is built once by the host at start-up and
// read-only afterwards.
type Registry struct {
	defs   map[string]*Definition
	morphs map[string]string // type tag -> definition name
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:   make(map[string]*Definition),
		morphs: make(map[string]string),
	}
}

// Register adds a definition, applying naming defaults: table name from
// the pluralized snake_case entity name, primary key "id". The entity
// name registers itself as a polymorphic type tag.
func (r *Registry) Register(def *Definition) error {
	if def.Name == "" {
		return fmt.Errorf("arbor: register: definition has no name")
	}
	if _, ok := r.defs[def.Name]; ok {
		return fmt.Errorf("arbor: register: %q already registered", def.Name)
	}
	if def.Table == "" {
		def.Table = inflect.Tableize(def.Name)
	}
	if def.PrimaryKey == "" {
		def.PrimaryKey = "id"
	}
	r.defs[def.Name] = def
	r.morphs[def.Name] = def.Name
	return nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level registration in hosts.
func (r *Registry) MustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Definition returns the named definition.
func (r *Registry) Definition(name string) (*Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("arbor: entity %q is not registered", name)
	}
	return def, nil
}

// MorphAlias maps an additional type tag (as stored in discriminator
// columns) to a registered definition name.
func (r *Registry) MorphAlias(tag, name string) error {
	if _, ok := r.defs[name]; !ok {
		return fmt.Errorf("arbor: morph alias %q: entity %q is not registered", tag, name)
	}
	r.morphs[tag] = name
	return nil
}

// morphDefinition resolves a discriminator type tag to a definition.
func (r *Registry) morphDefinition(tag string) (*Definition, error) {
	name, ok := r.morphs[tag]
	if !ok {
		return nil, fmt.Errorf("arbor: morph tag %q is not registered", tag)
	}
	return r.Definition(name)
}

// ForeignKeyName derives the conventional foreign-key column for an
// entity name: "User" -> "user_id".
func ForeignKeyName(entity string) string {
	return inflect.Underscore(entity) + "_id"
}
