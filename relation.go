package arbor

// Kind enumerates the closed set of relation kinds. The eager-load
// resolver switches over this set exhaustively; adding a kind without
// teaching the resolver about it is a compile-visible change, not a
// silent runtime fallthrough.
type Kind uint8

const (
	KindHasOne Kind = iota + 1
	KindHasMany
	KindBelongsTo
	KindBelongsToMany
	KindHasOneThrough
	KindHasManyThrough
	KindMorphTo
	KindMorphOne
	KindMorphMany
	KindMorphToMany
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindHasOne:
		return "HasOne"
	case KindHasMany:
		return "HasMany"
	case KindBelongsTo:
		return "BelongsTo"
	case KindBelongsToMany:
		return "BelongsToMany"
	case KindHasOneThrough:
		return "HasOneThrough"
	case KindHasManyThrough:
		return "HasManyThrough"
	case KindMorphTo:
		return "MorphTo"
	case KindMorphOne:
		return "MorphOne"
	case KindMorphMany:
		return "MorphMany"
	case KindMorphToMany:
		return "MorphToMany"
	}
	return "Unknown"
}

// Relation describes one association: its kind and the join keys that
// drive both single-entity queries and batched resolution. A Relation is
// immutable once constructed and holds no entity state; batching state
// is assembled fresh on every resolution call.
type Relation struct {
	kind    Kind
	related string // related definition name; empty for MorphTo

	// Direct keys.
	foreignKey string // child-side FK column (HasOne/HasMany/Morph*); owner-side FK column (BelongsTo)
	localKey   string // parent key column the FK references
	ownerKey   string // related-side key for BelongsTo

	// Pivot keys (BelongsToMany/MorphToMany).
	pivotTable      string
	pivotForeignKey string // pivot column referencing the parent
	pivotRelatedKey string // pivot column referencing the related table
	relatedKey      string // related table column matched by pivotRelatedKey
	parentKey       string // parent table column matched by pivotForeignKey
	pivotColumns    []string
	pivotTimestamps bool

	// Through keys (HasOneThrough/HasManyThrough).
	through        string // intermediate definition name
	firstKey       string // through-side FK referencing the parent localKey
	secondKey      string // related-side FK referencing the through secondLocalKey
	secondLocalKey string // through-side key the related FK references

	// Polymorphic columns.
	morphType string // discriminator column holding the owner's type tag
	morphID   string // id column alongside the discriminator
}

// HasOne declares a one-to-one association: the related table carries
// foreignKey referencing the parent's localKey.
func HasOne(related, foreignKey, localKey string) *Relation {
	return &Relation{kind: KindHasOne, related: related, foreignKey: foreignKey, localKey: localKey}
}

// HasMany declares a one-to-many association with the same key layout
// as HasOne.
func HasMany(related, foreignKey, localKey string) *Relation {
	return &Relation{kind: KindHasMany, related: related, foreignKey: foreignKey, localKey: localKey}
}

// BelongsTo declares the inverse association: the owning entity carries
// foreignKey referencing the related table's ownerKey.
func BelongsTo(related, foreignKey, ownerKey string) *Relation {
	return &Relation{kind: KindBelongsTo, related: related, foreignKey: foreignKey, ownerKey: ownerKey}
}

// BelongsToMany declares a many-to-many association through pivotTable.
// pivotForeignKey references the parent's parentKey; pivotRelatedKey
// references the related table's relatedKey.
func BelongsToMany(related, pivotTable, pivotForeignKey, pivotRelatedKey, parentKey, relatedKey string) *Relation {
	return &Relation{
		kind:            KindBelongsToMany,
		related:         related,
		pivotTable:      pivotTable,
		pivotForeignKey: pivotForeignKey,
		pivotRelatedKey: pivotRelatedKey,
		parentKey:       parentKey,
		relatedKey:      relatedKey,
	}
}

// HasOneThrough declares a one-to-one association reached via an
// intermediate entity: through.firstKey references the parent's
// localKey, and related.secondKey references through.secondLocalKey.
func HasOneThrough(related, through, firstKey, secondKey, localKey, secondLocalKey string) *Relation {
	return &Relation{
		kind:           KindHasOneThrough,
		related:        related,
		through:        through,
		firstKey:       firstKey,
		secondKey:      secondKey,
		localKey:       localKey,
		secondLocalKey: secondLocalKey,
	}
}

// HasManyThrough declares a one-to-many association with the same key
// layout as HasOneThrough.
func HasManyThrough(related, through, firstKey, secondKey, localKey, secondLocalKey string) *Relation {
	r := HasOneThrough(related, through, firstKey, secondKey, localKey, secondLocalKey)
	r.kind = KindHasManyThrough
	return r
}

// MorphTo declares a polymorphic inverse association: the owning entity
// carries a discriminator typeColumn naming the related type and an
// idColumn referencing the related table's primary key.
func MorphTo(typeColumn, idColumn string) *Relation {
	return &Relation{kind: KindMorphTo, morphType: typeColumn, morphID: idColumn}
}

// MorphOne declares a polymorphic one-to-one association: the related
// table carries typeColumn and idColumn; rows match when typeColumn
// equals the owner's type tag and idColumn references the owner's localKey.
func MorphOne(related, typeColumn, idColumn, localKey string) *Relation {
	return &Relation{kind: KindMorphOne, related: related, morphType: typeColumn, morphID: idColumn, localKey: localKey}
}

// MorphMany declares a polymorphic one-to-many association with the
// same key layout as MorphOne.
func MorphMany(related, typeColumn, idColumn, localKey string) *Relation {
	r := MorphOne(related, typeColumn, idColumn, localKey)
	r.kind = KindMorphMany
	return r
}

// MorphToMany declares a polymorphic many-to-many association: the
// pivot table carries a discriminator typeColumn alongside its two
// foreign keys.
func MorphToMany(related, pivotTable, typeColumn, pivotForeignKey, pivotRelatedKey, parentKey, relatedKey string) *Relation {
	r := BelongsToMany(related, pivotTable, pivotForeignKey, pivotRelatedKey, parentKey, relatedKey)
	r.kind = KindMorphToMany
	r.morphType = typeColumn
	return r
}

// WithPivot returns a copy of the relation that loads the given extra
// pivot columns into each attached pivot payload.
func (r *Relation) WithPivot(columns ...string) *Relation {
	c := *r
	c.pivotColumns = append(append([]string(nil), r.pivotColumns...), columns...)
	return &c
}

// WithPivotTimestamps returns a copy of the relation that stamps
// created_at/updated_at on pivot rows and loads them with the payload.
func (r *Relation) WithPivotTimestamps() *Relation {
	c := *r
	c.pivotTimestamps = true
	return &c
}

// Kind returns the relation kind.
func (r *Relation) Kind() Kind { return r.kind }

// Related returns the related definition name. Empty for MorphTo, whose
// target is determined per-row by the discriminator column.
func (r *Relation) Related() string { return r.related }

// pivotSelectColumns returns the pivot columns fetched alongside the
// two foreign keys during batched resolution.
func (r *Relation) pivotSelectColumns() []string {
	cols := []string{r.pivotForeignKey, r.pivotRelatedKey}
	cols = append(cols, r.pivotColumns...)
	if r.pivotTimestamps {
		cols = append(cols, createdAtColumn, updatedAtColumn)
	}
	return cols
}
