package arbor

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/arbor/dialect/sql"
)

// throughKeyAlias is the synthetic column carrying the intermediate
// table's parent-referencing key in through-relation queries.
const throughKeyAlias = "arbor_through_key"

// pathGroup is one root relation plus the nested remainders requested
// under it ("posts" with ["comments", "comments.author"]).
type pathGroup struct {
	name   string
	nested []string
}

// parsePaths groups dot-separated relation paths by their root,
// preserving first-appearance order so query emission stays
// deterministic.
func parsePaths(paths []string) []pathGroup {
	var (
		order  []string
		groups = make(map[string]*pathGroup)
	)
	for _, p := range paths {
		root, rest, _ := strings.Cut(p, ".")
		g, ok := groups[root]
		if !ok {
			g = &pathGroup{name: root}
			groups[root] = g
			order = append(order, root)
		}
		if rest != "" {
			g.nested = append(g.nested, rest)
		}
	}
	out := make([]pathGroup, len(order))
	for i, root := range order {
		out[i] = *groups[root]
	}
	return out
}

// loadRelations resolves the requested relation paths for the parent
// set. Each root relation contributes exactly one additional query
// (two for the pivot-backed kinds) regardless of the parent count;
// nested paths recurse on the loaded set.
func loadRelations(ctx context.Context, c *Client, def *Definition, parents []*Entity, paths []string) error {
	for _, group := range parsePaths(paths) {
		rel, err := def.relation(group.name)
		if err != nil {
			return err
		}
		switch rel.kind {
		case KindHasOne, KindHasMany, KindMorphOne, KindMorphMany:
			err = loadHas(ctx, c, def, parents, group, rel)
		case KindBelongsTo:
			err = loadBelongsTo(ctx, c, parents, group, rel)
		case KindBelongsToMany, KindMorphToMany:
			err = loadBelongsToMany(ctx, c, def, parents, group, rel)
		case KindHasOneThrough, KindHasManyThrough:
			err = loadThrough(ctx, c, parents, group, rel)
		case KindMorphTo:
			err = loadMorphTo(ctx, c, parents, group, rel)
		default:
			err = fmt.Errorf("arbor: unhandled relation kind %s", rel.kind)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// loadHas resolves HasOne/HasMany and their polymorphic variants: one
// query over the related table keyed by the parents' local keys, with
// the Morph* kinds adding the type-discriminator filter.
func loadHas(ctx context.Context, c *Client, def *Definition, parents []*Entity, group pathGroup, rel *Relation) error {
	single := rel.kind == KindHasOne || rel.kind == KindMorphOne
	fk := rel.foreignKey
	if rel.kind == KindMorphOne || rel.kind == KindMorphMany {
		fk = rel.morphID
	}
	keys := collectKeys(parents, rel.localKey)
	if len(keys) == 0 {
		attachDefaults(parents, group.name, single)
		return nil
	}
	q := newQuery(c, mustDefinition(c, rel.related))
	q.WhereIn(fk, keys...)
	if rel.kind == KindMorphOne || rel.kind == KindMorphMany {
		q.Where(rel.morphType, "=", def.Name)
	}
	children, err := q.Get(ctx)
	if err != nil {
		return err
	}
	if len(group.nested) > 0 && len(children) > 0 {
		if err := loadRelations(ctx, c, children[0].def, children, group.nested); err != nil {
			return err
		}
	}
	grouped := make(map[string][]*Entity)
	for _, child := range children {
		v, _ := child.RawAttribute(fk)
		k := keyString(v)
		grouped[k] = append(grouped[k], child)
	}
	for _, p := range parents {
		v, _ := p.RawAttribute(rel.localKey)
		matches := grouped[keyString(v)]
		if single {
			// First match only when multiple rows share the key; extra
			// rows are discarded, a documented behavior choice.
			if len(matches) > 0 {
				p.setRelation(group.name, matches[0])
			} else {
				p.setRelation(group.name, nil)
			}
			continue
		}
		if matches == nil {
			matches = []*Entity{}
		}
		p.setRelation(group.name, matches)
	}
	return nil
}

// loadBelongsTo resolves the inverse association: one query over the
// related table keyed by the distinct foreign-key values of the parents,
// indexed by owner key.
func loadBelongsTo(ctx context.Context, c *Client, parents []*Entity, group pathGroup, rel *Relation) error {
	keys := collectKeys(parents, rel.foreignKey)
	if len(keys) == 0 {
		attachDefaults(parents, group.name, true)
		return nil
	}
	q := newQuery(c, mustDefinition(c, rel.related))
	q.WhereIn(rel.ownerKey, keys...)
	owners, err := q.Get(ctx)
	if err != nil {
		return err
	}
	if len(group.nested) > 0 && len(owners) > 0 {
		if err := loadRelations(ctx, c, owners[0].def, owners, group.nested); err != nil {
			return err
		}
	}
	index := make(map[string]*Entity, len(owners))
	for _, o := range owners {
		v, _ := o.RawAttribute(rel.ownerKey)
		k := keyString(v)
		if _, ok := index[k]; !ok {
			index[k] = o
		}
	}
	for _, p := range parents {
		v, ok := p.RawAttribute(rel.foreignKey)
		if !ok || v == nil {
			p.setRelation(group.name, nil)
			continue
		}
		if o, ok := index[keyString(v)]; ok {
			p.setRelation(group.name, o)
		} else {
			p.setRelation(group.name, nil)
		}
	}
	return nil
}

// loadBelongsToMany resolves pivot-backed associations in two queries:
// the pivot rows for the parents, then the related rows for the ids the
// pivot referenced. Each attachment receives its own copy of the
// related entity carrying that pivot row's payload; copies are
// mandatory because the same related row may appear under multiple
// parents with different pivot data.
func loadBelongsToMany(ctx context.Context, c *Client, def *Definition, parents []*Entity, group pathGroup, rel *Relation) error {
	keys := collectKeys(parents, rel.parentKey)
	if len(keys) == 0 {
		attachDefaults(parents, group.name, false)
		return nil
	}
	pivotSel := sql.Table(rel.pivotTable).
		Select(rel.pivotSelectColumns()...).
		WhereIn(rel.pivotForeignKey, keys...)
	if rel.kind == KindMorphToMany {
		pivotSel.Where(rel.morphType, "=", def.Name)
	}
	pivotRows, err := c.query(ctx, pivotSel)
	if err != nil {
		return err
	}
	var (
		relatedIDs []any
		seen       = make(map[string]struct{})
		byParent   = make(map[string][]map[string]any)
	)
	for _, row := range pivotRows {
		pk := keyString(row[rel.pivotForeignKey])
		byParent[pk] = append(byParent[pk], row)
		rk := keyString(row[rel.pivotRelatedKey])
		if _, ok := seen[rk]; !ok {
			seen[rk] = struct{}{}
			relatedIDs = append(relatedIDs, row[rel.pivotRelatedKey])
		}
	}
	if len(relatedIDs) == 0 {
		attachDefaults(parents, group.name, false)
		return nil
	}
	q := newQuery(c, mustDefinition(c, rel.related))
	q.WhereIn(rel.relatedKey, relatedIDs...)
	related, err := q.Get(ctx)
	if err != nil {
		return err
	}
	if len(group.nested) > 0 && len(related) > 0 {
		if err := loadRelations(ctx, c, related[0].def, related, group.nested); err != nil {
			return err
		}
	}
	index := make(map[string]*Entity, len(related))
	for _, r := range related {
		v, _ := r.RawAttribute(rel.relatedKey)
		index[keyString(v)] = r
	}
	for _, p := range parents {
		v, _ := p.RawAttribute(rel.parentKey)
		rows := byParent[keyString(v)]
		attached := make([]*Entity, 0, len(rows))
		for _, row := range rows {
			r, ok := index[keyString(row[rel.pivotRelatedKey])]
			if !ok {
				continue
			}
			cp := r.clone()
			cp.pivot = row
			attached = append(attached, cp)
		}
		p.setRelation(group.name, attached)
	}
	return nil
}

// loadThrough resolves HasOneThrough/HasManyThrough with one joined
// query across the intermediate table, grouped by the intermediate
// table's parent-referencing key.
func loadThrough(ctx context.Context, c *Client, parents []*Entity, group pathGroup, rel *Relation) error {
	single := rel.kind == KindHasOneThrough
	keys := collectKeys(parents, rel.localKey)
	if len(keys) == 0 {
		attachDefaults(parents, group.name, single)
		return nil
	}
	relatedDef := mustDefinition(c, rel.related)
	throughDef := mustDefinition(c, rel.through)
	sel := sql.Table(relatedDef.Table).
		Select(relatedDef.Table+".*", throughDef.Table+"."+rel.firstKey+" AS "+throughKeyAlias).
		Join(throughDef.Table, throughDef.Table+"."+rel.secondLocalKey+" = "+relatedDef.Table+"."+rel.secondKey).
		WhereIn(throughDef.Table+"."+rel.firstKey, keys...)
	rows, err := c.query(ctx, sel)
	if err != nil {
		return err
	}
	grouped := make(map[string][]*Entity)
	var loaded []*Entity
	for _, row := range rows {
		throughKey := keyString(row[throughKeyAlias])
		delete(row, throughKeyAlias)
		e := newFromRow(relatedDef, row)
		grouped[throughKey] = append(grouped[throughKey], e)
		loaded = append(loaded, e)
	}
	if len(group.nested) > 0 && len(loaded) > 0 {
		if err := loadRelations(ctx, c, relatedDef, loaded, group.nested); err != nil {
			return err
		}
	}
	for _, p := range parents {
		v, _ := p.RawAttribute(rel.localKey)
		matches := grouped[keyString(v)]
		if single {
			if len(matches) > 0 {
				p.setRelation(group.name, matches[0])
			} else {
				p.setRelation(group.name, nil)
			}
			continue
		}
		if matches == nil {
			matches = []*Entity{}
		}
		p.setRelation(group.name, matches)
	}
	return nil
}

// loadMorphTo groups the parents by their stored type tag and issues
// one query per distinct tag, indexing results by the composite
// type+id key.
func loadMorphTo(ctx context.Context, c *Client, parents []*Entity, group pathGroup, rel *Relation) error {
	type bucket struct {
		ids  []any
		seen map[string]struct{}
	}
	var (
		order   []string
		buckets = make(map[string]*bucket)
	)
	for _, p := range parents {
		tv, _ := p.RawAttribute(rel.morphType)
		iv, _ := p.RawAttribute(rel.morphID)
		if tv == nil || iv == nil {
			continue
		}
		tag := fmt.Sprint(tv)
		b, ok := buckets[tag]
		if !ok {
			b = &bucket{seen: make(map[string]struct{})}
			buckets[tag] = b
			order = append(order, tag)
		}
		k := keyString(iv)
		if _, ok := b.seen[k]; !ok {
			b.seen[k] = struct{}{}
			b.ids = append(b.ids, iv)
		}
	}
	index := make(map[string]*Entity)
	for _, tag := range order {
		relatedDef, err := c.registry.morphDefinition(tag)
		if err != nil {
			return err
		}
		q := newQuery(c, relatedDef)
		q.WhereIn(relatedDef.PrimaryKey, buckets[tag].ids...)
		if len(group.nested) > 0 {
			q.With(group.nested...)
		}
		targets, err := q.Get(ctx)
		if err != nil {
			return err
		}
		for _, t := range targets {
			v, _ := t.RawAttribute(relatedDef.PrimaryKey)
			index[tag+"|"+keyString(v)] = t
		}
	}
	for _, p := range parents {
		tv, _ := p.RawAttribute(rel.morphType)
		iv, _ := p.RawAttribute(rel.morphID)
		if tv == nil || iv == nil {
			p.setRelation(group.name, nil)
			continue
		}
		if t, ok := index[fmt.Sprint(tv)+"|"+keyString(iv)]; ok {
			p.setRelation(group.name, t)
		} else {
			p.setRelation(group.name, nil)
		}
	}
	return nil
}

// collectKeys returns the distinct non-nil values of the given column
// across the parents, preserving first-appearance order.
func collectKeys(parents []*Entity, column string) []any {
	var (
		keys []any
		seen = make(map[string]struct{}, len(parents))
	)
	for _, p := range parents {
		v, ok := p.RawAttribute(column)
		if !ok || v == nil {
			continue
		}
		k := keyString(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}

// attachDefaults populates the relation cache with the kind's empty
// default: nil for single-valued relations, an empty list otherwise.
// Used by the empty-input shortcut, which never issues a query.
func attachDefaults(parents []*Entity, name string, single bool) {
	for _, p := range parents {
		if single {
			p.setRelation(name, nil)
		} else {
			p.setRelation(name, []*Entity{})
		}
	}
}

// keyString normalizes a storage value for in-memory grouping, covering
// driver-dependent numeric widths.
func keyString(v any) string {
	return fmt.Sprint(v)
}

// mustDefinition resolves a definition name referenced by a registered
// relation. A dangling reference is a registration-time programming
// error, so failure panics rather than propagating.
func mustDefinition(c *Client, name string) *Definition {
	def, err := c.registry.Definition(name)
	if err != nil {
		panic(err)
	}
	return def
}
