package arbor

import (
	"context"
	"fmt"

	"github.com/syssam/arbor/dialect/sql"
)

// SyncResult reports the ids a Sync call attached and detached.
type SyncResult struct {
	Attached []any
	Detached []any
}

// Attach inserts pivot rows linking the parent to the given related
// ids. An optional values map supplies extra pivot columns applied to
// every inserted row; columns not declared via WithPivot are still
// written, the declaration only controls what loads back. With pivot
// timestamps enabled both stamps are set to the current time.
//
// The relation must be pivot-backed; any other kind is an error.
func (c *Client) Attach(ctx context.Context, parent *Entity, relation string, ids []any, values ...map[string]any) error {
	rel, err := pivotRelation(parent, relation)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	parentID, ok := parent.RawAttribute(rel.parentKey)
	if !ok || parentID == nil {
		return fmt.Errorf("arbor: attach %s.%s: parent has no %s value", parent.def.Name, relation, rel.parentKey)
	}
	var extra map[string]any
	if len(values) > 0 {
		extra = values[0]
	}
	cols := []string{rel.pivotForeignKey, rel.pivotRelatedKey}
	if rel.kind == KindMorphToMany {
		cols = append(cols, rel.morphType)
	}
	extraCols := make([]string, 0, len(extra))
	extraVals := make([]any, 0, len(extra))
	for k, v := range extra {
		extraCols = append(extraCols, k)
		extraVals = append(extraVals, v)
	}
	sortByColumns(extraCols, extraVals)
	cols = append(cols, extraCols...)
	var now string
	if rel.pivotTimestamps {
		now = nowFunc().UTC().Format(datetimeLayout)
		cols = append(cols, createdAtColumn, updatedAtColumn)
	}
	ins := sql.Insert(rel.pivotTable).Columns(cols...)
	for _, id := range ids {
		row := []any{parentID, id}
		if rel.kind == KindMorphToMany {
			row = append(row, parent.def.Name)
		}
		row = append(row, extraVals...)
		if rel.pivotTimestamps {
			row = append(row, now, now)
		}
		ins.Values(row...)
	}
	if _, err := c.exec(ctx, ins); err != nil {
		return NewMutationError(parent.def.Name, "attach", err)
	}
	return nil
}

// Detach removes the pivot rows linking the parent to the given related
// ids, or every pivot row of the parent when ids is empty. Returns the
// number of rows removed.
func (c *Client) Detach(ctx context.Context, parent *Entity, relation string, ids ...any) (int64, error) {
	rel, err := pivotRelation(parent, relation)
	if err != nil {
		return 0, err
	}
	parentID, ok := parent.RawAttribute(rel.parentKey)
	if !ok || parentID == nil {
		return 0, fmt.Errorf("arbor: detach %s.%s: parent has no %s value", parent.def.Name, relation, rel.parentKey)
	}
	del := sql.Delete(rel.pivotTable).Where(rel.pivotForeignKey, "=", parentID)
	if rel.kind == KindMorphToMany {
		del.Where(rel.morphType, "=", parent.def.Name)
	}
	if len(ids) > 0 {
		del.WhereIn(rel.pivotRelatedKey, ids...)
	}
	res, err := c.exec(ctx, del)
	if err != nil {
		return 0, NewMutationError(parent.def.Name, "detach", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Sync reconciles the parent's pivot rows with the given id set:
// missing ids are attached, ids absent from the set are detached, ids
// already present are left untouched. The result lists what changed,
// attachments in argument order and detachments in stored order.
func (c *Client) Sync(ctx context.Context, parent *Entity, relation string, ids []any) (*SyncResult, error) {
	rel, err := pivotRelation(parent, relation)
	if err != nil {
		return nil, err
	}
	parentID, ok := parent.RawAttribute(rel.parentKey)
	if !ok || parentID == nil {
		return nil, fmt.Errorf("arbor: sync %s.%s: parent has no %s value", parent.def.Name, relation, rel.parentKey)
	}
	sel := sql.Table(rel.pivotTable).
		Select(rel.pivotRelatedKey).
		Where(rel.pivotForeignKey, "=", parentID)
	if rel.kind == KindMorphToMany {
		sel.Where(rel.morphType, "=", parent.def.Name)
	}
	rows, err := c.query(ctx, sel)
	if err != nil {
		return nil, NewQueryError(parent.def.Name, "sync", err)
	}
	current := make(map[string]any, len(rows))
	var currentOrder []string
	for _, row := range rows {
		v := row[rel.pivotRelatedKey]
		k := keyString(v)
		if _, ok := current[k]; !ok {
			current[k] = v
			currentOrder = append(currentOrder, k)
		}
	}
	wanted := make(map[string]struct{}, len(ids))
	result := &SyncResult{}
	for _, id := range ids {
		k := keyString(id)
		if _, ok := wanted[k]; ok {
			continue
		}
		wanted[k] = struct{}{}
		if _, ok := current[k]; !ok {
			result.Attached = append(result.Attached, id)
		}
	}
	for _, k := range currentOrder {
		if _, ok := wanted[k]; !ok {
			result.Detached = append(result.Detached, current[k])
		}
	}
	if len(result.Detached) > 0 {
		if _, err := c.Detach(ctx, parent, relation, result.Detached...); err != nil {
			return nil, err
		}
	}
	if len(result.Attached) > 0 {
		if err := c.Attach(ctx, parent, relation, result.Attached); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// pivotRelation resolves the named relation and checks it is one of the
// pivot-backed kinds.
func pivotRelation(parent *Entity, name string) (*Relation, error) {
	rel, err := parent.def.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.kind != KindBelongsToMany && rel.kind != KindMorphToMany {
		return nil, fmt.Errorf("arbor: relation %s.%s is %s, not pivot-backed", parent.def.Name, name, rel.kind)
	}
	return rel, nil
}
