package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/event"
)

// AddColumn adds one column and backfills a null cell into every existing row
func (t *Table) AddColumn(ctx context.Context, name, dataType string) (Column, error) {
	cols, err := t.BulkAddColumns(ctx, []string{name}, []string{dataType})
	if err != nil {
		return Column{}, err
	}
	return cols[0], nil
}

// BulkAddColumns adds several columns at once. The whole batch is validated
// before anything is persisted, and a failure leaves the table unchanged.
func (t *Table) BulkAddColumns(ctx context.Context, names, dataTypes []string) ([]Column, error) {
	if len(names) != len(dataTypes) {
		return nil, &errors.ArgumentError{
			Op:     "bulk add columns",
			Reason: fmt.Sprintf("len(names) = %d != len(dataTypes) = %d", len(names), len(dataTypes)),
		}
	}

	t.lock()
	defer t.unlock()

	tx, err := t.begin("BulkAddColumns")
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	// 1. Validate the whole batch
	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(names))
	added := make([]*column, 0, len(names))

	for i, name := range names {
		if !validColumnName(name) {
			return nil, &errors.ArgumentError{Op: "add column", Reason: "column name must not be empty"}
		}
		typ, err := t.registry.Lookup(dataTypes[i])
		if err != nil {
			return nil, err
		}
		if c, _ := t.findColumn(name); c != nil {
			return nil, &errors.DuplicateColumnError{Table: t.name, Column: name}
		}
		if _, dup := seen[name]; dup {
			return nil, &errors.DuplicateColumnError{Table: t.name, Column: name}
		}
		seen[name] = struct{}{}

		added = append(added, &column{
			id:        uuid.New().String(),
			name:      name,
			typ:       typ,
			seq:       t.nextColSeq + int64(i),
			createdAt: now,
		})
	}

	if len(added) == 0 {
		return []Column{}, nil
	}

	// 2. Persist columns, then one null cell per existing row
	for _, c := range added {
		if err := tx.Create(ctx, t.gw, c.record(t.id)); err != nil {
			return nil, t.abort(ctx, tx, err)
		}
		for _, r := range t.rows {
			if err := tx.Create(ctx, t.gw, cellRecord(t.id, r.id, c.id, nil)); err != nil {
				return nil, t.abort(ctx, tx, err)
			}
		}
	}

	// 3. Everything persisted → apply in memory
	result := make([]Column, len(added))
	for i, c := range added {
		t.columns = append(t.columns, c)
		for _, r := range t.rows {
			r.cells[c.id] = nil
		}
		result[i] = c.snapshot(t.id)
	}
	t.nextColSeq += int64(len(added))

	t.emit(event.ColumnAdded, tx, names)
	return result, nil
}

// DeleteColumn removes a column and its cell from every row
func (t *Table) DeleteColumn(ctx context.Context, name string) (Column, error) {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("DeleteColumn")
	if err != nil {
		return Column{}, err
	}
	defer tx.Close()

	c, pos := t.findColumn(name)
	if c == nil {
		return Column{}, t.columnNotFound(name)
	}

	for _, r := range t.rows {
		if err := tx.Delete(ctx, t.gw, cellRecord(t.id, r.id, c.id, r.cells[c.id])); err != nil {
			return Column{}, t.abort(ctx, tx, err)
		}
	}
	if err := tx.Delete(ctx, t.gw, c.record(t.id)); err != nil {
		return Column{}, t.abort(ctx, tx, err)
	}

	t.columns = append(t.columns[:pos], t.columns[pos+1:]...)
	for _, r := range t.rows {
		delete(r.cells, c.id)
	}

	t.emit(event.ColumnDeleted, tx, name)
	return c.snapshot(t.id), nil
}

// RenameColumn changes a column's name. Cells are keyed by column id and are not touched.
func (t *Table) RenameColumn(ctx context.Context, oldName, newName string) (Column, error) {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("RenameColumn")
	if err != nil {
		return Column{}, err
	}
	defer tx.Close()

	c, _ := t.findColumn(oldName)
	if c == nil {
		return Column{}, t.columnNotFound(oldName)
	}
	if !validColumnName(newName) {
		return Column{}, &errors.ArgumentError{Op: "rename column", Reason: "column name must not be empty"}
	}
	if oldName == newName {
		return c.snapshot(t.id), nil
	}
	if other, _ := t.findColumn(newName); other != nil {
		return Column{}, &errors.DuplicateColumnError{Table: t.name, Column: newName}
	}

	prev := c.record(t.id)
	next := prev
	next.Name = newName
	if err := tx.Update(ctx, t.gw, next, prev); err != nil {
		return Column{}, err
	}

	c.name = newName
	t.emit(event.ColumnRenamed, tx, map[string]string{"from": oldName, "to": newName})
	return c.snapshot(t.id), nil
}

// Column returns the definition of a named column
func (t *Table) Column(name string) (Column, error) {
	t.rlock()
	defer t.runlock()

	c, _ := t.findColumn(name)
	if c == nil {
		return Column{}, t.columnNotFound(name)
	}
	return c.snapshot(t.id), nil
}

// Columns returns every column in creation order
func (t *Table) Columns() []Column {
	t.rlock()
	defer t.runlock()

	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.snapshot(t.id)
	}
	return cols
}

// ColumnCells returns the named column's cell from every row, in row order
func (t *Table) ColumnCells(name string) ([]Cell, error) {
	t.rlock()
	defer t.runlock()

	c, _ := t.findColumn(name)
	if c == nil {
		return nil, t.columnNotFound(name)
	}

	cells := make([]Cell, len(t.rows))
	for i, r := range t.rows {
		cells[i] = t.cellOf(c, r)
	}
	return cells, nil
}
