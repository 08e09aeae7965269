package schema

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/event"
)

// AddRow appends one row. Keys must name existing columns; omitted columns get a null cell.
func (t *Table) AddRow(ctx context.Context, values map[string]interface{}) (Row, error) {
	rows, err := t.BulkAddRows(ctx, []map[string]interface{}{values})
	if err != nil {
		return Row{}, err
	}
	return rows[0], nil
}

// BulkAddRows appends several rows. Every entry is validated before anything is
// persisted; one bad entry fails the batch and no row is created.
func (t *Table) BulkAddRows(ctx context.Context, values []map[string]interface{}) ([]Row, error) {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("BulkAddRows")
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	if len(values) == 0 {
		return []Row{}, nil
	}
	if len(t.columns) == 0 {
		return nil, errors.ErrTableHasNoColumns
	}

	// 1. Validate every entry
	now := time.Now().UTC()
	added := make([]*row, len(values))
	for i, value := range values {
		cells, err := t.buildCells(value)
		if err != nil {
			return nil, err
		}
		added[i] = &row{
			id:        uuid.New().String(),
			seq:       t.nextRowSeq + int64(i),
			createdAt: now,
			cells:     cells,
		}
	}

	// 2. Persist each row with all of its cells
	for _, r := range added {
		if err := tx.Create(ctx, t.gw, r.record(t.id)); err != nil {
			return nil, t.abort(ctx, tx, err)
		}
		for _, c := range t.columns {
			if err := tx.Create(ctx, t.gw, cellRecord(t.id, r.id, c.id, r.cells[c.id])); err != nil {
				return nil, t.abort(ctx, tx, err)
			}
		}
	}

	// 3. Apply in memory
	first := len(t.rows) + 1
	t.rows = append(t.rows, added...)
	t.nextRowSeq += int64(len(added))

	result := make([]Row, len(added))
	for i, r := range added {
		result[i] = t.snapshotRow(r, first+i)
	}

	t.emit(event.RowAdded, tx, len(added))
	return result, nil
}

// buildCells validates one row mapping against the current columns.
// Keys are checked in sorted order so the reported error is deterministic.
// Must be called while holding a lock.
func (t *Table) buildCells(value map[string]interface{}) (map[string]*string, error) {
	keys := make([]string, 0, len(value))
	for k := range value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cells := make(map[string]*string, len(t.columns))
	for _, c := range t.columns {
		cells[c.id] = nil
	}

	for _, name := range keys {
		c, _ := t.findColumn(name)
		if c == nil {
			return nil, t.columnNotFound(name)
		}
		v, err := t.format(c, value[name])
		if err != nil {
			return nil, err
		}
		cells[c.id] = canonical(v)
	}
	return cells, nil
}

// format validates raw for a column and names the column in mismatch errors
func (t *Table) format(c *column, raw interface{}) (datatype.Value, error) {
	v, err := t.registry.Format(string(c.typ), raw)
	if err != nil {
		var mismatch *errors.TypeMismatchError
		if stderrors.As(err, &mismatch) {
			mismatch.Table = t.name
			mismatch.Column = c.name
		}
		return datatype.Value{}, err
	}
	return v, nil
}

// DeleteRow removes the row at a 1-based index; later rows shift down by one
func (t *Table) DeleteRow(ctx context.Context, index int) (Row, error) {
	t.lock()
	defer t.unlock()
	return t.deleteRow(ctx, index)
}

// DeleteLastRow removes the last row
func (t *Table) DeleteLastRow(ctx context.Context) (Row, error) {
	t.lock()
	defer t.unlock()

	if len(t.rows) == 0 && !t.dropped {
		return Row{}, t.rowNotFound(0)
	}
	return t.deleteRow(ctx, len(t.rows))
}

// deleteRow must be called while holding the write lock
func (t *Table) deleteRow(ctx context.Context, index int) (Row, error) {
	tx, err := t.begin("DeleteRow")
	if err != nil {
		return Row{}, err
	}
	defer tx.Close()

	r, err := t.rowAt(index)
	if err != nil {
		return Row{}, err
	}
	snapshot := t.snapshotRow(r, index)

	for _, c := range t.columns {
		if err := tx.Delete(ctx, t.gw, cellRecord(t.id, r.id, c.id, r.cells[c.id])); err != nil {
			return Row{}, t.abort(ctx, tx, err)
		}
	}
	if err := tx.Delete(ctx, t.gw, r.record(t.id)); err != nil {
		return Row{}, t.abort(ctx, tx, err)
	}

	t.rows = append(t.rows[:index-1], t.rows[index:]...)

	t.emit(event.RowDeleted, tx, index)
	return snapshot, nil
}

// UpdateCell validates raw against the column type and stores it in one cell
func (t *Table) UpdateCell(ctx context.Context, columnName string, index int, raw interface{}) (Cell, error) {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("UpdateCell")
	if err != nil {
		return Cell{}, err
	}
	defer tx.Close()

	c, _ := t.findColumn(columnName)
	if c == nil {
		return Cell{}, t.columnNotFound(columnName)
	}
	r, err := t.rowAt(index)
	if err != nil {
		return Cell{}, err
	}
	v, err := t.format(c, raw)
	if err != nil {
		return Cell{}, err
	}

	next := canonical(v)
	prev := cellRecord(t.id, r.id, c.id, r.cells[c.id])
	if err := tx.Update(ctx, t.gw, cellRecord(t.id, r.id, c.id, next), prev); err != nil {
		return Cell{}, err
	}

	r.cells[c.id] = next
	t.emit(event.CellUpdated, tx, map[string]interface{}{"column": columnName, "row": index})
	return t.cellOf(c, r), nil
}

// Rows returns every row in position order
func (t *Table) Rows() []Row {
	t.rlock()
	defer t.runlock()

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = t.snapshotRow(r, i+1)
	}
	return rows
}

// Snapshot returns the columns and rows as of one moment
func (t *Table) Snapshot() ([]Column, []Row) {
	t.rlock()
	defer t.runlock()

	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.snapshot(t.id)
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = t.snapshotRow(r, i+1)
	}
	return cols, rows
}

// RowCells returns the cells of one row in column creation order
func (t *Table) RowCells(index int) ([]Cell, error) {
	t.rlock()
	defer t.runlock()

	r, err := t.rowAt(index)
	if err != nil {
		return nil, err
	}
	return t.snapshotRow(r, index).Cells, nil
}

// Cell returns the cell at a column name and 1-based row index
func (t *Table) Cell(columnName string, index int) (Cell, error) {
	t.rlock()
	defer t.runlock()

	c, _ := t.findColumn(columnName)
	if c == nil {
		return Cell{}, t.columnNotFound(columnName)
	}
	r, err := t.rowAt(index)
	if err != nil {
		return Cell{}, err
	}
	return t.cellOf(c, r), nil
}

// RowValues returns one row as column name → formatted value
func (t *Table) RowValues(index int) (map[string]datatype.Value, error) {
	cells, err := t.RowCells(index)
	if err != nil {
		return nil, err
	}

	values := make(map[string]datatype.Value, len(cells))
	for _, cell := range cells {
		v, err := cell.Value()
		if err != nil {
			return nil, err
		}
		values[cell.ColumnName] = v
	}
	return values, nil
}
