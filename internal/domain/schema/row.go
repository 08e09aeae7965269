package schema

import (
	"time"

	"github.com/leengari/dyntable/internal/storage"
)

// Row is a snapshot of one table row.
// Index is the 1-based position at the time the snapshot was taken.
type Row struct {
	ID    string
	Index int
	Cells []Cell // in column creation order
}

// Cell returns the row's cell for a column name
func (r Row) Cell(columnName string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.ColumnName == columnName {
			return c, true
		}
	}
	return Cell{}, false
}

// row holds one raw value per column, keyed by column id; nil is null
type row struct {
	id        string
	seq       int64
	createdAt time.Time
	cells     map[string]*string
}

func (r *row) record(tableID string) storage.Record {
	return storage.Record{
		Kind:      storage.KindRow,
		ID:        r.id,
		TableID:   tableID,
		Seq:       r.seq,
		CreatedAt: r.createdAt,
	}
}

// snapshotRow copies r with its cells in column order.
// Must be called while holding a lock.
func (t *Table) snapshotRow(r *row, index int) Row {
	cells := make([]Cell, len(t.columns))
	for i, c := range t.columns {
		cells[i] = t.cellOf(c, r)
	}
	return Row{ID: r.id, Index: index, Cells: cells}
}

// rowAt resolves a 1-based index. Must be called while holding a lock.
func (t *Table) rowAt(index int) (*row, error) {
	if index < 1 || index > len(t.rows) {
		return nil, t.rowNotFound(index)
	}
	return t.rows[index-1], nil
}
