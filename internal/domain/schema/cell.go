package schema

import (
	stderrors "errors"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/storage"
)

// Cell is a snapshot of the value at one (row, column) intersection.
// The raw value is held in canonical text form; Value formats it on demand.
type Cell struct {
	Table      string
	RowID      string
	ColumnID   string
	ColumnName string
	Type       datatype.DataType

	raw      *string
	registry *datatype.Registry
}

// Value formats the raw value through the registry on every call.
// A stored value that no longer fits the column type is reported as a
// TypeMismatchError instead of being returned unchecked.
func (c Cell) Value() (datatype.Value, error) {
	var raw interface{}
	if c.raw != nil {
		raw = *c.raw
	}

	v, err := c.registry.Format(string(c.Type), raw)
	if err != nil {
		var mismatch *errors.TypeMismatchError
		if stderrors.As(err, &mismatch) {
			mismatch.Table = c.Table
			mismatch.Column = c.ColumnName
		}
		return datatype.Value{}, err
	}
	return v, nil
}

// Raw returns the stored text and false when the cell is null
func (c Cell) Raw() (string, bool) {
	if c.raw == nil {
		return "", false
	}
	return *c.raw, true
}

// IsNull reports whether the cell holds no value
func (c Cell) IsNull() bool {
	return c.raw == nil
}

func cellRecord(tableID, rowID, columnID string, raw *string) storage.Record {
	return storage.Record{
		Kind:     storage.KindCell,
		ID:       storage.CellID(rowID, columnID),
		TableID:  tableID,
		RowID:    rowID,
		ColumnID: columnID,
		Value:    raw,
	}
}

// cellOf builds the snapshot of r's cell for c. Must be called while holding a lock.
func (t *Table) cellOf(c *column, r *row) Cell {
	return Cell{
		Table:      t.name,
		RowID:      r.id,
		ColumnID:   c.id,
		ColumnName: c.name,
		Type:       c.typ,
		raw:        r.cells[c.id],
		registry:   t.registry,
	}
}

// canonical turns a formatted value into what a cell stores
func canonical(v datatype.Value) *string {
	if v.Null {
		return nil
	}
	return storage.StringPtr(v.String())
}
