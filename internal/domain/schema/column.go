package schema

import (
	"strings"
	"time"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/storage"
)

// Column is a snapshot of a column definition
type Column struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      datatype.DataType `json:"type"`
	TableID   string            `json:"table_id"`
	Seq       int64             `json:"seq"`
	CreatedAt time.Time         `json:"created_at"`
}

// column is the table-owned definition. Cells reference it by id, never by name.
type column struct {
	id        string
	name      string
	typ       datatype.DataType
	seq       int64
	createdAt time.Time
}

func (c *column) snapshot(tableID string) Column {
	return Column{
		ID:        c.id,
		Name:      c.name,
		Type:      c.typ,
		TableID:   tableID,
		Seq:       c.seq,
		CreatedAt: c.createdAt,
	}
}

func (c *column) record(tableID string) storage.Record {
	return storage.Record{
		Kind:      storage.KindColumn,
		ID:        c.id,
		TableID:   tableID,
		Name:      c.name,
		DataType:  string(c.typ),
		Seq:       c.seq,
		CreatedAt: c.createdAt,
	}
}

// findColumn returns the column and its position, or -1.
// Must be called while holding a lock.
func (t *Table) findColumn(name string) (*column, int) {
	for i, c := range t.columns {
		if c.name == name {
			return c, i
		}
	}
	return nil, -1
}

func validColumnName(name string) bool {
	return strings.TrimSpace(name) != ""
}
