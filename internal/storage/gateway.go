// Package storage defines the persistence gateway the table engine writes through.
//
// The engine never embeds storage logic: every table, column, row and cell is a
// Record, and the engine issues create/read/update/delete calls for them. Backends
// live in the memory, jsonfile and dynamo subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	dberrors "github.com/leengari/dyntable/internal/domain/errors"
)

// Kind identifies which entity a Record describes
type Kind string

const (
	KindTable  Kind = "table"
	KindColumn Kind = "column"
	KindRow    Kind = "row"
	KindCell   Kind = "cell"
)

// Operation names used in StorageError.Op
const (
	OpCreate = "create"
	OpRead   = "read"
	OpUpdate = "update"
	OpDelete = "delete"
)

var (
	// ErrNotFound is wrapped when an update or delete targets a missing record.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is wrapped when a create targets an existing id.
	ErrAlreadyExists = errors.New("record already exists")
)

// Record is the persisted form of every entity.
// Fields not relevant to a Kind are left zero.
type Record struct {
	Kind        Kind      `json:"kind"`
	ID          string    `json:"id"`
	TableID     string    `json:"table_id,omitempty"`
	RowID       string    `json:"row_id,omitempty"`
	ColumnID    string    `json:"column_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	DataType    string    `json:"data_type,omitempty"`
	Seq         int64     `json:"seq,omitempty"`
	Value       *string   `json:"value,omitempty"` // cells only; nil is null
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Clone returns a copy whose Value does not alias r's
func (r Record) Clone() Record {
	if r.Value != nil {
		r.Value = StringPtr(*r.Value)
	}
	return r
}

// Filter selects records in Read. Zero fields match anything.
type Filter struct {
	Kind    Kind
	ID      string
	TableID string
	Name    string
}

// Matches reports whether r satisfies the filter
func (f Filter) Matches(r Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.ID != "" && r.ID != f.ID {
		return false
	}
	if f.TableID != "" && r.TableID != f.TableID {
		return false
	}
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	return true
}

// Gateway is the durable store behind the engine.
// Implementations report failures as *errors.StorageError.
type Gateway interface {
	Create(ctx context.Context, rec Record) error
	Read(ctx context.Context, filter Filter) ([]Record, error)
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, rec Record) error
}

// CellID derives the record id of the cell at (row, column)
func CellID(rowID, columnID string) string {
	return rowID + ":" + columnID
}

// NewError builds the StorageError a backend returns
func NewError(op string, kind Kind, id string, err error) *dberrors.StorageError {
	return &dberrors.StorageError{Op: op, Kind: string(kind), ID: id, Err: err}
}

// StringPtr returns a pointer to s, for Record.Value
func StringPtr(s string) *string {
	return &s
}
