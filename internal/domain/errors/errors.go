package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the structured error types below through Is.
// Callers can use either errors.Is(err, ErrRowNotFound) or errors.As with the struct.
var (
	ErrUnsupportedType   = errors.New("unsupported data type")
	ErrTypeMismatch      = errors.New("value does not match column type")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrColumnNotFound    = errors.New("column not found")
	ErrRowNotFound       = errors.New("row not found")
	ErrDuplicateTable    = errors.New("duplicate table")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrStorage           = errors.New("storage failure")
	ErrTableHasNoColumns = errors.New("table has no columns")
)

// UnsupportedTypeError is returned when a type tag is not in the registry
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported data type %q", e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// TypeMismatchError reports a value that cannot be coerced to a column's type.
// Table and Column are empty when the failure came from a bare registry call.
type TypeMismatchError struct {
	Table  string
	Column string
	Type   string
	Value  interface{}
	Reason string
}

func (e *TypeMismatchError) Error() string {
	var parts []string

	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("type mismatch in %s.%s", e.Table, e.Column))
	} else {
		parts = append(parts, "type mismatch")
	}

	parts = append(parts, fmt.Sprintf("(%s)", e.Type))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	return strings.Join(parts, " - ")
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// DuplicateColumnError is returned when a column name is already taken
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("column '%s' already exists in table '%s'", e.Column, e.Table)
}

func (e *DuplicateColumnError) Is(target error) bool { return target == ErrDuplicateColumn }

// ColumnNotFoundError is returned when a column doesn't exist in a table
type ColumnNotFoundError struct {
	TableName  string
	ColumnName string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column '%s' not found in table '%s'", e.ColumnName, e.TableName)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// RowNotFoundError is returned when a 1-based row index is out of range.
// Index is 0 when the last row was requested from an empty table.
type RowNotFoundError struct {
	TableName string
	Index     int
	RowCount  int
}

func (e *RowNotFoundError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("table '%s' has no rows", e.TableName)
	}
	return fmt.Sprintf("row %d not found in table '%s' (%d rows)", e.Index, e.TableName, e.RowCount)
}

func (e *RowNotFoundError) Is(target error) bool { return target == ErrRowNotFound }

// DuplicateTableError is returned when a table name is already registered
type DuplicateTableError struct {
	Name string
}

func (e *DuplicateTableError) Error() string {
	return fmt.Sprintf("table '%s' already exists", e.Name)
}

func (e *DuplicateTableError) Is(target error) bool { return target == ErrDuplicateTable }

// TableNotFoundError is returned when a table name is unknown
type TableNotFoundError struct {
	Name string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' not found", e.Name)
}

func (e *TableNotFoundError) Is(target error) bool { return target == ErrTableNotFound }

// ArgumentError describes a malformed call, such as bulk inputs of unequal length
type ArgumentError struct {
	Op     string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// StorageError wraps a failure reported by a persistence gateway.
// The table API returns it to the caller exactly as the gateway produced it.
type StorageError struct {
	Op   string // create, read, update, delete
	Kind string // table, column, row, cell
	ID   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage %s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
