package event

import "time"

// Type names a table lifecycle event
type Type string

const (
	TableCreated   Type = "table_created"
	TableDropped   Type = "table_dropped"
	ColumnAdded    Type = "column_added"
	ColumnDeleted  Type = "column_deleted"
	ColumnRenamed  Type = "column_renamed"
	RowAdded       Type = "row_added"
	RowDeleted     Type = "row_deleted"
	CellUpdated    Type = "cell_updated"
	DescriptionSet Type = "description_set"
)

// Event is emitted after a mutation has been committed
type Event struct {
	Type      Type        // Type of event
	Table     string      // Table name
	TxID      string      // Transaction ID for tracing
	Timestamp time.Time   // When the event occurred
	Data      interface{} // Event-specific data (column names, row counts, ...)
}

// Observer interface for event subscribers
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }
