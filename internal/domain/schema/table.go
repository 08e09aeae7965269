package schema

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/event"
	"github.com/leengari/dyntable/internal/domain/transaction"
	"github.com/leengari/dyntable/internal/storage"
)

// Options configures a Table. Zero fields get defaults.
type Options struct {
	// Registry validates cell values. Default: datatype.Default().
	Registry *datatype.Registry

	// Logger receives per-operation debug logs. Default: slog.Default().
	Logger *slog.Logger

	// Observer is notified after every committed mutation. Optional.
	Observer event.Observer
}

func (o *Options) validate() {
	if o.Registry == nil {
		o.Registry = datatype.Default()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Info summarizes a table's shape
type Info struct {
	RowCount    int `json:"rows"`
	ColumnCount int `json:"columns"`
}

// Table is a runtime-defined table: it owns its columns and rows and writes
// every change through a storage gateway before applying it in memory.
type Table struct {
	mu          sync.RWMutex
	id          string
	name        string
	description string
	createdAt   time.Time
	columns     []*column // creation order
	rows        []*row    // position order
	nextColSeq  int64
	nextRowSeq  int64
	dropped     bool

	gw       storage.Gateway
	registry *datatype.Registry
	logger   *slog.Logger
	observer event.Observer
	pending  []event.Event // queued under the write lock, sent by unlock
}

// Create persists a new, empty table. Names are unique per gateway.
func Create(ctx context.Context, gw storage.Gateway, name, description string, opts Options) (*Table, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &errors.ArgumentError{Op: "create table", Reason: "table name must not be empty"}
	}

	existing, err := gw.Read(ctx, storage.Filter{Kind: storage.KindTable, Name: name})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &errors.DuplicateTableError{Name: name}
	}

	t := newTable(gw, uuid.New().String(), name, description, time.Now().UTC(), opts)
	tx := transaction.NewTransaction()
	defer tx.Close()

	if err := tx.Create(ctx, gw, t.record()); err != nil {
		return nil, err
	}

	t.logger.Info("table created", slog.String("table", name), slog.String("id", t.id), slog.String("tx_id", tx.ID))
	t.emit(event.TableCreated, tx, nil)
	t.flush()
	return t, nil
}

func newTable(gw storage.Gateway, id, name, description string, createdAt time.Time, opts Options) *Table {
	opts.validate()
	return &Table{
		id:          id,
		name:        name,
		description: description,
		createdAt:   createdAt,
		nextColSeq:  1,
		nextRowSeq:  1,
		gw:          gw,
		registry:    opts.Registry,
		logger:      opts.Logger,
		observer:    opts.Observer,
	}
}

func (t *Table) record() storage.Record {
	return storage.Record{
		Kind:        storage.KindTable,
		ID:          t.id,
		Name:        t.name,
		Description: t.description,
		CreatedAt:   t.createdAt,
	}
}

// ID returns the table's stable identifier
func (t *Table) ID() string { return t.id }

// Name returns the table name
func (t *Table) Name() string { return t.name }

// CreatedAt returns when the table was created
func (t *Table) CreatedAt() time.Time { return t.createdAt }

// Description returns the table description
func (t *Table) Description() string {
	t.rlock()
	defer t.runlock()
	return t.description
}

// Dropped reports whether Drop has removed the table from storage
func (t *Table) Dropped() bool {
	t.rlock()
	defer t.runlock()
	return t.dropped
}

// lock acquires the exclusive lock for a mutation
func (t *Table) lock() {
	t.mu.Lock()
}

// unlock releases the exclusive lock, then delivers events queued while it was held.
// Observers therefore may read the table without deadlocking.
func (t *Table) unlock() {
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	t.deliver(pending)
}

// rlock acquires a read lock for read operations
func (t *Table) rlock() {
	t.mu.RLock()
}

// runlock releases the read lock
func (t *Table) runlock() {
	t.mu.RUnlock()
}

// emit queues an event. Must be called while holding the write lock.
func (t *Table) emit(typ event.Type, tx *transaction.Transaction, data interface{}) {
	t.pending = append(t.pending, event.Event{
		Type:      typ,
		Table:     t.name,
		TxID:      tx.ID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// flush delivers queued events when no lock is involved (construction, Create)
func (t *Table) flush() {
	pending := t.pending
	t.pending = nil
	t.deliver(pending)
}

func (t *Table) deliver(events []event.Event) {
	if t.observer == nil {
		return
	}
	for _, e := range events {
		t.observer.OnEvent(e)
	}
}

// begin starts a transaction for a mutation. Must be called while holding the write lock.
func (t *Table) begin(op string) (*transaction.Transaction, error) {
	if t.dropped {
		return nil, &errors.TableNotFoundError{Name: t.name}
	}
	tx := transaction.NewTransaction()
	t.logger.Debug(op+" operation", "table", t.name, "tx_id", tx.ID)
	return tx, nil
}

// abort undoes the gateway calls of a failed mutation and hands back the
// original error unchanged
func (t *Table) abort(ctx context.Context, tx *transaction.Transaction, err error) error {
	if rbErr := tx.Rollback(ctx, t.gw); rbErr != nil {
		t.logger.Error("rollback failed",
			slog.String("table", t.name),
			slog.String("tx_id", tx.ID),
			slog.Any("error", rbErr),
			slog.Any("cause", err),
		)
	}
	return err
}

// Info returns the row and column counts
func (t *Table) Info() Info {
	t.rlock()
	defer t.runlock()
	return Info{RowCount: len(t.rows), ColumnCount: len(t.columns)}
}

// IsEmpty reports whether the table has no columns and no rows
func (t *Table) IsEmpty() bool {
	t.rlock()
	defer t.runlock()
	return len(t.columns) == 0 && len(t.rows) == 0
}

// IsColumn reports whether a column with this name exists
func (t *Table) IsColumn(name string) bool {
	t.rlock()
	defer t.runlock()
	c, _ := t.findColumn(name)
	return c != nil
}

// SupportedDataTypes lists the type tags columns may use
func (t *Table) SupportedDataTypes() []datatype.DataType {
	return t.registry.SupportedTypes()
}

// DataTypeIsSupported reports whether every tag is a supported type
func (t *Table) DataTypeIsSupported(tags ...string) bool {
	return t.registry.IsSupported(tags...)
}

// SetDescription updates the table description
func (t *Table) SetDescription(ctx context.Context, description string) error {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("SetDescription")
	if err != nil {
		return err
	}
	defer tx.Close()

	prev := t.record()
	next := prev
	next.Description = description
	if err := tx.Update(ctx, t.gw, next, prev); err != nil {
		return err
	}

	t.description = description
	t.emit(event.DescriptionSet, tx, description)
	return nil
}

// Drop deletes every cell, row, column and finally the table record.
// The table rejects further mutations afterwards.
func (t *Table) Drop(ctx context.Context) error {
	t.lock()
	defer t.unlock()

	tx, err := t.begin("Drop")
	if err != nil {
		return err
	}
	defer tx.Close()

	for _, r := range t.rows {
		for _, c := range t.columns {
			if err := tx.Delete(ctx, t.gw, cellRecord(t.id, r.id, c.id, r.cells[c.id])); err != nil {
				return t.abort(ctx, tx, err)
			}
		}
		if err := tx.Delete(ctx, t.gw, r.record(t.id)); err != nil {
			return t.abort(ctx, tx, err)
		}
	}
	for _, c := range t.columns {
		if err := tx.Delete(ctx, t.gw, c.record(t.id)); err != nil {
			return t.abort(ctx, tx, err)
		}
	}
	if err := tx.Delete(ctx, t.gw, t.record()); err != nil {
		return t.abort(ctx, tx, err)
	}

	rows, cols := len(t.rows), len(t.columns)
	t.rows = nil
	t.columns = nil
	t.dropped = true

	t.logger.Info("table dropped", slog.String("table", t.name), slog.String("tx_id", tx.ID))
	t.emit(event.TableDropped, tx, Info{RowCount: rows, ColumnCount: cols})
	return nil
}

func (t *Table) rowNotFound(index int) error {
	return &errors.RowNotFoundError{TableName: t.name, Index: index, RowCount: len(t.rows)}
}

func (t *Table) columnNotFound(name string) error {
	return &errors.ColumnNotFoundError{TableName: t.name, ColumnName: name}
}
