package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leengari/dyntable/internal/storage"
)

// txIDCounter is an atomic counter for numeric transaction IDs
var txIDCounter uint64

// ChangeType represents the type of modification
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "CREATE"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

// Change represents a single gateway call that has already succeeded
type Change struct {
	Type     ChangeType
	Record   storage.Record
	Previous storage.Record // Record before an UPDATE
}

// Transaction groups the gateway calls of one table mutation.
// If a later call fails, Rollback undoes the earlier ones.
type Transaction struct {
	ID        string    // Unique transaction identifier, used in logs and events
	TxID      uint64    // Numeric, process-local ordering
	Active    bool      // Whether transaction is currently active
	StartTime time.Time // When the transaction began
	Changes   []Change  // Modifications made
}

// NewTransaction creates a new transaction with a unique ID
func NewTransaction() *Transaction {
	return &Transaction{
		ID:        uuid.New().String(),
		TxID:      atomic.AddUint64(&txIDCounter, 1),
		Active:    true,
		StartTime: time.Now(),
		Changes:   make([]Change, 0),
	}
}

// Close marks the transaction as inactive
func (tx *Transaction) Close() {
	tx.Active = false
}

// Create persists rec and journals it
func (tx *Transaction) Create(ctx context.Context, gw storage.Gateway, rec storage.Record) error {
	if err := gw.Create(ctx, rec); err != nil {
		return err
	}
	tx.Changes = append(tx.Changes, Change{Type: ChangeTypeCreate, Record: rec})
	return nil
}

// Update persists rec over prev and journals both
func (tx *Transaction) Update(ctx context.Context, gw storage.Gateway, rec, prev storage.Record) error {
	if err := gw.Update(ctx, rec); err != nil {
		return err
	}
	tx.Changes = append(tx.Changes, Change{Type: ChangeTypeUpdate, Record: rec, Previous: prev})
	return nil
}

// Delete removes rec and journals it so it can be recreated
func (tx *Transaction) Delete(ctx context.Context, gw storage.Gateway, rec storage.Record) error {
	if err := gw.Delete(ctx, rec); err != nil {
		return err
	}
	tx.Changes = append(tx.Changes, Change{Type: ChangeTypeDelete, Record: rec})
	return nil
}

// Rollback applies the inverse of every journaled change, newest first.
// It keeps going after a failed step and returns all failures joined.
// Cancellation of ctx does not stop the rollback.
func (tx *Transaction) Rollback(ctx context.Context, gw storage.Gateway) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(tx.Changes) - 1; i >= 0; i-- {
		c := tx.Changes[i]

		var err error
		switch c.Type {
		case ChangeTypeCreate:
			err = gw.Delete(ctx, c.Record)
		case ChangeTypeUpdate:
			err = gw.Update(ctx, c.Previous)
		case ChangeTypeDelete:
			err = gw.Create(ctx, c.Record)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("undo %s %s %s: %w", c.Type, c.Record.Kind, c.Record.ID, err))
		}
	}

	tx.Changes = tx.Changes[:0]
	tx.Active = false
	return errors.Join(errs...)
}
