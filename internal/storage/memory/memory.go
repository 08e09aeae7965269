// Package memory is an in-process storage gateway
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/leengari/dyntable/internal/storage"
)

// FaultFunc can make a call fail on purpose. A non-nil return is wrapped
// into the StorageError for that call and nothing is written.
type FaultFunc func(op string, rec storage.Record) error

// Gateway keeps records in a map keyed by id
type Gateway struct {
	mu      sync.RWMutex
	records map[string]storage.Record
	fault   FaultFunc
}

// New returns an empty gateway
func New() *Gateway {
	return &Gateway{records: make(map[string]storage.Record)}
}

// SetFault installs (or clears, with nil) a fault hook
func (g *Gateway) SetFault(f FaultFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fault = f
}

// Put stores rec without any checks. Tests use it to plant data.
func (g *Gateway) Put(rec storage.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[rec.ID] = rec.Clone()
}

// Count returns how many records of a kind are stored
func (g *Gateway) Count(kind storage.Kind) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, r := range g.records {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

func (g *Gateway) Create(ctx context.Context, rec storage.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(ctx, storage.OpCreate, rec); err != nil {
		return err
	}
	if _, exists := g.records[rec.ID]; exists {
		return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, storage.ErrAlreadyExists)
	}
	g.records[rec.ID] = rec.Clone()
	return nil
}

// Read returns matching records ordered by kind, sequence and id
func (g *Gateway) Read(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.check(ctx, storage.OpRead, storage.Record{Kind: filter.Kind, ID: filter.ID}); err != nil {
		return nil, err
	}

	var out []storage.Record
	for _, r := range g.records {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (g *Gateway) Update(ctx context.Context, rec storage.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(ctx, storage.OpUpdate, rec); err != nil {
		return err
	}
	if _, exists := g.records[rec.ID]; !exists {
		return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, storage.ErrNotFound)
	}
	g.records[rec.ID] = rec.Clone()
	return nil
}

func (g *Gateway) Delete(ctx context.Context, rec storage.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(ctx, storage.OpDelete, rec); err != nil {
		return err
	}
	if _, exists := g.records[rec.ID]; !exists {
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, storage.ErrNotFound)
	}
	delete(g.records, rec.ID)
	return nil
}

// check runs the context and fault hook. Must be called while holding a lock.
func (g *Gateway) check(ctx context.Context, op string, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError(op, rec.Kind, rec.ID, err)
	}
	if g.fault != nil {
		if err := g.fault(op, rec); err != nil {
			return storage.NewError(op, rec.Kind, rec.ID, err)
		}
	}
	return nil
}
