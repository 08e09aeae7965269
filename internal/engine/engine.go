package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/event"
	"github.com/leengari/dyntable/internal/domain/schema"
	"github.com/leengari/dyntable/internal/storage"
)

// Options configures an Engine. Zero fields get defaults.
type Options struct {
	// Registry is shared by every table. Default: datatype.Default().
	Registry *datatype.Registry

	// Logger is handed to every table. Default: slog.Default().
	Logger *slog.Logger
}

// Engine is the catalog of tables stored behind one gateway.
// It keeps opened tables cached by name and fans table events out to observers.
type Engine struct {
	mu     sync.RWMutex
	gw     storage.Gateway
	tables map[string]*schema.Table

	obsMu     sync.RWMutex
	observers []event.Observer

	// events raised while mu is held for writing wait in queued until it is released
	queueMu sync.Mutex
	holds   int
	queued  []event.Event

	registry *datatype.Registry
	logger   *slog.Logger
}

// New creates a new Engine instance
func New(gw storage.Gateway, opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = datatype.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		gw:        gw,
		tables:    make(map[string]*schema.Table),
		observers: make([]event.Observer, 0),
		registry:  opts.Registry,
		logger:    opts.Logger,
	}
}

func (e *Engine) tableOptions() schema.Options {
	return schema.Options{
		Registry: e.registry,
		Logger:   e.logger,
		Observer: event.ObserverFunc(e.dispatch),
	}
}

// lockCatalog takes mu for writing and holds back table events until unlockCatalog
func (e *Engine) lockCatalog() {
	e.queueMu.Lock()
	e.holds++
	e.queueMu.Unlock()
	e.mu.Lock()
}

// unlockCatalog releases mu, then delivers the events held back while it was taken
func (e *Engine) unlockCatalog() {
	e.mu.Unlock()

	e.queueMu.Lock()
	e.holds--
	var queued []event.Event
	if e.holds == 0 {
		queued = e.queued
		e.queued = nil
	}
	e.queueMu.Unlock()

	for _, ev := range queued {
		e.handle(ev)
	}
}

// dispatch receives every event raised by the engine's tables
func (e *Engine) dispatch(ev event.Event) {
	e.queueMu.Lock()
	if e.holds > 0 {
		e.queued = append(e.queued, ev)
		e.queueMu.Unlock()
		return
	}
	e.queueMu.Unlock()

	e.handle(ev)
}

func (e *Engine) handle(ev event.Event) {
	if ev.Type == event.TableDropped {
		e.evictDropped(ev.Table)
	}
	e.notify(ev)
}

// evictDropped unloads name if the cached table was dropped behind the engine's back
func (e *Engine) evictDropped(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tables[name]; ok && t.Dropped() {
		delete(e.tables, name)
	}
}

// cached returns a live cached table. Must be called while holding mu.
func (e *Engine) cached(name string) (*schema.Table, bool) {
	t, ok := e.tables[name]
	if !ok || t.Dropped() {
		return nil, false
	}
	return t, true
}

// CreateTable creates and caches a new table. Names are unique.
func (e *Engine) CreateTable(ctx context.Context, name, description string) (*schema.Table, error) {
	e.lockCatalog()
	defer e.unlockCatalog()

	if _, ok := e.cached(name); ok {
		return nil, &errors.DuplicateTableError{Name: name}
	}

	t, err := schema.Create(ctx, e.gw, name, description, e.tableOptions())
	if err != nil {
		return nil, err
	}
	e.tables[name] = t
	return t, nil
}

// Table returns a cached table or loads it from the gateway
func (e *Engine) Table(ctx context.Context, name string) (*schema.Table, error) {
	e.mu.RLock()
	t, ok := e.cached(name)
	e.mu.RUnlock()
	if ok {
		return t, nil
	}

	e.lockCatalog()
	defer e.unlockCatalog()

	// Check cache again, another caller may have loaded it
	if t, ok := e.cached(name); ok {
		return t, nil
	}

	t, err := schema.Load(ctx, e.gw, name, e.tableOptions())
	if err != nil {
		return nil, err
	}
	e.tables[name] = t
	return t, nil
}

// DropTable deletes a table with every column, row and cell, then unloads it
func (e *Engine) DropTable(ctx context.Context, name string) error {
	e.lockCatalog()
	defer e.unlockCatalog()

	t, ok := e.cached(name)
	if !ok {
		loaded, err := schema.Load(ctx, e.gw, name, e.tableOptions())
		if err != nil {
			return err
		}
		t = loaded
	}

	if err := t.Drop(ctx); err != nil {
		return err
	}
	delete(e.tables, name)
	return nil
}

// ListTables returns the names of every stored table, sorted
func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	recs, err := e.gw.Read(ctx, storage.Filter{Kind: storage.KindTable})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Registry returns the type registry shared by the engine's tables
func (e *Engine) Registry() *datatype.Registry {
	return e.registry
}
