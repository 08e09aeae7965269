// Package jsonfile stores tables as directories of JSON files.
//
// Each table lives in <dir>/<tableID>/ with two files:
//
//	meta.json  the table record and its column records
//	data.json  row and cell records
//
// Files are replaced atomically by writing a .tmp file and renaming it.
//
// Every record write rewrites the whole file that holds it, so each write is
// durable on its own. The cost grows with the table: adding a column to a table
// of N rows rewrites data.json N times, and adding M rows rewrites it once per
// cell. The store is meant for small local datasets; use the dynamo gateway for
// large tables.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/leengari/dyntable/internal/storage"
)

const (
	metaFileName = "meta.json"
	dataFileName = "data.json"
)

type metaFile struct {
	Table   storage.Record   `json:"table"`
	Columns []storage.Record `json:"columns"`
}

type dataFile struct {
	Rows  []storage.Record `json:"rows"`
	Cells []storage.Record `json:"cells"`
}

type tableFiles struct {
	meta metaFile
	data dataFile
}

// records returns the slice holding child records of kind
func (f *tableFiles) records(kind storage.Kind) *[]storage.Record {
	switch kind {
	case storage.KindColumn:
		return &f.meta.Columns
	case storage.KindRow:
		return &f.data.Rows
	case storage.KindCell:
		return &f.data.Cells
	}
	return nil
}

// Gateway reads and writes table directories under a root directory.
// Loaded tables are cached; every mutation rewrites the affected file.
type Gateway struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
	cache  map[string]*tableFiles
}

// New opens (creating if needed) a store rooted at dir
func New(dir string, logger *slog.Logger) (*Gateway, error) {
	if dir == "" {
		return nil, fmt.Errorf("jsonfile: empty data directory")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("jsonfile: create data directory %s: %w", dir, err)
	}
	return &Gateway{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*tableFiles),
	}, nil
}

// Dir returns the root directory
func (g *Gateway) Dir() string { return g.dir }

func (g *Gateway) Create(ctx context.Context, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if rec.Kind == storage.KindTable {
		files, err := g.load(rec.ID)
		if err != nil {
			return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
		}
		if files != nil {
			return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, storage.ErrAlreadyExists)
		}
		if err := os.MkdirAll(g.tablePath(rec.ID), 0755); err != nil {
			return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
		}
		files = &tableFiles{meta: metaFile{Table: rec.Clone(), Columns: []storage.Record{}}}
		if err := g.save(rec.ID, files, true, true); err != nil {
			return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
		}
		g.cache[rec.ID] = files
		return nil
	}

	files, list, err := g.child(rec)
	if err != nil {
		return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
	}
	if indexOf(*list, rec.ID) >= 0 {
		return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, storage.ErrAlreadyExists)
	}

	*list = append(*list, rec.Clone())
	if err := g.saveKind(rec.TableID, files, rec.Kind); err != nil {
		*list = (*list)[:len(*list)-1]
		return storage.NewError(storage.OpCreate, rec.Kind, rec.ID, err)
	}
	return nil
}

// Read scans the directory of filter.TableID, or every table directory when unset
func (g *Gateway) Read(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError(storage.OpRead, filter.Kind, filter.ID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var ids []string
	switch {
	case filter.TableID != "":
		ids = []string{filter.TableID}
	case filter.Kind == storage.KindTable && filter.ID != "":
		ids = []string{filter.ID}
	default:
		all, err := g.tableIDs()
		if err != nil {
			return nil, storage.NewError(storage.OpRead, filter.Kind, filter.ID, err)
		}
		ids = all
	}

	out := []storage.Record{}
	for _, id := range ids {
		files, err := g.load(id)
		if err != nil {
			return nil, storage.NewError(storage.OpRead, filter.Kind, filter.ID, err)
		}
		if files == nil {
			continue
		}

		if filter.Matches(files.meta.Table) {
			out = append(out, files.meta.Table.Clone())
		}
		for _, kind := range []storage.Kind{storage.KindColumn, storage.KindRow, storage.KindCell} {
			if filter.Kind != "" && filter.Kind != kind {
				continue
			}
			for _, r := range *files.records(kind) {
				if filter.Matches(r) {
					out = append(out, r.Clone())
				}
			}
		}
	}
	return out, nil
}

func (g *Gateway) Update(ctx context.Context, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if rec.Kind == storage.KindTable {
		files, err := g.load(rec.ID)
		if err != nil {
			return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, err)
		}
		if files == nil {
			return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, storage.ErrNotFound)
		}
		prev := files.meta.Table
		files.meta.Table = rec.Clone()
		if err := g.save(rec.ID, files, true, false); err != nil {
			files.meta.Table = prev
			return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, err)
		}
		return nil
	}

	files, list, err := g.child(rec)
	if err != nil {
		return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, err)
	}
	i := indexOf(*list, rec.ID)
	if i < 0 {
		return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, storage.ErrNotFound)
	}

	prev := (*list)[i]
	(*list)[i] = rec.Clone()
	if err := g.saveKind(rec.TableID, files, rec.Kind); err != nil {
		(*list)[i] = prev
		return storage.NewError(storage.OpUpdate, rec.Kind, rec.ID, err)
	}
	return nil
}

// Delete removes one record. Deleting a table record removes its whole directory.
func (g *Gateway) Delete(ctx context.Context, rec storage.Record) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if rec.Kind == storage.KindTable {
		files, err := g.load(rec.ID)
		if err != nil {
			return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, err)
		}
		if files == nil {
			return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, storage.ErrNotFound)
		}
		if err := os.RemoveAll(g.tablePath(rec.ID)); err != nil {
			return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, err)
		}
		delete(g.cache, rec.ID)
		g.logger.Debug("table directory removed", slog.String("id", rec.ID))
		return nil
	}

	files, list, err := g.child(rec)
	if err != nil {
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, err)
	}
	i := indexOf(*list, rec.ID)
	if i < 0 {
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, storage.ErrNotFound)
	}

	prev := append([]storage.Record(nil), *list...)
	*list = append((*list)[:i], (*list)[i+1:]...)
	if err := g.saveKind(rec.TableID, files, rec.Kind); err != nil {
		*list = prev
		return storage.NewError(storage.OpDelete, rec.Kind, rec.ID, err)
	}
	return nil
}

// child resolves the owning table and the slice a child record belongs in.
// Must be called while holding g.mu.
func (g *Gateway) child(rec storage.Record) (*tableFiles, *[]storage.Record, error) {
	files, err := g.load(rec.TableID)
	if err != nil {
		return nil, nil, err
	}
	if files == nil {
		return nil, nil, fmt.Errorf("table %s: %w", rec.TableID, storage.ErrNotFound)
	}
	list := files.records(rec.Kind)
	if list == nil {
		return nil, nil, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	return files, list, nil
}

// load returns a table's files, or nil when the table does not exist.
// Must be called while holding g.mu.
func (g *Gateway) load(tableID string) (*tableFiles, error) {
	if files, ok := g.cache[tableID]; ok {
		return files, nil
	}
	if err := checkID(tableID); err != nil {
		return nil, err
	}

	path := g.tablePath(tableID)
	metaBytes, err := os.ReadFile(filepath.Join(path, metaFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files := &tableFiles{}
	if err := json.Unmarshal(metaBytes, &files.meta); err != nil {
		return nil, fmt.Errorf("parse %s for table %s: %w", metaFileName, tableID, err)
	}

	dataPath := filepath.Join(path, dataFileName)
	if _, err := os.Stat(dataPath); err == nil {
		dataBytes, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(dataBytes, &files.data); err != nil {
			return nil, fmt.Errorf("parse %s for table %s: %w", dataFileName, tableID, err)
		}
	}

	g.cache[tableID] = files
	g.logger.Debug("table files loaded",
		slog.String("id", tableID),
		slog.Int("columns", len(files.meta.Columns)),
		slog.Int("rows", len(files.data.Rows)),
	)
	return files, nil
}

func (g *Gateway) saveKind(tableID string, files *tableFiles, kind storage.Kind) error {
	if kind == storage.KindColumn {
		return g.save(tableID, files, true, false)
	}
	return g.save(tableID, files, false, true)
}

// save writes meta.json and/or data.json using temp + atomic rename
func (g *Gateway) save(tableID string, files *tableFiles, meta, data bool) error {
	path := g.tablePath(tableID)

	type file struct {
		name string
		v    interface{}
	}
	var out []file
	if meta {
		out = append(out, file{metaFileName, files.meta})
	}
	if data {
		out = append(out, file{dataFileName, files.data})
	}

	for _, f := range out {
		b, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s for table %s: %w", f.name, tableID, err)
		}

		target := filepath.Join(path, f.name)
		tmpPath := target + ".tmp"
		if err := os.WriteFile(tmpPath, b, 0644); err != nil {
			return fmt.Errorf("write temp file %s for table %s: %w", f.name, tableID, err)
		}
		if err := os.Rename(tmpPath, target); err != nil {
			return fmt.Errorf("rename temp → %s for table %s: %w", f.name, tableID, err)
		}
	}
	return nil
}

// tableIDs lists every table directory under the root
func (g *Gateway) tableIDs() ([]string, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (g *Gateway) tablePath(tableID string) string {
	return filepath.Join(g.dir, tableID)
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return fmt.Errorf("invalid table id %q", id)
	}
	return nil
}

func indexOf(list []storage.Record, id string) int {
	for i, r := range list {
		if r.ID == id {
			return i
		}
	}
	return -1
}
