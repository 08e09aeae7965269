package schema

import (
	"context"
	"log/slog"
	"sort"

	"github.com/leengari/dyntable/internal/domain/datatype"
	"github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/storage"
)

// Load rebuilds a table from the gateway. Cell values are not validated here;
// a stored value that no longer fits its column surfaces from Cell.Value.
func Load(ctx context.Context, gw storage.Gateway, name string, opts Options) (*Table, error) {
	tables, err := gw.Read(ctx, storage.Filter{Kind: storage.KindTable, Name: name})
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, &errors.TableNotFoundError{Name: name}
	}
	meta := tables[0]

	t := newTable(gw, meta.ID, meta.Name, meta.Description, meta.CreatedAt, opts)

	// 1. Columns, in creation order
	colRecs, err := gw.Read(ctx, storage.Filter{Kind: storage.KindColumn, TableID: t.id})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(colRecs, func(i, j int) bool { return colRecs[i].Seq < colRecs[j].Seq })

	byID := make(map[string]*column, len(colRecs))
	for _, rec := range colRecs {
		c := &column{
			id:        rec.ID,
			name:      rec.Name,
			typ:       datatype.Normalize(rec.DataType),
			seq:       rec.Seq,
			createdAt: rec.CreatedAt,
		}
		t.columns = append(t.columns, c)
		byID[c.id] = c
		if c.seq >= t.nextColSeq {
			t.nextColSeq = c.seq + 1
		}
	}

	// 2. Rows, in insertion order, every cell starting out null
	rowRecs, err := gw.Read(ctx, storage.Filter{Kind: storage.KindRow, TableID: t.id})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rowRecs, func(i, j int) bool { return rowRecs[i].Seq < rowRecs[j].Seq })

	rowsByID := make(map[string]*row, len(rowRecs))
	for _, rec := range rowRecs {
		r := &row{
			id:        rec.ID,
			seq:       rec.Seq,
			createdAt: rec.CreatedAt,
			cells:     make(map[string]*string, len(t.columns)),
		}
		for _, c := range t.columns {
			r.cells[c.id] = nil
		}
		t.rows = append(t.rows, r)
		rowsByID[r.id] = r
		if r.seq >= t.nextRowSeq {
			t.nextRowSeq = r.seq + 1
		}
	}

	// 3. Cells
	cellRecs, err := gw.Read(ctx, storage.Filter{Kind: storage.KindCell, TableID: t.id})
	if err != nil {
		return nil, err
	}

	orphans := 0
	for _, rec := range cellRecs {
		r, rowOK := rowsByID[rec.RowID]
		_, colOK := byID[rec.ColumnID]
		if !rowOK || !colOK {
			orphans++
			continue
		}
		if rec.Value != nil {
			r.cells[rec.ColumnID] = storage.StringPtr(*rec.Value)
		}
	}

	if orphans > 0 {
		t.logger.Warn("ignored cells without row or column",
			slog.String("table", t.name),
			slog.Int("count", orphans),
		)
	}

	t.logger.Info("table loaded",
		slog.String("table", t.name),
		slog.Int("columns", len(t.columns)),
		slog.Int("rows", len(t.rows)),
	)
	return t, nil
}
