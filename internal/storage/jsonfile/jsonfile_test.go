package jsonfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	dberrors "github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/schema"
	"github.com/leengari/dyntable/internal/storage"
	"github.com/leengari/dyntable/internal/storage/jsonfile"
	"github.com/leengari/dyntable/internal/testutil"
)

func newGateway(t *testing.T, dir string) *jsonfile.Gateway {
	t.Helper()
	gw, err := jsonfile.New(dir, nil)
	testutil.RequireNoError(t, err, "open jsonfile gateway")
	return gw
}

func TestRecordsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gw := newGateway(t, dir)

	records := []storage.Record{
		{Kind: storage.KindTable, ID: "t1", Name: "people"},
		{Kind: storage.KindColumn, ID: "c1", TableID: "t1", Name: "Age", DataType: "int", Seq: 1},
		{Kind: storage.KindRow, ID: "r1", TableID: "t1", Seq: 1},
		{Kind: storage.KindCell, ID: storage.CellID("r1", "c1"), TableID: "t1", RowID: "r1", ColumnID: "c1", Value: storage.StringPtr("30")},
	}
	for _, rec := range records {
		testutil.RequireNoError(t, gw.Create(ctx, rec), "create "+string(rec.Kind))
	}

	for _, name := range []string{"meta.json", "data.json"} {
		if _, err := os.Stat(filepath.Join(dir, "t1", name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(dir, "t1", name+".tmp")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected no leftover %s.tmp", name)
		}
	}

	reopened := newGateway(t, dir)
	got, err := reopened.Read(ctx, storage.Filter{TableID: "t1"})
	testutil.RequireNoError(t, err, "read after reopen")
	if len(got) != 3 {
		t.Fatalf("Expected 3 child records, got %d", len(got))
	}

	cells, err := reopened.Read(ctx, storage.Filter{Kind: storage.KindCell, TableID: "t1"})
	testutil.RequireNoError(t, err, "read cells")
	if len(cells) != 1 || cells[0].Value == nil || *cells[0].Value != "30" {
		t.Errorf("Expected one cell with value 30, got %+v", cells)
	}

	tables, err := reopened.Read(ctx, storage.Filter{Kind: storage.KindTable, Name: "people"})
	testutil.RequireNoError(t, err, "read table by name")
	if len(tables) != 1 || tables[0].ID != "t1" {
		t.Errorf("Expected table t1, got %+v", tables)
	}
}

func TestGatewayErrors(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t, t.TempDir())

	table := storage.Record{Kind: storage.KindTable, ID: "t1", Name: "x"}
	testutil.RequireNoError(t, gw.Create(ctx, table), "create table")

	err := gw.Create(ctx, table)
	testutil.AssertErrorIs(t, err, storage.ErrAlreadyExists, "duplicate table")
	testutil.AssertErrorIs(t, err, dberrors.ErrStorage, "duplicate table is a StorageError")

	orphan := storage.Record{Kind: storage.KindRow, ID: "r1", TableID: "missing"}
	testutil.AssertErrorIs(t, gw.Create(ctx, orphan), storage.ErrNotFound, "row of missing table")

	row := storage.Record{Kind: storage.KindRow, ID: "r1", TableID: "t1"}
	testutil.AssertErrorIs(t, gw.Update(ctx, row), storage.ErrNotFound, "update missing row")
	testutil.AssertErrorIs(t, gw.Delete(ctx, row), storage.ErrNotFound, "delete missing row")

	bad := storage.Record{Kind: storage.KindTable, ID: "../escape"}
	testutil.AssertErrorIs(t, gw.Create(ctx, bad), dberrors.ErrStorage, "path-like id")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	testutil.AssertErrorIs(t, gw.Create(cancelled, row), context.Canceled, "cancelled context")
}

func TestDeleteTableRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gw := newGateway(t, dir)

	table := storage.Record{Kind: storage.KindTable, ID: "t1", Name: "x"}
	testutil.RequireNoError(t, gw.Create(ctx, table), "create table")
	testutil.RequireNoError(t, gw.Delete(ctx, table), "delete table")

	if _, err := os.Stat(filepath.Join(dir, "t1")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected table directory to be removed, got %v", err)
	}
	got, err := gw.Read(ctx, storage.Filter{Kind: storage.KindTable})
	testutil.RequireNoError(t, err, "read tables")
	if len(got) != 0 {
		t.Errorf("Expected no tables, got %+v", got)
	}
}

func TestTableRoundTripThroughFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := testutil.CreateEmployeeTable(t, newGateway(t, dir), schema.Options{})

	_, err := table.DeleteColumn(ctx, "Gender")
	testutil.RequireNoError(t, err, "delete column")
	_, err = table.UpdateCell(ctx, "Age", 1, 33)
	testutil.RequireNoError(t, err, "update cell")
	_, err = table.RenameColumn(ctx, "Bio", "Biography")
	testutil.RequireNoError(t, err, "rename column")

	reloaded, err := schema.Load(ctx, newGateway(t, dir), "Employee Records", schema.Options{})
	testutil.RequireNoError(t, err, "load from a fresh gateway")

	if reloaded.Info() != table.Info() {
		t.Errorf("Expected info %+v, got %+v", table.Info(), reloaded.Info())
	}
	if !reflect.DeepEqual(reloaded.Columns(), table.Columns()) {
		t.Errorf("Expected columns %+v, got %+v", table.Columns(), reloaded.Columns())
	}
	for i := 1; i <= table.Info().RowCount; i++ {
		want, _ := table.RowValues(i)
		got, err := reloaded.RowValues(i)
		testutil.RequireNoError(t, err, "row values")
		if !reflect.DeepEqual(want, got) {
			t.Errorf("row %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestEachWriteIsOnDiskBeforeReturning(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	gw := newGateway(t, dir)

	testutil.RequireNoError(t, gw.Create(ctx, storage.Record{Kind: storage.KindTable, ID: "t1", Name: "people"}), "create table")
	testutil.RequireNoError(t, gw.Create(ctx, storage.Record{Kind: storage.KindRow, ID: "r1", TableID: "t1", Seq: 1}), "create row")

	for i, value := range []string{"a", "b", "c"} {
		cell := storage.Record{
			Kind: storage.KindCell, ID: storage.CellID("r1", "c1"), TableID: "t1",
			RowID: "r1", ColumnID: "c1", Value: storage.StringPtr(value),
		}
		if i == 0 {
			testutil.RequireNoError(t, gw.Create(ctx, cell), "create cell")
		} else {
			testutil.RequireNoError(t, gw.Update(ctx, cell), "update cell")
		}

		// a fresh gateway has no cache and reads the files
		cells, err := newGateway(t, dir).Read(ctx, storage.Filter{Kind: storage.KindCell, TableID: "t1"})
		testutil.RequireNoError(t, err, "read cells from disk")
		if len(cells) != 1 || cells[0].Value == nil || *cells[0].Value != value {
			t.Errorf("write %d: expected cell %q on disk, got %+v", i, value, cells)
		}
	}
}
