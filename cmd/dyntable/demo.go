package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	dberrors "github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/schema"
	"github.com/leengari/dyntable/internal/engine"
	"github.com/leengari/dyntable/internal/render"
)

var (
	demoColumns = []string{"First Name", "Last Name", "Gender", "Bio", "Age", "Is Married", "Income", "Hired"}
	demoTypes   = []string{"char", "char", "char", "text", "int", "bool", "float", "date"}
)

func demoRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"First Name": "Samuel", "Last Name": "Nkopuruk", "Bio": "A Backend Developer", "Is Married": false, "Hired": "2021-03-01"},
		{"First Name": "Ebuka", "Last Name": "Edward", "Bio": "A Doctor", "Is Married": "true", "Age": 41},
		{"First Name": "Sunday", "Last Name": "Akpan", "Bio": "A Video Editor", "Is Married": false, "Income": 27000.00},
	}
}

// runDemo opens (or creates) the demo table, exercises the table API and prints it
func runDemo(ctx context.Context, eng *engine.Engine, opts options, w io.Writer) error {
	table, err := openOrCreate(ctx, eng, opts.table)
	if err != nil {
		return err
	}

	slog.Info("=== Adding rows ===")
	if _, err := table.BulkAddRows(ctx, demoRows()); err != nil {
		return err
	}

	slog.Info("=== Rejected mutations ===")
	_, err = table.AddRow(ctx, map[string]interface{}{"Age": "thirty"})
	logRejected("add row with bad age", err)
	_, err = table.AddColumn(ctx, "First Name", "char")
	logRejected("add duplicate column", err)
	_, err = table.AddColumn(ctx, "Photo", "file")
	logRejected("add column with unsupported type", err)

	slog.Info("=== Updating ===")
	if _, err := table.UpdateCell(ctx, "Age", 1, 29); err != nil {
		return err
	}
	if _, err := table.AddColumn(ctx, "Nationality", "char"); err != nil && !errors.Is(err, dberrors.ErrDuplicateColumn) {
		return err
	}
	if _, err := table.DeleteLastRow(ctx); err != nil {
		return err
	}

	if err := render.Info(w, table); err != nil {
		return err
	}
	if err := render.Table(w, table); err != nil {
		return err
	}

	names, err := eng.ListTables(ctx)
	if err != nil {
		return err
	}
	slog.Info("Stored tables", "tables", names)

	if opts.drop {
		slog.Info("=== Dropping ===")
		return eng.DropTable(ctx, opts.table)
	}
	return nil
}

func openOrCreate(ctx context.Context, eng *engine.Engine, name string) (*schema.Table, error) {
	table, err := eng.Table(ctx, name)
	if err == nil {
		slog.Info("Opened existing table", "table", name, "rows", table.Info().RowCount)
		return table, nil
	}
	if !errors.Is(err, dberrors.ErrTableNotFound) {
		return nil, err
	}

	table, err = eng.CreateTable(ctx, name, "Contains company employee personal information")
	if err != nil {
		return nil, err
	}
	if _, err := table.BulkAddColumns(ctx, demoColumns, demoTypes); err != nil {
		return nil, err
	}
	return table, nil
}

func logRejected(what string, err error) {
	if err == nil {
		slog.Warn("mutation unexpectedly accepted", "op", what)
		return
	}
	slog.Info("mutation rejected", "op", what, "error", err)
}
