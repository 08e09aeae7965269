// Package render prints tables as tab-aligned text
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/leengari/dyntable/internal/domain/schema"
)

const (
	nullText    = "NULL"
	corruptText = "!ERR"
)

// Table writes a header with each column's name and type, a separator and
// then every row. Null cells print as NULL and cells whose stored value no
// longer fits the column type print as !ERR.
func Table(w io.Writer, t *schema.Table) error {
	columns, rows := t.Snapshot()
	if len(columns) == 0 {
		_, err := fmt.Fprintf(w, "%s has no columns\n", t.Name())
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Header
	for i, col := range columns {
		fmt.Fprintf(tw, "%s (%s)", col.Name, col.Type)
		if i < len(columns)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Separator
	for i := range columns {
		fmt.Fprintf(tw, "---")
		if i < len(columns)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Rows
	for _, row := range rows {
		for i, cell := range row.Cells {
			fmt.Fprint(tw, cellText(cell))
			if i < len(row.Cells)-1 {
				fmt.Fprintf(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func cellText(cell schema.Cell) string {
	v, err := cell.Value()
	if err != nil {
		return corruptText
	}
	if v.Null {
		return nullText
	}
	return v.String()
}

// Info writes the table name, description and row/column counts
func Info(w io.Writer, t *schema.Table) error {
	info := t.Info()
	_, err := fmt.Fprintf(w, "Table: %s\nDescription: %s\nColumns: %d\nRows: %d\n",
		t.Name(), t.Description(), info.ColumnCount, info.RowCount)
	return err
}
