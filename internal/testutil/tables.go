package testutil

import (
	"context"
	"testing"

	"github.com/leengari/dyntable/internal/domain/schema"
	"github.com/leengari/dyntable/internal/storage"
)

// EmployeeColumns are the column names of the employee fixture, in order
var EmployeeColumns = []string{"First Name", "Last Name", "Gender", "Bio", "Age", "Is Married", "Income"}

// EmployeeTypes are the type tags matching EmployeeColumns
var EmployeeTypes = []string{"char", "char", "char", "text", "int", "bool", "float"}

// EmployeeRows is sample data for the employee fixture
func EmployeeRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"First Name": "Samuel", "Last Name": "Nkopuruk", "Bio": "A Backend Developer", "Is Married": false},
		{"First Name": "Ebuka", "Last Name": "Edward", "Bio": "A Doctor", "Is Married": "true", "Age": 41},
		{"First Name": "Sunday", "Last Name": "Akpan", "Bio": "A Video Editor", "Is Married": false, "Income": 27000.00},
	}
}

// CreateEmployeeTable creates a table with the employee columns and rows
func CreateEmployeeTable(t *testing.T, gw storage.Gateway, opts schema.Options) *schema.Table {
	t.Helper()
	ctx := context.Background()

	table, err := schema.Create(ctx, gw, "Employee Records", "Contains company employee personal information", opts)
	RequireNoError(t, err, "create employee table")

	_, err = table.BulkAddColumns(ctx, EmployeeColumns, EmployeeTypes)
	RequireNoError(t, err, "add employee columns")

	_, err = table.BulkAddRows(ctx, EmployeeRows())
	RequireNoError(t, err, "add employee rows")

	return table
}
