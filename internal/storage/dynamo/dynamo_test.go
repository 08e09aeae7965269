package dynamo

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	dberrors "github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/domain/schema"
	"github.com/leengari/dyntable/internal/storage"
	"github.com/leengari/dyntable/internal/testutil"
)

// fakeClient is an in-memory stand-in for DynamoDB that understands the
// condition and key expressions the gateway sends.
type fakeClient struct {
	mu      sync.Mutex
	items   map[string]map[string]map[string]types.AttributeValue // pk → sk → item
	queries int
	failPut error
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]map[string]types.AttributeValue)}
}

func attrS(av map[string]types.AttributeValue, name string) string {
	if s, ok := av[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeClient) exists(pk, sk string) bool {
	_, ok := f.items[pk][sk]
	return ok
}

func checkCondition(cond *string, exists bool) error {
	if cond == nil {
		return nil
	}
	switch *cond {
	case "attribute_not_exists(pk)":
		if exists {
			return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	case "attribute_exists(pk)":
		if !exists {
			return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	return nil
}

func (f *fakeClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[attrS(in.Key, "pk")][attrS(in.Key, "sk")]}, nil
}

func (f *fakeClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPut != nil {
		return nil, f.failPut
	}
	pk, sk := attrS(in.Item, "pk"), attrS(in.Item, "sk")
	if err := checkCondition(in.ConditionExpression, f.exists(pk, sk)); err != nil {
		return nil, err
	}
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	f.items[pk][sk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk, sk := attrS(in.Key, "pk"), attrS(in.Key, "sk")
	if err := checkCondition(in.ConditionExpression, f.exists(pk, sk)); err != nil {
		return nil, err
	}
	delete(f.items[pk], sk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++

	pk := attrS(in.ExpressionAttributeValues, ":pk")
	prefix := attrS(in.ExpressionAttributeValues, ":prefix")

	var sks []string
	for sk := range f.items[pk] {
		if strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)

	start := 0
	if in.ExclusiveStartKey != nil {
		after := attrS(in.ExclusiveStartKey, "sk")
		start = sort.SearchStrings(sks, after)
		if start < len(sks) && sks[start] == after {
			start++
		}
	}

	end := len(sks)
	if in.Limit != nil && start+int(*in.Limit) < end {
		end = start + int(*in.Limit)
	}

	out := &dynamodb.QueryOutput{}
	for _, sk := range sks[start:end] {
		out.Items = append(out.Items, f.items[pk][sk])
	}
	if end < len(sks) {
		out.LastEvaluatedKey = keyAttrs(pk, sks[end-1])
	}
	return out, nil
}

func TestConfigDefaults(t *testing.T) {
	g := New(newFakeClient(), Config{PageSize: -3}, nil)
	if g.config.Table != "dyntable" {
		t.Errorf("Expected default table name, got %q", g.config.Table)
	}
	if g.config.PageSize != 0 {
		t.Errorf("Expected negative page size to be cleared, got %d", g.config.PageSize)
	}
	if DefaultConfig().Table != "dyntable" {
		t.Errorf("Unexpected DefaultConfig %+v", DefaultConfig())
	}
}

func TestKeyLayout(t *testing.T) {
	tests := []struct {
		kind    storage.Kind
		id      string
		tableID string
		pk, sk  string
	}{
		{storage.KindTable, "t1", "", "TABLE", "t1"},
		{storage.KindColumn, "c1", "t1", "table#t1", "column#c1"},
		{storage.KindRow, "r1", "t1", "table#t1", "row#r1"},
		{storage.KindCell, "r1:c1", "t1", "table#t1", "cell#r1:c1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			pk, sk := key(tt.kind, tt.id, tt.tableID)
			if pk != tt.pk || sk != tt.sk {
				t.Errorf("Expected (%s, %s), got (%s, %s)", tt.pk, tt.sk, pk, sk)
			}
		})
	}
}

func TestCreateUpdateDeleteConditions(t *testing.T) {
	ctx := context.Background()
	g := New(newFakeClient(), DefaultConfig(), nil)

	rec := storage.Record{Kind: storage.KindCell, ID: "r1:c1", TableID: "t1", RowID: "r1", ColumnID: "c1"}
	testutil.RequireNoError(t, g.Create(ctx, rec), "create null cell")

	err := g.Create(ctx, rec)
	testutil.AssertErrorIs(t, err, storage.ErrAlreadyExists, "second create")
	testutil.AssertErrorIs(t, err, dberrors.ErrStorage, "second create is a StorageError")

	rec.Value = storage.StringPtr("")
	testutil.RequireNoError(t, g.Update(ctx, rec), "update to empty string")

	got, err := g.Read(ctx, storage.Filter{Kind: storage.KindCell, TableID: "t1"})
	testutil.RequireNoError(t, err, "read cells")
	if len(got) != 1 || got[0].Value == nil || *got[0].Value != "" {
		t.Errorf("Expected a non-null empty cell, got %+v", got)
	}

	testutil.RequireNoError(t, g.Delete(ctx, rec), "delete")
	testutil.AssertErrorIs(t, g.Delete(ctx, rec), storage.ErrNotFound, "second delete")
	testutil.AssertErrorIs(t, g.Update(ctx, rec), storage.ErrNotFound, "update after delete")
}

func TestClientErrorsAreWrapped(t *testing.T) {
	client := newFakeClient()
	client.failPut = errors.New("throttled")
	g := New(client, DefaultConfig(), nil)

	err := g.Create(context.Background(), storage.Record{Kind: storage.KindTable, ID: "t1"})
	var storageErr *dberrors.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if storageErr.Op != storage.OpCreate || storageErr.Kind != string(storage.KindTable) {
		t.Errorf("Unexpected error fields %+v", storageErr)
	}
	if errors.Is(err, storage.ErrAlreadyExists) {
		t.Error("A client failure must not look like a condition failure")
	}
}

func TestReadPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	g := New(client, Config{Table: "t", PageSize: 2}, nil)

	testutil.RequireNoError(t, g.Create(ctx, storage.Record{Kind: storage.KindTable, ID: "t1", Name: "a"}), "create a")
	testutil.RequireNoError(t, g.Create(ctx, storage.Record{Kind: storage.KindTable, ID: "t2", Name: "b"}), "create b")
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5"} {
		testutil.RequireNoError(t, g.Create(ctx, storage.Record{Kind: storage.KindRow, ID: id, TableID: "t1"}), "create row")
	}
	testutil.RequireNoError(t, g.Create(ctx, storage.Record{Kind: storage.KindColumn, ID: "c1", TableID: "t1"}), "create column")

	client.queries = 0
	rows, err := g.Read(ctx, storage.Filter{Kind: storage.KindRow, TableID: "t1"})
	testutil.RequireNoError(t, err, "read rows")
	testutil.AssertRowCount(t, len(rows), 5, "rows across pages")
	if client.queries < 3 {
		t.Errorf("Expected at least 3 query pages, got %d", client.queries)
	}

	byName, err := g.Read(ctx, storage.Filter{Kind: storage.KindTable, Name: "b"})
	testutil.RequireNoError(t, err, "read by name")
	if len(byName) != 1 || byName[0].ID != "t2" {
		t.Errorf("Expected table t2, got %+v", byName)
	}

	byID, err := g.Read(ctx, storage.Filter{Kind: storage.KindTable, ID: "t1"})
	testutil.RequireNoError(t, err, "read by id")
	if len(byID) != 1 || byID[0].Name != "a" {
		t.Errorf("Expected table a, got %+v", byID)
	}

	missing, err := g.Read(ctx, storage.Filter{Kind: storage.KindTable, ID: "nope"})
	testutil.RequireNoError(t, err, "read missing id")
	if len(missing) != 0 {
		t.Errorf("Expected nothing, got %+v", missing)
	}

	columns, err := g.Read(ctx, storage.Filter{Kind: storage.KindColumn})
	testutil.RequireNoError(t, err, "read columns of every table")
	if len(columns) != 1 || columns[0].ID != "c1" {
		t.Errorf("Expected column c1, got %+v", columns)
	}
}

func TestTableRoundTripThroughDynamo(t *testing.T) {
	ctx := context.Background()
	g := New(newFakeClient(), Config{PageSize: 5}, nil)

	table := testutil.CreateEmployeeTable(t, g, schema.Options{})
	_, err := table.DeleteRow(ctx, 1)
	testutil.RequireNoError(t, err, "delete row")

	reloaded, err := schema.Load(ctx, g, "Employee Records", schema.Options{})
	testutil.RequireNoError(t, err, "load")

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

	testutil.RequireNoError(t, reloaded.Drop(ctx), "drop")
	_, err = schema.Load(ctx, g, "Employee Records", schema.Options{})
	testutil.AssertErrorIs(t, err, dberrors.ErrTableNotFound, "load after drop")
}
