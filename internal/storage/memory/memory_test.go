package memory

import (
	"context"
	"errors"
	"testing"

	dberrors "github.com/leengari/dyntable/internal/domain/errors"
	"github.com/leengari/dyntable/internal/storage"
)

func TestCreateReadUpdateDelete(t *testing.T) {
	ctx := context.Background()
	g := New()

	rec := storage.Record{Kind: storage.KindColumn, ID: "c1", TableID: "t1", Name: "Age", DataType: "int", Seq: 1}
	if err := g.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := g.Create(ctx, rec)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
	if !errors.Is(err, dberrors.ErrStorage) {
		t.Errorf("Expected a StorageError, got %T", err)
	}

	rec.Name = "Years"
	if err := g.Update(ctx, rec); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := g.Read(ctx, storage.Filter{Kind: storage.KindColumn, TableID: "t1"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Years" {
		t.Errorf("Expected updated record, got %+v", got)
	}

	if err := g.Delete(ctx, rec); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := g.Delete(ctx, rec); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if err := g.Update(ctx, rec); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update of missing record, got %v", err)
	}
}

func TestReadOrdersBySeq(t *testing.T) {
	ctx := context.Background()
	g := New()

	for _, r := range []storage.Record{
		{Kind: storage.KindRow, ID: "r3", TableID: "t", Seq: 3},
		{Kind: storage.KindRow, ID: "r1", TableID: "t", Seq: 1},
		{Kind: storage.KindRow, ID: "r2", TableID: "t", Seq: 2},
		{Kind: storage.KindRow, ID: "other", TableID: "u", Seq: 0},
	} {
		g.Put(r)
	}

	got, err := g.Read(ctx, storage.Filter{Kind: storage.KindRow, TableID: "t"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(got))
	}
	for i, want := range []string{"r1", "r2", "r3"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestStoredValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	g := New()

	v := "42"
	rec := storage.Record{Kind: storage.KindCell, ID: "x", TableID: "t", Value: &v}
	if err := g.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	v = "changed"

	got, _ := g.Read(ctx, storage.Filter{ID: "x"})
	if *got[0].Value != "42" {
		t.Errorf("Expected stored value to be detached, got %q", *got[0].Value)
	}
	*got[0].Value = "mutated"

	again, _ := g.Read(ctx, storage.Filter{ID: "x"})
	if *again[0].Value != "42" {
		t.Errorf("Expected read results to be detached, got %q", *again[0].Value)
	}
}

func TestFaultAndCancellation(t *testing.T) {
	g := New()
	boom := errors.New("boom")
	g.SetFault(func(op string, rec storage.Record) error {
		if op == storage.OpCreate && rec.Kind == storage.KindRow {
			return boom
		}
		return nil
	})

	err := g.Create(context.Background(), storage.Record{Kind: storage.KindRow, ID: "r"})
	var storageErr *dberrors.StorageError
	if !errors.As(err, &storageErr) || !errors.Is(err, boom) {
		t.Fatalf("Expected StorageError wrapping boom, got %v", err)
	}
	if storageErr.Op != storage.OpCreate || storageErr.ID != "r" {
		t.Errorf("Unexpected error fields %+v", storageErr)
	}
	if g.Count(storage.KindRow) != 0 {
		t.Error("Expected faulted create to write nothing")
	}

	g.SetFault(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Create(ctx, storage.Record{Kind: storage.KindRow, ID: "r"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
