package staging

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.ObjectStorage) {
	t.Helper()
	objects, err := storage.NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return NewStore(objects), objects
}

func records(n int) []domain.ProductRecord {
	out := make([]domain.ProductRecord, n)
	for i := range out {
		out[i] = domain.ProductRecord{ID: string(rune('A' + i)), Name: "Tire"}
	}
	out[0].Notes[2] = "Winter"
	out[0].Params = domain.ParamList{{ID: "9", Value: "205"}}
	return out
}

func TestStoreRoundTripFromObjectStorage(t *testing.T) {
	ctx := context.Background()
	store, objects := newTestStore(t)

	if err := store.Save(ctx, "run1", records(5)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := objects.Exists(ctx, Key("run1")); !ok {
		t.Fatalf("object %s not written", Key("run1"))
	}

	// A fresh store has no cache and must read the blob back.
	fresh := NewStore(objects)
	got, err := fresh.Load(ctx, "run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 5 || got[0].Note(3) != "Winter" || len(got[0].Params) != 1 || got[0].Params[0].Value != "205" {
		t.Errorf("Load() = %+v", got)
	}
}

func TestStoreBatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	if err := store.Save(ctx, "run1", records(5)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	testCases := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{name: "first batch", offset: 0, limit: 2, want: []string{"A", "B"}},
		{name: "last partial batch", offset: 4, limit: 2, want: []string{"E"}},
		{name: "past the end", offset: 5, limit: 2, want: nil},
		{name: "whole dataset", offset: 0, limit: 1000, want: []string{"A", "B", "C", "D", "E"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			batch, err := store.Batch(ctx, "run1", tc.offset, tc.limit)
			if err != nil {
				t.Fatalf("Batch: %v", err)
			}
			if len(batch) != len(tc.want) {
				t.Fatalf("Batch() len = %d, want %d", len(batch), len(tc.want))
			}
			for i, id := range tc.want {
				if batch[i].ID != id {
					t.Errorf("Batch()[%d].ID = %q, want %q", i, batch[i].ID, id)
				}
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	if err := store.Save(ctx, "run1", records(1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "run1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(ctx, "run1"); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Load after delete error = %v, want ErrDatasetNotFound", err)
	}
	if err := store.Delete(ctx, "run1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
