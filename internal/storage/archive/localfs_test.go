package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fairweather/keel/internal/core"
)

func TestLocalFS_ImplementsStore(t *testing.T) {
	var _ Store = (*LocalFS)(nil)
	var _ Store = (*S3Store)(nil)
}

func TestResultKey(t *testing.T) {
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got := ResultKey(end, "abc-123")
	want := "results/2024/abc-123.json"
	if got != want {
		t.Errorf("ResultKey = %q, want %q", got, want)
	}
}

func TestLocalFS_PutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalFS(dir)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"run_id":"abc"}`)

	if err := store.Put(ctx, "results/2024/abc.json", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "results/2024/abc.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if string(got) != string(data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLocalFS_GetMissing(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())

	_, err := store.Get(context.Background(), "results/2024/missing.json")
	if !errors.Is(err, core.ErrArchiveFailed) {
		t.Errorf("expected ErrArchiveFailed, got %v", err)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, _ := store.Exists(ctx, "nonexistent.json")
	if exists {
		t.Error("expected false for nonexistent key")
	}

	store.Put(ctx, "exists.json", []byte("{}"))
	exists, _ = store.Exists(ctx, "exists.json")
	if !exists {
		t.Error("expected true for existing key")
	}
}

func TestLocalFS_List(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	store.Put(ctx, "results/2024/a.json", []byte("a"))
	store.Put(ctx, "results/2024/b.json", []byte("b"))
	store.Put(ctx, "results/2025/c.json", []byte("c"))

	keys, err := store.List(ctx, "results/2024")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("expected 2 keys, got %d", len(keys))
	}

	keys, err = store.List(ctx, "results/1999")
	if err != nil {
		t.Fatalf("List missing prefix: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys for missing prefix, got %d", len(keys))
	}
}
