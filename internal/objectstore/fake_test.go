package objectstore

import (
	"context"
	"testing"
)

func TestFake_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	f := NewFake(func() int64 { return 1000 })

	if err := f.Put(ctx, "a/b", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := f.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want hello", got)
	}

	if err := f.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.Get(ctx, "a/b"); err == nil {
		t.Fatal("expected error getting deleted key")
	}
}

func TestFake_List(t *testing.T) {
	ctx := context.Background()
	f := NewFake(func() int64 { return 1000 })

	_ = f.Put(ctx, "gen1/snapshot", []byte("x"))
	_ = f.Put(ctx, "gen1/wal/0", []byte("y"))
	_ = f.Put(ctx, "gen2/snapshot", []byte("z"))

	items, err := f.List(ctx, "gen1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List returned %d items, want 2", len(items))
	}
	if items[0].Key != "gen1/snapshot" || items[1].Key != "gen1/wal/0" {
		t.Errorf("List not sorted or wrong keys: %+v", items)
	}
}

func TestFake_GetMissingKeyFails(t *testing.T) {
	f := NewFake(func() int64 { return 0 })
	if _, err := f.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
