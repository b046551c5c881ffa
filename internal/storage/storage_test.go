package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/louisbranch/fieldschool/internal/storage"
	"github.com/louisbranch/fieldschool/internal/storage/memory"
)

func TestKeyValueRoundTrip(t *testing.T) {
	backing := memory.New()
	kv := storage.KeyValue(backing)
	ctx := context.Background()

	if _, ok, err := kv.Get(ctx, "profile:user:u1"); err != nil || ok {
		t.Fatalf("get before set = (%v, %v), want miss", ok, err)
	}
	if err := kv.Set(ctx, "profile:user:u1", []byte(`{"score":40}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "profile:user:u1", []byte(`{"score":55}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := kv.Get(ctx, "profile:user:u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || string(value) != `{"score":55}` {
		t.Fatalf("value = %s (found %v), want latest write", value, ok)
	}
	if backing.Len() != 1 {
		t.Fatalf("entries = %d, want 1", backing.Len())
	}
}

func TestKeyValueRequiresStore(t *testing.T) {
	var kv *storage.KeyValueStore
	if err := kv.Set(context.Background(), "k", []byte("v")); err == nil {
		t.Fatal("expected error for unconfigured store")
	}
}

func TestValidateEntry(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if _, err := storage.ValidateEntry(storage.CacheEntry{CacheKey: "  "}, now); err == nil {
		t.Fatal("expected missing key error")
	}
	entry, err := storage.ValidateEntry(storage.CacheEntry{CacheKey: " quests:lang:en "}, now)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if entry.CacheKey != "quests:lang:en" {
		t.Fatalf("key = %q, want trimmed key", entry.CacheKey)
	}
	if entry.Payload == nil {
		t.Fatal("expected empty payload to be normalized")
	}
	if !entry.UpdatedAt.Equal(now) {
		t.Fatalf("updated at = %v, want %v", entry.UpdatedAt, now)
	}
}
