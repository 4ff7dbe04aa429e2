package kv

import (
	"context"
	"testing"
)

func TestMemoryKV(t *testing.T) {
	store := NewMemoryKV()
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found=%v err=%v, want absent without error", found, err)
	}

	if err := store.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	val, found, err := store.Get(ctx, "k")
	if err != nil || !found || string(val) != "v1" {
		t.Fatalf("Get(k) = %q found=%v err=%v", val, found, err)
	}

	// Returned slice is a copy.
	val[0] = 'x'
	val2, _, _ := store.Get(ctx, "k")
	if string(val2) != "v1" {
		t.Errorf("stored value mutated through returned slice: %q", val2)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("key should be gone after Delete")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}
