package accountcache

import (
	"context"
	"testing"
)

type fakeStore struct {
	ids map[string]string
}

func (f *fakeStore) LookupAccountID(ctx context.Context, username string) (string, bool, error) {
	id, ok := f.ids[username]
	return id, ok, nil
}

func TestEnsureAccountPreExistingRow(t *testing.T) {
	store := &fakeStore{ids: map[string]string{"alice": "0xabc"}}
	cache := New(store)

	batch1 := NewBatch()
	ref1, existing, err := cache.EnsureAccount(context.Background(), "alice", batch1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !existing {
		t.Fatalf("expected existing=true for pre-existing store row")
	}
	if ref1.StoredID != "0xabc" {
		t.Fatalf("expected stored id 0xabc, got %+v", ref1)
	}

	// A second batch must resolve the same stable id without hitting the
	// store again.
	store.ids = nil // if this were queried again, found would now be false
	batch2 := NewBatch()
	ref2, existing2, err := cache.EnsureAccount(context.Background(), "alice", batch2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !existing2 || ref2.StoredID != "0xabc" {
		t.Fatalf("expected process-cache hit to return same stable id, got %+v existing=%v", ref2, existing2)
	}
}

func TestEnsureAccountFreshBlankNode(t *testing.T) {
	cache := New(nil)
	batch := NewBatch()
	ref, existing, err := cache.EnsureAccount(context.Background(), "bob-smith", batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existing {
		t.Fatalf("expected a freshly minted account to not be existing")
	}
	if ref.LocalID != "account_bob_smith" {
		t.Fatalf("expected sanitized blank label account_bob_smith, got %s", ref.LocalID)
	}
}

func TestEnsureAccountInBatchReuse(t *testing.T) {
	cache := New(nil)
	batch := NewBatch()
	ref1, _, _ := cache.EnsureAccount(context.Background(), "carol", batch)
	ref2, _, _ := cache.EnsureAccount(context.Background(), "carol", batch)
	if ref1 != ref2 {
		t.Fatalf("expected identical ref within one batch, got %+v vs %+v", ref1, ref2)
	}
}
