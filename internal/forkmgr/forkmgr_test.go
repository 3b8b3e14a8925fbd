package forkmgr

import (
	"context"
	"testing"

	"github.com/disregardfiat/honeygraph/internal/types"
)

// TestDivergenceAndReconciliation covers two blocks at height 50 that
// share a parent but diverge; reconciliation must pick the fork
// matching the consensus hash as canonical and orphan the other.
func TestDivergenceAndReconciliation(t *testing.T) {
	m := New(nil)

	forkA := m.DetectFork(50, "hashA", "parentP")
	forkB := m.DetectFork(50, "hashB", "parentP")
	if forkA == forkB {
		t.Fatalf("expected two distinct forks for diverging blocks at the same height")
	}

	active := m.GetActiveForks()
	if len(active) != 2 {
		t.Fatalf("expected 2 active forks, got %d", len(active))
	}

	result := m.ReconcileForks(50, "hashB")
	if result.Canonical != forkB {
		t.Fatalf("expected forkB canonical, got %s", result.Canonical)
	}
	if len(result.Orphaned) != 1 || result.Orphaned[0] != forkA {
		t.Fatalf("expected forkA orphaned, got %+v", result.Orphaned)
	}
	if m.CanonicalFork() != forkB {
		t.Fatalf("expected manager canonical to be forkB")
	}

	active = m.GetActiveForks()
	if len(active) != 0 {
		t.Fatalf("expected no forks left ACTIVE after reconciliation, got %+v", active)
	}
}

func TestDetectForkExtendsExistingTip(t *testing.T) {
	m := New(nil)
	id1 := m.DetectFork(10, "h10", "h9")
	id2 := m.DetectFork(11, "h11", "h10")
	if id1 != id2 {
		t.Fatalf("expected the same branch id when a block simply extends the tip")
	}
	active := m.GetActiveForks()
	if len(active) != 1 {
		t.Fatalf("expected the extending block to update the same branch, not fork it, got %d active", len(active))
	}
	if active[0].TipHash != "h11" {
		t.Fatalf("expected tip to advance to h11, got %s", active[0].TipHash)
	}
}

func TestPruneForksDropsOldOrphaned(t *testing.T) {
	m := New(nil)
	m.DetectFork(1, "hashA", "p")
	id2 := m.DetectFork(1, "hashB", "p")
	m.ReconcileForks(1, "hashA")
	_ = id2

	n := m.PruneForks(1000)
	if n != 1 {
		t.Fatalf("expected 1 orphaned fork pruned, got %d", n)
	}
}

func TestOrphanForksAfterRollback(t *testing.T) {
	m := New(nil)
	m.DetectFork(10, "h10", "h9")
	m.DetectFork(20, "h20", "h10")
	m.OrphanForksAfter(15)
	active := m.GetActiveForks()
	for _, f := range active {
		if f.TipBlock > 15 {
			t.Fatalf("expected forks past rollback point to be orphaned, found active %+v", f)
		}
	}
}

func TestLoadForksRebuildsCanonical(t *testing.T) {
	m := New(nil)
	loader := stubLoader{forks: []types.Fork{
		{ForkID: "f1", TipBlock: 5, TipHash: "h5", Status: types.ForkFinalized},
		{ForkID: "f2", TipBlock: 3, TipHash: "h3", Status: types.ForkOrphaned},
	}}
	if err := m.LoadForks(context.Background(), loader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.CanonicalFork() != "f1" {
		t.Fatalf("expected canonical f1 from finalized fork, got %s", m.CanonicalFork())
	}
}

type stubLoader struct{ forks []types.Fork }

func (s stubLoader) LoadForks(ctx context.Context) ([]types.Fork, error) { return s.forks, nil }
