package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

type fakeCommander struct {
	snapshots map[string]uint64
	n int
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{snapshots: make(map[string]uint64)}
}

func (f *fakeCommander) Snapshot(ctx context.Context, blockNum uint64, tag string) (string, error) {
	f.n++
	handle := tag
	f.snapshots[handle] = blockNum
	return handle, nil
}

func (f *fakeCommander) Rollback(ctx context.Context, handle string) error {
	if _, ok := f.snapshots[handle]; !ok {
		return errors.New("no such handle")
	}
	return nil
}

func (f *fakeCommander) Clone(ctx context.Context, handle, name string) (string, error) {
	if _, ok := f.snapshots[handle]; !ok {
		return "", errors.New("no such handle")
	}
	return name, nil
}

type fakeForks struct {
	orphanedAfter uint64
	called bool
}

func (f *fakeForks) OrphanForksAfter(blockNum uint64) {
	f.orphanedAfter = blockNum
	f.called = true
}

func TestCreateCheckpointEvictsOldest(t *testing.T) {
	ctrl := New(2, newFakeCommander(), nil, nil)
	ctx := context.Background()
	if _, err := ctrl.CreateCheckpoint(ctx, 1, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.CreateCheckpoint(ctx, 2, "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ctrl.CreateCheckpoint(ctx, 3, "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := ctrl.ListCheckpoints()
	if len(list) != 2 {
		t.Fatalf("expected cap-2 eviction to leave 2 checkpoints, got %d", len(list))
	}
	if list[0].BlockNum != 2 {
		t.Fatalf("expected oldest (block 1) evicted, got %+v", list)
	}
}

func TestDegradesToNoOpWithoutCommander(t *testing.T) {
	ctrl := New(100, nil, nil, nil)
	_, err := ctrl.CreateCheckpoint(context.Background(), 1, "x")
	if !errors.Is(err, utils.ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable, got %v", err)
	}
}

func TestRollbackOrphansForks(t *testing.T) {
	forks := &fakeForks{}
	ctrl := New(100, newFakeCommander(), forks, nil)
	ctx := context.Background()
	ctrl.CreateCheckpoint(ctx, 10, "a")
	ctrl.CreateCheckpoint(ctx, 20, "b")
	ctrl.CreateCheckpoint(ctx, 30, "c")

	if err := ctrl.RollbackToCheckpoint(ctx, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !forks.called || forks.orphanedAfter != 20 {
		t.Fatalf("expected fork orphaning at 20, got %+v", forks)
	}
	list := ctrl.ListCheckpoints()
	if len(list) != 2 {
		t.Fatalf("expected checkpoints after 20 discarded, got %+v", list)
	}
}
