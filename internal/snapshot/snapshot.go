// Package snapshot implements the Snapshot Controller: an optional
// facility for creating, rolling back, and cloning block-tagged
// snapshots of the graph dataset — create, persist a handle, release
// on rollback. If the underlying facility is unavailable, every
// method degrades to a no-op and logs a warning rather than failing
// the caller (ErrSnapshotUnavailable).
package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

// Commander is the external storage tool invoked to actually snapshot,
// roll back, or clone a dataset. Isolated behind an interface so it
// can be stubbed on platforms without that facility.
type Commander interface {
	Snapshot(ctx context.Context, blockNum uint64, tag string) (handle string, err error)
	Rollback(ctx context.Context, handle string) error
	Clone(ctx context.Context, handle, name string) (newHandle string, err error)
}

// ForkOrphaner is the subset of the Fork Manager the controller calls
// on rollback ("Fork Manager is asked to orphan everything
// after blockNum").
type ForkOrphaner interface {
	OrphanForksAfter(blockNum uint64)
}

// Checkpoint is one tracked snapshot.
type Checkpoint struct {
	BlockNum uint64
	Tag string
	Handle string
	StateHash string
}

// Controller is the in-memory checkpoint map plus its configured cap.
type Controller struct {
	mu sync.Mutex
	cap int
	order []uint64 // block numbers in insertion order, oldest first
	byNum map[uint64]Checkpoint

	cmd Commander // nil => facility unavailable, degrade to no-op
	forks ForkOrphaner
	log *zap.SugaredLogger

	autoStop chan struct{}
	blockNum func() uint64 // current block height, for auto-snapshot ticks
}

// New constructs a Controller with the given eviction cap (default
// 100 if cap <= 0). cmd may be nil to model "facility unavailable."
func New(cap int, cmd Commander, forks ForkOrphaner, logger *zap.Logger) *Controller {
	if cap <= 0 {
		cap = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cap: cap,
		byNum: make(map[uint64]Checkpoint),
		cmd: cmd,
		forks: forks,
		log: logger.Sugar(),
	}
}

// CreateCheckpoint snapshots the dataset tagged to blockNum. Degrades to
// a no-op (logged at warning) if the facility is unavailable.
func (c *Controller) CreateCheckpoint(ctx context.Context, blockNum uint64, tag string) (Checkpoint, error) {
	if c.cmd == nil {
		c.log.Warnw("snapshot facility unavailable, degrading to no-op", "blockNum", blockNum)
		return Checkpoint{}, utils.ErrSnapshotUnavailable
	}
	handle, err := c.cmd.Snapshot(ctx, blockNum, tag)
	if err != nil {
		return Checkpoint{}, utils.Wrap(err, "snapshot: create checkpoint")
	}
	cp := Checkpoint{BlockNum: blockNum, Tag: tag, Handle: handle, StateHash: uuid.New().String()}

	c.mu.Lock()
	c.byNum[blockNum] = cp
	c.order = append(c.order, blockNum)
	c.evictLocked()
	c.mu.Unlock()

	return cp, nil
}

func (c *Controller) evictLocked() {
	for len(c.order) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.byNum, oldest)
	}
}

// RollbackToCheckpoint discards all tracked snapshots after blockNum and
// asks the Fork Manager to orphan everything after it too.
func (c *Controller) RollbackToCheckpoint(ctx context.Context, blockNum uint64) error {
	c.mu.Lock()
	cp, ok := c.byNum[blockNum]
	c.mu.Unlock()
	if !ok {
		return utils.ErrNotFound
	}

	if c.cmd != nil {
		if err := c.cmd.Rollback(ctx, cp.Handle); err != nil {
			return utils.Wrap(err, "snapshot: rollback")
		}
	} else {
		c.log.Warnw("snapshot facility unavailable, rollback is a no-op", "blockNum", blockNum)
	}

	c.mu.Lock()
	kept := c.order[:0:0]
	for _, n := range c.order {
		if n > blockNum {
			delete(c.byNum, n)
			continue
		}
		kept = append(kept, n)
	}
	c.order = kept
	c.mu.Unlock()

	if c.forks != nil {
		c.forks.OrphanForksAfter(blockNum)
	}
	return nil
}

// CloneCheckpoint clones the snapshot at blockNum under name.
func (c *Controller) CloneCheckpoint(ctx context.Context, blockNum uint64, name string) (string, error) {
	if c.cmd == nil {
		c.log.Warnw("snapshot facility unavailable, clone is a no-op", "blockNum", blockNum)
		return "", utils.ErrSnapshotUnavailable
	}
	c.mu.Lock()
	cp, ok := c.byNum[blockNum]
	c.mu.Unlock()
	if !ok {
		return "", utils.ErrNotFound
	}
	newHandle, err := c.cmd.Clone(ctx, cp.Handle, name)
	if err != nil {
		return "", utils.Wrap(err, "snapshot: clone")
	}
	return newHandle, nil
}

// ListCheckpoints returns tracked checkpoints ordered by block number.
func (c *Controller) ListCheckpoints() []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Checkpoint, 0, len(c.byNum))
	for _, cp := range c.byNum {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockNum < out[j].BlockNum })
	return out
}

// GetCheckpointByHash finds a tracked checkpoint by its tag.
func (c *Controller) GetCheckpointByHash(tag string) (Checkpoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cp := range c.byNum {
		if cp.Tag == tag {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// DiffCheckpoints compares two tracked checkpoints' state hashes and
// reports only whether they are identical; it is not a graph diff and
// lists no added, removed or changed entities. CreateCheckpoint sets each
// StateHash to a fresh random UUID, so Identical is true only when a and
// b name the same checkpoint.
func (c *Controller) DiffCheckpoints(a, b uint64) (Diff, error) {
	c.mu.Lock()
	cpA, okA := c.byNum[a]
	cpB, okB := c.byNum[b]
	c.mu.Unlock()
	if !okA || !okB {
		return Diff{}, utils.ErrNotFound
	}
	return Diff{
		BlockA: a,
		BlockB: b,
		Identical: cpA.StateHash == cpB.StateHash,
	}, nil
}

// Diff is the result of DiffCheckpoints.
type Diff struct {
	BlockA uint64
	BlockB uint64
	Identical bool
}

// EnableAutoSnapshots starts a background ticker that creates a
// checkpoint each time the wall-clock interval every elapses, reading the
// current height from currentBlock. Calling it again replaces the
// previous ticker. Stop with DisableAutoSnapshots.
func (c *Controller) EnableAutoSnapshots(ctx context.Context, every time.Duration, currentBlock func() uint64) {
	c.DisableAutoSnapshots()
	stop := make(chan struct{})
	c.mu.Lock()
	c.autoStop = stop
	c.blockNum = currentBlock
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if _, err := c.CreateCheckpoint(ctx, currentBlock(), "auto"); err != nil {
					c.log.Warnw("auto snapshot failed", "error", err)
				}
			}
		}
	}()
}

// DisableAutoSnapshots stops a previously started ticker, if any.
func (c *Controller) DisableAutoSnapshots() {
	c.mu.Lock()
	stop := c.autoStop
	c.autoStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
