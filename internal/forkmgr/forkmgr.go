// Package forkmgr tracks observed forks, their tips, canonical
// selection, and orphaning. Same mutex-guarded map-of-branches shape
// and "extends current tip vs diverges" detection as a typical chain
// fork manager, but canonical selection is by consensusHash rather
// than by longest chain, since forks here are observed from a replica
// stream, not authored — consensus itself is out of scope.
package forkmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/types"
)

// StoreLoader rebuilds fork state from the graph store at boot, so
// fork tracking survives a process restart.
type StoreLoader interface {
	LoadForks(ctx context.Context) ([]types.Fork, error)
}

// Manager is the mutex-guarded {forkId -> Fork} map with a designated
// canonical fork.
type Manager struct {
	mu sync.Mutex
	forks map[string]types.Fork
	canonical string
	log *logrus.Logger
}

// New constructs an empty Manager.
func New(logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{forks: make(map[string]types.Fork), log: logger}
}

// LoadForks rebuilds in-memory fork state from the store before
// accepting new operations (boot-time reload).
func (m *Manager) LoadForks(ctx context.Context, store StoreLoader) error {
	forks, err := store.LoadForks(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range forks {
		m.forks[f.ForkID] = f
		if f.Status == types.ForkFinalized {
			m.canonical = f.ForkID
		}
	}
	if m.canonical == "" {
		// No finalized fork recorded: fall back to the highest tip among
		// active forks so reads have a canonical target immediately.
		if best, ok := m.highestActiveLocked(); ok {
			m.canonical = best
		}
	}
	m.log.WithField("forks", len(forks)).Info("forkmgr: reloaded forks from store")
	return nil
}

func (m *Manager) highestActiveLocked() (string, bool) {
	var best types.Fork
	found := false
	for _, f := range m.forks {
		if f.Status != types.ForkActive {
			continue
		}
		if !found || f.TipBlock > best.TipBlock {
			best = f
			found = true
		}
	}
	return best.ForkID, found
}

// DetectFork returns the fork whose tip matches parentHash, or creates
// a new one rooted there. forkId is deterministic given
// (blockNum, blockHash) so repeated detection for the same block is
// idempotent.
func (m *Manager) DetectFork(blockNum uint64, blockHash, parentHash string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.forks {
		if f.TipHash == parentHash {
			f.TipBlock = blockNum
			f.TipHash = blockHash
			m.forks[id] = f
			if m.canonical == "" {
				m.canonical = id
			}
			return id
		}
	}

	id := forkID(blockNum, blockHash)
	m.forks[id] = types.Fork{
		ForkID: id,
		TipBlock: blockNum,
		TipHash: blockHash,
		Status: types.ForkActive,
		ParentFork: findParentFork(m.forks, parentHash),
	}
	if m.canonical == "" {
		m.canonical = id
	}
	m.log.WithFields(logrus.Fields{"forkId": id, "blockNum": blockNum}).Info("forkmgr: new fork detected")
	return id
}

func findParentFork(forks map[string]types.Fork, parentHash string) string {
	for id, f := range forks {
		if f.TipHash == parentHash {
			return id
		}
	}
	return ""
}

func forkID(blockNum uint64, blockHash string) string {
	return fmt.Sprintf("%d:%s", blockNum, blockHash)
}

// UpdateForkStatus sets a fork's status and tip block.
func (m *Manager) UpdateForkStatus(forkID string, status types.ForkStatus, tipBlock uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forks[forkID]
	if !ok {
		return
	}
	f.Status = status
	f.TipBlock = tipBlock
	m.forks[forkID] = f
}

// ReconciliationResult is the outcome of ReconcileForks.
type ReconciliationResult struct {
	Canonical string
	Orphaned []string
}

// ReconcileForks chooses the fork whose tip hash matches consensusHash
// at blockNum and orphans the others.
func (m *Manager) ReconcileForks(blockNum uint64, consensusHash string) ReconciliationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result ReconciliationResult
	for id, f := range m.forks {
		if f.TipBlock != blockNum {
			continue
		}
		if f.TipHash == consensusHash {
			f.Status = types.ForkFinalized
			result.Canonical = id
		} else {
			f.Status = types.ForkOrphaned
			result.Orphaned = append(result.Orphaned, id)
		}
		m.forks[id] = f
	}
	sort.Strings(result.Orphaned)
	if result.Canonical != "" {
		m.canonical = result.Canonical
	}
	return result
}

// PruneForks drops orphaned forks whose tip is before beforeBlock and
// returns how many were removed. There is no default cutoff; the caller
// supplies beforeBlock.
func (m *Manager) PruneForks(beforeBlock uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, f := range m.forks {
		if f.Status == types.ForkOrphaned && f.TipBlock < beforeBlock {
			delete(m.forks, id)
			n++
		}
	}
	return n
}

// OrphanForksAfter marks every fork with a tip past blockNum as
// orphaned — used on snapshot rollback.
func (m *Manager) OrphanForksAfter(blockNum uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.forks {
		if f.TipBlock > blockNum {
			f.Status = types.ForkOrphaned
			m.forks[id] = f
		}
	}
}

// GetActiveForks returns all forks currently marked ACTIVE.
func (m *Manager) GetActiveForks() []types.Fork {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Fork
	for _, f := range m.forks {
		if f.Status == types.ForkActive {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ForkID < out[j].ForkID })
	return out
}

// SetCanonicalFork forces the canonical fork id.
func (m *Manager) SetCanonicalFork(forkID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canonical = forkID
}

// CanonicalFork returns the currently canonical fork id. Queries that
// don't specify a fork use this one.
func (m *Manager) CanonicalFork() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canonical
}
