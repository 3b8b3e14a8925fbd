// Package worker implements the Replication Queue Worker: two
// bounded-concurrency pools (block jobs, operation jobs) draining a
// priority queue, with fork-/market-keyed serialization, retry with
// backoff, and a TTL-bounded processed-operation dedup cache.
//
// Pool lifecycle is Start/Stop/readLoop over a sync.WaitGroup, and the
// queue itself is a container/heap priority queue ordered by job
// priority rather than path cost.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names the five job shapes the ingest pipeline produces.
type Kind string

const (
	KindReplicateBlock Kind = "replicate_block"
	KindUpdateConsensus Kind = "update_consensus"
	KindCreateCheckpoint Kind = "create_checkpoint"
	KindProcessOperation Kind = "process_operation"
	KindProcessCheckpoint Kind = "process_checkpoint"
)

// blockPoolKinds run on the 4-worker block pool; everything else runs on
// the 16-worker operation pool (resource model).
var blockPoolKinds = map[Kind]bool{
	KindReplicateBlock: true,
	KindUpdateConsensus: true,
	KindCreateCheckpoint: true,
}

func (k Kind) usesBlockPool() bool { return blockPoolKinds[k] }

// Job is one unit of work. Key, when non-empty, is the serialization key
// (a fork id or dex market id) that must never run two Jobs concurrently
// ("fork-keyed and market-keyed serialization").
type Job struct {
	ID string
	Kind Kind
	Key string
	// DedupKey, when set, is checked against the processed-operation cache
	// before the job runs ; a hit skips the job as already-done
	// rather than erroring. process_operation jobs set this to the
	// operation's (blockNum, path, index) identity.
	DedupKey string
	Priority int // lower runs first
	MaxAttempts int
	Run func(ctx context.Context) error

	attempt int
	enqueuedAt int64 // monotonic sequence number, used as the heap tie-breaker
}

// NewJob constructs a Job with the default retry budget (three
// attempts per job).
func NewJob(kind Kind, key string, priority int, run func(ctx context.Context) error) Job {
	return Job{
		ID: uuid.New().String(),
		Kind: kind,
		Key: key,
		Priority: priority,
		MaxAttempts: 3,
		Run: run,
	}
}

// Outcome records a terminal job result for the completed/failed rings.
type Outcome struct {
	JobID string
	Kind Kind
	Attempts int
	Err error
	FinishedAt time.Time
}
