// Package keylock provides sharded per-key serialization for the worker
// pool: two operations on the same fork or the same dex market must
// never run concurrently, but unrelated keys must not contend on a
// single global lock. Uses the same binary-semaphore channel idiom as
// accountcache.Cache.lock, generalized from one key to a fixed shard
// table.
package keylock

import "hash/fnv"

const shardCount = 64

// Table is a fixed-size array of channel-based mutexes, one per shard.
// A key always hashes to the same shard, so two callers locking the same
// key always serialize; callers locking different keys usually don't
// contend, at the cost of the rare same-shard false-sharing collision.
type Table struct {
	shards [shardCount]chan struct{}
}

// New constructs a ready-to-use Table.
func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i] = make(chan struct{}, 1)
	}
	return t
}

func (t *Table) shardFor(key string) chan struct{} {
	h := fnv.New32a()
	h.Write([]byte(key))
	return t.shards[h.Sum32()%shardCount]
}

// Lock acquires the shard serializing key, blocking until available.
func (t *Table) Lock(key string) {
	t.shardFor(key) <- struct{}{}
}

// Unlock releases the shard serializing key. Must be called exactly once
// per successful Lock, typically via defer.
func (t *Table) Unlock(key string) {
	<-t.shardFor(key)
}
