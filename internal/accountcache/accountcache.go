// Package accountcache implements a three-tier lookup of username ->
// stable identifier that is the system's sole guarantee against
// emitting duplicate Account entities across batches. Modeled as an
// explicit struct with its own mutex, rather than hidden module-level
// state.
package accountcache

import (
	"context"

	"github.com/disregardfiat/honeygraph/internal/types"
)

// StoreLookup resolves a username to a previously-stored Account id, if
// one exists. Kept as a narrow interface here so this package has no
// import-time dependency on the store. The graph store adapter in this
// repository does not implement it, and cmd/ingest builds the Cache with
// a nil StoreLookup, so there the store-query tier is skipped.
type StoreLookup interface {
	LookupAccountID(ctx context.Context, username string) (id string, found bool, err error)
}

// Cache is the process-wide (username -> stable id) map, read-mostly
// after warm-up: reads after initial population are lock-free-safe in
// spirit, writes under lock (shared-resource policy). A sync.Map
// would work too, but a plain map+mutex keeps the hot path (read then
// maybe write) a single critical section instead of two.
type Cache struct {
	mu chan struct{} // binary semaphore; see lock/unlock
	known map[string]types.Ref
	store StoreLookup
}

// New constructs a Cache backed by store for cold lookups. store may be
// nil in tests that only exercise in-batch/process-cache behavior.
func New(store StoreLookup) *Cache {
	c := &Cache{
		mu: make(chan struct{}, 1),
		known: make(map[string]types.Ref),
		store: store,
	}
	c.mu <- struct{}{}
	return c
}

func (c *Cache) lock() { <-c.mu }
func (c *Cache) unlock() { c.mu <- struct{}{} }

// BatchMutations is the in-batch (tier 1) map passed in by the caller so
// repeated references to the same username within one transform call
// resolve without touching the process cache or the store.
type BatchMutations map[string]types.Ref

// EnsureAccount resolves username to a stable reference, trying in
// order: the in-batch map, the process cache, a store query, and
// finally minting a fresh blank-node id. The second return value,
// isExisting, tells the caller whether a duplicate create mutation must
// be suppressed.
func (c *Cache) EnsureAccount(ctx context.Context, username string, batch BatchMutations) (ref types.Ref, isExisting bool, err error) {
	if ref, ok := batch[username]; ok {
		_, existing := c.peekExisting(username)
		return ref, existing, nil
	}

	c.lock()
	if ref, ok := c.known[username]; ok {
		c.unlock()
		batch[username] = ref
		return ref, true, nil
	}
	c.unlock()

	if c.store != nil {
		id, found, lookupErr := c.store.LookupAccountID(ctx, username)
		if lookupErr != nil {
			return types.Ref{}, false, lookupErr
		}
		if found {
			ref := types.StoredRef(id)
			c.lock()
			c.known[username] = ref
			c.unlock()
			batch[username] = ref
			return ref, true, nil
		}
	}

	ref = types.LocalRef(types.SanitizeBlankLabel("account_" + username))
	c.lock()
	c.known[username] = ref
	c.unlock()
	batch[username] = ref
	return ref, false, nil
}

func (c *Cache) peekExisting(username string) (types.Ref, bool) {
	c.lock()
	defer c.unlock()
	ref, ok := c.known[username]
	return ref, ok
}

// NewBatch returns an empty in-batch map for one transform invocation.
func NewBatch() BatchMutations { return make(BatchMutations) }
