// Package pathacc implements the Path Accumulator: a cross-batch
// memo of (owner, directory) -> set of file references, so successive
// contracts appending to the same directory accumulate instead of
// overwriting. Modeled as an explicit struct with its own mutex rather
// than module-level state; its lifecycle (start -> use -> end) fits a
// single long-lived instance per process, built with New. There is no
// package-level default instance.
package pathacc

import (
	"sort"
	"sync"

	"github.com/disregardfiat/honeygraph/internal/types"
)

type pathKey struct {
	owner string
	fullPath string
}

type dirEntry struct {
	localID types.Ref
	files map[string]types.Ref // fileRef keyed by cid/name for dedup
	childDirs map[string]bool // direct subdirectory full paths
}

// Accumulator is the mutex-guarded cross-batch memo.
type Accumulator struct {
	mu sync.Mutex
	dirs map[pathKey]*dirEntry
	started bool
	frozen bool
}

// New constructs an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{dirs: make(map[pathKey]*dirEntry)}
}

// StartBatch begins a new accumulation window. It only resets the
// frozen/started bookkeeping; the accumulated file sets, child
// directories and path ids persist for the life of the process, since
// clearing them would defeat cross-batch accumulation.
func (a *Accumulator) StartBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = true
	a.frozen = false
}

// EndBatch sets the accumulator's frozen flag until the next StartBatch.
// The write methods (RegisterPath, AddFileToPath, AddChildDir) do not
// consult that flag, so writes made after EndBatch still land; each
// method call is serialized by the mutex only.
func (a *Accumulator) EndBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = true
}

// RegisterPath records the stable id assigned to (owner, fullPath).
func (a *Accumulator) RegisterPath(owner, fullPath string, id types.Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entry(owner, fullPath)
	e.localID = id
}

// PathID returns the id previously registered for (owner, fullPath), if
// any.
func (a *Accumulator) PathID(owner, fullPath string) (types.Ref, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := pathKey{owner, fullPath}
	e, ok := a.dirs[k]
	if !ok || e.localID.IsZero() {
		return types.Ref{}, false
	}
	return e.localID, true
}

// AddFileToPath adds fileRef to the known set of files at (owner,
// fullPath), keyed by fileKey (typically the file's cid) so re-adding
// the same file from a later contract is a no-op rather than a
// duplicate.
func (a *Accumulator) AddFileToPath(owner, fullPath, fileKey string, fileRef types.Ref) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entry(owner, fullPath)
	if e.files == nil {
		e.files = make(map[string]types.Ref)
	}
	e.files[fileKey] = fileRef
}

// GetPathFiles returns the accumulated file refs at (owner, fullPath) in
// a stable (sorted by key) order, so itemCount computation and mutation
// emission are deterministic across runs.
func (a *Accumulator) GetPathFiles(owner, fullPath string) []types.Ref {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := pathKey{owner, fullPath}
	e, ok := a.dirs[k]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(e.files))
	for k := range e.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Ref, len(keys))
	for i, k := range keys {
		out[i] = e.files[k]
	}
	return out
}

// FileCount returns the number of distinct files accumulated at (owner,
// fullPath) without allocating a slice. The directory itemCount pass
// uses ItemCount, not this method.
func (a *Accumulator) FileCount(owner, fullPath string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.dirs[pathKey{owner, fullPath}]
	if !ok {
		return 0
	}
	return len(e.files)
}

// AddChildDir records childFullPath as a direct subdirectory of (owner,
// parentFullPath). Idempotent across batches so re-registering an
// already-known child is a no-op.
func (a *Accumulator) AddChildDir(owner, parentFullPath, childFullPath string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e := a.entry(owner, parentFullPath)
	if e.childDirs == nil {
		e.childDirs = make(map[string]bool)
	}
	e.childDirs[childFullPath] = true
}

// ChildDirCount returns the number of distinct direct subdirectories
// registered under (owner, fullPath).
func (a *Accumulator) ChildDirCount(owner, fullPath string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.dirs[pathKey{owner, fullPath}]
	if !ok {
		return 0
	}
	return len(e.childDirs)
}

// ItemCount is a directory's item count: the number of direct file
// children when it has any, else the number of direct subdirectory
// children — a folder holding only subfolders counts those instead of
// coming up empty.
func (a *Accumulator) ItemCount(owner, fullPath string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.dirs[pathKey{owner, fullPath}]
	if !ok {
		return 0
	}
	if len(e.files) > 0 {
		return len(e.files)
	}
	return len(e.childDirs)
}

func (a *Accumulator) entry(owner, fullPath string) *dirEntry {
	k := pathKey{owner, fullPath}
	e, ok := a.dirs[k]
	if !ok {
		e = &dirEntry{}
		a.dirs[k] = e
	}
	return e
}
