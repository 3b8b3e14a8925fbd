// Package registry implements the Network Registry: a small,
// runtime-mutable document mapping each token/protocol prefix this
// instance tracks to its display name, description, token list, known
// peer endpoints, and schema path. Persisted as JSON and rewritten on
// every change, kept independent of viper since this document is
// runtime state the process itself mutates rather than static config.
package registry

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

// Entry describes one tracked prefix.
type Entry struct {
	Prefix string `json:"prefix"`
	Name string `json:"name"`
	Description string `json:"description"`
	Tokens []string `json:"tokens"`
	Endpoints []string `json:"endpoints"`
	SchemaPath string `json:"schemaPath"`
}

// Registry is the process-wide, mutex-guarded prefix map.
type Registry struct {
	mu sync.RWMutex
	path string
	entries map[string]Entry
	log *logrus.Logger
}

// New constructs an empty Registry backed by path; callers should call
// Reload to populate it from disk if the file already exists.
func New(path string, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{path: path, entries: make(map[string]Entry), log: log}
}

// Reload replaces the in-memory map with the contents of path. A
// missing file is not an error — a fresh instance simply starts empty.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return utils.Wrap(err, "registry: read "+r.path)
	}
	var list []Entry
	if err := json.Unmarshal(data, &list); err != nil {
		return utils.Wrap(err, "registry: decode "+r.path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]Entry, len(list))
	for _, e := range list {
		r.entries[e.Prefix] = e
	}
	return nil
}

// persistLocked writes the current entries to disk. Caller must hold r.mu.
func (r *Registry) persistLocked() error {
	list := make([]Entry, 0, len(r.entries))
	prefixes := make([]string, 0, len(r.entries))
	for p := range r.entries {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		list = append(list, r.entries[p])
	}
	data, err := json.MarshalIndent(list, "", " ")
	if err != nil {
		return utils.Wrap(err, "registry: encode")
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return utils.Wrap(err, "registry: write "+r.path)
	}
	return nil
}

// Register adds or replaces the entry for e.Prefix and persists it.
func (r *Registry) Register(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Prefix] = e
	return r.persistLocked()
}

// Remove drops the entry for prefix and persists the change. Removing
// an unknown prefix is a no-op.
func (r *Registry) Remove(prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[prefix]; !ok {
		return nil
	}
	delete(r.entries, prefix)
	return r.persistLocked()
}

// Get returns the entry for prefix, if known.
func (r *Registry) Get(prefix string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[prefix]
	return e, ok
}

// List returns every known entry, sorted by prefix.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.entries))
	for p := range r.entries {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	out := make([]Entry, len(prefixes))
	for i, p := range prefixes {
		out[i] = r.entries[p]
	}
	return out
}
