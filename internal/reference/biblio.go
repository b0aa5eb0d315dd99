package reference

import (
	"maps"
	"slices"
	"sync"
)

// Biblio maps function-site keys to their references.
//
// A Biblio is owned by the caller and accumulates entries across files and
// extraction passes. Entries are only ever added: AddIfAbsent never replaces
// an existing key, so the first writer for an identity wins. All methods are
// safe for concurrent use.
type Biblio struct {
	mu      sync.Mutex
	entries map[string]FunctionReference
}

// NewBiblio returns an empty bibliography.
func NewBiblio() *Biblio {
	return &Biblio{entries: make(map[string]FunctionReference)}
}

// AddIfAbsent stores ref under key unless the key is already present.
// The check and the insert happen under one lock. Returns true if ref was stored.
func (b *Biblio) AddIfAbsent(key string, ref FunctionReference) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries == nil {
		b.entries = make(map[string]FunctionReference)
	}
	if _, exists := b.entries[key]; exists {
		return false
	}
	b.entries[key] = ref.clone()
	return true
}

// Set stores ref under key, replacing any existing entry.
// Used to pre-seed a bibliography, e.g. when loading it from storage.
func (b *Biblio) Set(key string, ref FunctionReference) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.entries == nil {
		b.entries = make(map[string]FunctionReference)
	}
	b.entries[key] = ref.clone()
}

// Get returns the entry stored under key.
func (b *Biblio) Get(key string) (FunctionReference, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ref, ok := b.entries[key]
	if !ok {
		return FunctionReference{}, false
	}
	return ref.clone(), true
}

// Len returns the number of entries.
func (b *Biblio) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Keys returns all keys in sorted order.
func (b *Biblio) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.entries))
}

// Entry pairs a key with its function reference.
type Entry struct {
	Key       string            `json:"key"`
	Reference FunctionReference `json:"reference"`
}

// Entries returns a snapshot of all entries sorted by key.
func (b *Biblio) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := slices.Sorted(maps.Keys(b.entries))
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Reference: b.entries[k].clone()})
	}
	return entries
}

// Equal reports whether two bibliographies hold the same keys and values.
func (b *Biblio) Equal(other *Biblio) bool {
	left, right := b.Entries(), other.Entries()
	if len(left) != len(right) {
		return false
	}
	for i := range left {
		if left[i].Key != right[i].Key || !left[i].Reference.Equal(right[i].Reference) {
			return false
		}
	}
	return true
}
