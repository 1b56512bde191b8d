// Package registry owns the process-wide mapping from store identifier to a
// live index handle.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ragstore/internal/domain"
	"ragstore/internal/vectorstore"
	"ragstore/internal/vectorstore/local"
)

// StoreSuffix is appended to the identifier to form the persistence
// directory name under the data root.
const StoreSuffix = "_vector_db"

// Registry resolves identifiers to singleton index handles. Resolution for
// different identifiers proceeds concurrently; resolution for the same
// identifier is serialized by a per-identifier lock so a handle is created
// at most once.
type Registry struct {
	dataRoot string
	embedder domain.Embedder

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	store *local.Store
}

// New creates a registry rooted at dataRoot. The directory is created if
// missing so List works on a fresh installation.
func New(dataRoot string, embedder domain.Embedder) (*Registry, error) {
	if err := os.MkdirAll(dataRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &Registry{
		dataRoot: dataRoot,
		embedder: embedder,
		entries:  make(map[string]*entry),
	}, nil
}

// ValidateIdentifier rejects names that are empty or unsafe as a directory
// name component.
func ValidateIdentifier(identifier string) error {
	if identifier == "" || identifier == "." || identifier == ".." {
		return domain.ErrInvalidIdentifier
	}
	if strings.ContainsAny(identifier, `/\`) || strings.ContainsRune(identifier, 0) {
		return domain.ErrInvalidIdentifier
	}
	return nil
}

// Path derives the persistence directory for an identifier.
func (r *Registry) Path(identifier string) string {
	return filepath.Join(r.dataRoot, identifier+StoreSuffix)
}

func (r *Registry) entryFor(identifier string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[identifier]
	if !ok {
		e = &entry{}
		r.entries[identifier] = e
	}
	return e
}

// Resolve returns the live index handle for identifier, creating it (and its
// persistence directory) on first use. Repeated calls return the same handle
// unless it was invalidated in between.
func (r *Registry) Resolve(identifier string) (vectorstore.Index, error) {
	if err := ValidateIdentifier(identifier); err != nil {
		return nil, err
	}
	e := r.entryFor(identifier)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		s, err := local.Open(r.Path(identifier), identifier, r.embedder)
		if err != nil {
			return nil, fmt.Errorf("open store %q: %w", identifier, err)
		}
		e.store = s
	}
	return e.store, nil
}

// Invalidate removes the in-memory handle only. Persisted data is untouched;
// the next Resolve re-opens it.
func (r *Registry) Invalidate(identifier string) {
	e := r.entryFor(identifier)
	e.mu.Lock()
	e.store = nil
	e.mu.Unlock()
}

// Drop invalidates the handle and removes the persisted directory. The
// per-identifier lock is held across both steps so no concurrent Resolve can
// obtain a handle to a directory that is mid-removal. Dropping an identifier
// with no persisted directory is a no-op.
func (r *Registry) Drop(identifier string) error {
	if err := ValidateIdentifier(identifier); err != nil {
		return err
	}
	e := r.entryFor(identifier)
	e.mu.Lock()
	defer e.mu.Unlock()
	path := r.Path(identifier)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	e.store = nil
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove store %q: %w", identifier, err)
	}
	return nil
}

// List enumerates identifiers of persisted stores by scanning the data root
// for directories carrying the store suffix. Stores never resolved in this
// process are included.
func (r *Registry) List() ([]string, error) {
	dirEntries, err := os.ReadDir(r.dataRoot)
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}
	var names []string
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, StoreSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, StoreSuffix))
	}
	return names, nil
}
