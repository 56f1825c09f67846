// Package database implements spec.md §3's "database / space": a named
// directory of persistent objects addressed by short names, providing
// lookup(name) -> obj-id and get(id) -> object. A database is itself just
// another PAT trie (name -> dense id), the same lexicon structure the
// inverted index and cache table build on, with an in-memory side table
// recording each id's kind and backing file path so the right concrete
// type can be opened on demand.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ryogrid/ftsengine/internal/cache"
	"github.com/ryogrid/ftsengine/internal/hashtable"
	"github.com/ryogrid/ftsengine/internal/invindex"
	"github.com/ryogrid/ftsengine/internal/pat"
	"github.com/ryogrid/ftsengine/internal/status"
)

// MaxNameLen bounds an object's registered name (spec.md §3: "short names
// (<= some limit)").
const MaxNameLen = 4096

// Kind identifies which concrete object type a registered name refers to.
type Kind int

const (
	KindPAT Kind = iota
	KindHash
	KindInvertedIndex
	KindCache
)

func (k Kind) String() string {
	switch k {
	case KindPAT:
		return "pat"
	case KindHash:
		return "hash"
	case KindInvertedIndex:
		return "inverted_index"
	case KindCache:
		return "cache"
	default:
		return "unknown"
	}
}

// entry is the in-memory record for one registered object. The handle is
// opened lazily and cached here; obj-id -> entry is the "get(id)" half of
// spec.md §3's contract, with the trie supplying "lookup(name) -> obj-id".
type entry struct {
	name   string
	kind   Kind
	path   string
	handle any
}

// Database is a named directory of persistent objects rooted at a single
// base directory. Every registered object's own files live under that
// directory, named after the object.
type Database struct {
	dir     string
	names   *pat.Trie // name -> obj-id
	mu      sync.Mutex
	byID    map[pat.ID]*entry
}

// Create makes a new, empty database rooted at dir. dir may already exist
// but must not already hold a database.
func Create(dir string) (*Database, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("database: create %s: %w", dir, status.ErrSyscall)
	}
	names, err := pat.Create(filepath.Join(dir, "_names"), pat.CreateParams{})
	if err != nil {
		return nil, err
	}
	return &Database{dir: dir, names: names, byID: make(map[pat.ID]*entry)}, nil
}

// Open reopens an existing database directory, re-registering every
// previously created object's kind by reading the side manifest written
// at registration time.
func Open(dir string) (*Database, error) {
	names, err := pat.Open(filepath.Join(dir, "_names"))
	if err != nil {
		return nil, err
	}
	db := &Database{dir: dir, names: names, byID: make(map[pat.ID]*entry)}
	if err := db.loadManifest(); err != nil {
		names.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the name trie and every object handle opened so far.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var firstErr error
	for _, e := range db.byID {
		if err := closeHandle(e.handle); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := db.names.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func closeHandle(h any) error {
	switch v := h.(type) {
	case *pat.Trie:
		return v.Close()
	case *hashtable.Table:
		return v.Close()
	case *invindex.Index:
		return v.Close()
	case *cache.Table:
		return v.Close()
	default:
		return nil
	}
}

// Lookup returns the obj-id registered under name, or pat.IDNil and a
// not-found error if no object has been created under that name.
func (db *Database) Lookup(name string) (pat.ID, error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return pat.IDNil, fmt.Errorf("database: invalid name length %d: %w", len(name), status.ErrInvalidArg)
	}
	return db.names.Lookup([]byte(name), 0)
}

// Get returns the kind and backing path of the object registered under
// id, per spec.md §3's get(id) -> object.
func (db *Database) Get(id pat.ID) (name string, kind Kind, path string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.byID[id]
	if !ok {
		return "", 0, "", fmt.Errorf("database: no object with id %d: %w", id, status.ErrNotFound)
	}
	return e.name, e.kind, e.path, nil
}

// pathFor returns the per-object file path an object registered under
// name should use, rooted under the database's own directory.
func (db *Database) pathFor(name string) string {
	return filepath.Join(db.dir, name)
}
