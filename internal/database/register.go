package database

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ryogrid/ftsengine/internal/cache"
	"github.com/ryogrid/ftsengine/internal/hashtable"
	"github.com/ryogrid/ftsengine/internal/invindex"
	"github.com/ryogrid/ftsengine/internal/pat"
	"github.com/ryogrid/ftsengine/internal/status"
)

// manifestPath is the append-only "id\tname\tkind" log letting Open
// rebuild the id -> (name, kind) side table the name trie alone can't
// carry (the trie only records name -> id).
func (db *Database) manifestPath() string {
	return db.dir + "/_manifest"
}

func (db *Database) register(name string, kind Kind) (pat.ID, string, error) {
	if len(name) == 0 || len(name) > MaxNameLen {
		return pat.IDNil, "", fmt.Errorf("database: invalid name length %d: %w", len(name), status.ErrInvalidArg)
	}
	id, err := db.names.Lookup([]byte(name), pat.FlagAdd)
	if err != nil {
		return pat.IDNil, "", err
	}
	path := db.pathFor(name)

	f, err := os.OpenFile(db.manifestPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return pat.IDNil, "", fmt.Errorf("database: open manifest: %w", status.ErrSyscall)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d\t%s\t%d\n", id, name, kind); err != nil {
		return pat.IDNil, "", fmt.Errorf("database: append manifest: %w", status.ErrSyscall)
	}
	return id, path, nil
}

func (db *Database) put(id pat.ID, name string, kind Kind, path string, handle any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.byID[id] = &entry{name: name, kind: kind, path: path, handle: handle}
}

// CreatePAT registers and creates a new PAT trie object named name.
func (db *Database) CreatePAT(name string) (pat.ID, *pat.Trie, error) {
	id, path, err := db.register(name, KindPAT)
	if err != nil {
		return pat.IDNil, nil, err
	}
	t, err := pat.Create(path, pat.CreateParams{})
	if err != nil {
		return pat.IDNil, nil, err
	}
	db.put(id, name, KindPAT, path, t)
	return id, t, nil
}

// CreateHash registers and creates a new hash table object named name.
func (db *Database) CreateHash(name string, opts hashtable.CreateParams) (pat.ID, *hashtable.Table, error) {
	id, path, err := db.register(name, KindHash)
	if err != nil {
		return pat.IDNil, nil, err
	}
	tbl, err := hashtable.Create(path, opts)
	if err != nil {
		return pat.IDNil, nil, err
	}
	db.put(id, name, KindHash, path, tbl)
	return id, tbl, nil
}

// CreateInvertedIndex registers and creates a new inverted index object
// named name.
func (db *Database) CreateInvertedIndex(name string) (pat.ID, *invindex.Index, error) {
	id, path, err := db.register(name, KindInvertedIndex)
	if err != nil {
		return pat.IDNil, nil, err
	}
	idx, err := invindex.Create(path)
	if err != nil {
		return pat.IDNil, nil, err
	}
	db.put(id, name, KindInvertedIndex, path, idx)
	return id, idx, nil
}

// CreateCache registers and creates a new cache table object named name.
func (db *Database) CreateCache(name string) (pat.ID, *cache.Table, error) {
	id, path, err := db.register(name, KindCache)
	if err != nil {
		return pat.IDNil, nil, err
	}
	tbl, err := cache.Create(path)
	if err != nil {
		return pat.IDNil, nil, err
	}
	db.put(id, name, KindCache, path, tbl)
	return id, tbl, nil
}

// PAT returns the already-open *pat.Trie registered under id, opening it
// from disk on first access.
func (db *Database) PAT(id pat.ID) (*pat.Trie, error) {
	e, err := db.entryOf(id, KindPAT)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if h, ok := e.handle.(*pat.Trie); ok && h != nil {
		return h, nil
	}
	t, err := pat.Open(e.path)
	if err != nil {
		return nil, err
	}
	e.handle = t
	return t, nil
}

// Hash returns the already-open *hashtable.Table registered under id,
// opening it from disk on first access.
func (db *Database) Hash(id pat.ID) (*hashtable.Table, error) {
	e, err := db.entryOf(id, KindHash)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if h, ok := e.handle.(*hashtable.Table); ok && h != nil {
		return h, nil
	}
	tbl, err := hashtable.Open(e.path)
	if err != nil {
		return nil, err
	}
	e.handle = tbl
	return tbl, nil
}

// InvertedIndex returns the already-open *invindex.Index registered under
// id, opening it from disk on first access.
func (db *Database) InvertedIndex(id pat.ID) (*invindex.Index, error) {
	e, err := db.entryOf(id, KindInvertedIndex)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if h, ok := e.handle.(*invindex.Index); ok && h != nil {
		return h, nil
	}
	idx, err := invindex.Open(e.path)
	if err != nil {
		return nil, err
	}
	e.handle = idx
	return idx, nil
}

// Cache returns the already-open *cache.Table registered under id,
// opening it from disk on first access.
func (db *Database) Cache(id pat.ID) (*cache.Table, error) {
	e, err := db.entryOf(id, KindCache)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if h, ok := e.handle.(*cache.Table); ok && h != nil {
		return h, nil
	}
	tbl, err := cache.Open(e.path)
	if err != nil {
		return nil, err
	}
	e.handle = tbl
	return tbl, nil
}

func (db *Database) entryOf(id pat.ID, want Kind) (*entry, error) {
	db.mu.Lock()
	e, ok := db.byID[id]
	db.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("database: no object with id %d: %w", id, status.ErrNotFound)
	}
	if e.kind != want {
		return nil, fmt.Errorf("database: object %q is %s, not %s: %w", e.name, e.kind, want, status.ErrInvalidArg)
	}
	return e, nil
}

// loadManifest replays the append-only manifest, populating byID with
// unopened entries (kind + path known, handle nil until first access).
func (db *Database) loadManifest() error {
	f, err := os.Open(db.manifestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("database: open manifest: %w", status.ErrSyscall)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		idN, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		kindN, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		name := fields[1]
		id := pat.ID(idN)
		db.byID[id] = &entry{name: name, kind: Kind(kindN), path: db.pathFor(name)}
	}
	return scanner.Err()
}
