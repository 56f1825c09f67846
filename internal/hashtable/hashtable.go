// Package hashtable implements the unordered keyed store of spec.md §4.2:
// open addressing with linear probing on a 64-bit key hash, dense entry
// ids stable for the entry's lifetime, and insertion-order cursor
// iteration that tolerates concurrent deletion.
//
// There is no internal locking (spec.md §4.2, "Concurrency"): callers
// (e.g. the cache table of §4.6) serialize access externally.
package hashtable

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/ryogrid/ftsengine/internal/status"
)

// ID is a dense, non-zero object id. IDNil marks "no such entry".
type ID uint64

const IDNil ID = 0

// MaxVarKey bounds variable-length keys (spec.md §3, "Hash table").
const MaxVarKey = 4096

// Flags control table layout.
type Flags uint32

const (
	// FlagTiny is stored with the table's parameters and persisted with
	// it; it does not change the table's layout or its size limits.
	FlagTiny Flags = 1 << iota
)

// LookupFlags select lookup behavior.
type LookupFlags uint32

const (
	LookupGet LookupFlags = 0
	LookupAdd LookupFlags = 1 << iota
)

// SetMode selects how SetValue combines a new value with the existing one.
type SetMode int

const (
	SetReplace SetMode = iota
	SetIncr
	SetAppend
)

type entry struct {
	key   []byte
	value []byte
	id    ID
	alive bool
}

// Table is an in-memory-resident, disk-backed hash table. Persistence is
// handled by Create/Open/Close/Remove; the live structure (buckets, entry
// array, insertion order) is rebuilt into memory on Open and snapshotted on
// Close, matching the single-writer, externally-serialized discipline of
// spec.md §4.2 and §5.
type Table struct {
	path      string
	keySize   int // 0 = variable length, capped at MaxVarKey
	valueSize int
	flags     Flags

	buckets    []ID // 0 = empty slot, open addressing w/ linear probing
	entries    []*entry
	order      []ID
	nextID     ID
	freeIDs    []ID
	liveCount  int
	tombstones int
}

// CreateParams configures a new Table.
type CreateParams struct {
	KeySize   int // 0 for variable-length keys
	ValueSize int
	Flags     Flags
}

// Create allocates a new Table and persists its parameters to path.
func Create(path string, p CreateParams) (*Table, error) {
	if p.KeySize < 0 || p.KeySize > MaxVarKey || p.ValueSize < 0 {
		return nil, fmt.Errorf("hashtable: create %s: %w", path, status.ErrInvalidArg)
	}
	t := &Table{
		path:      path,
		keySize:   p.KeySize,
		valueSize: p.ValueSize,
		flags:     p.Flags,
		buckets:   make([]ID, 16),
		entries:   []*entry{nil}, // index 0 reserved for IDNil
	}
	if err := t.persist(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open reopens a Table previously created and persisted at path.
func Open(path string) (*Table, error) {
	return loadTable(path)
}

// Close flushes the table to disk.
func (t *Table) Close() error {
	return t.persist()
}

// Remove deletes the table's backing file.
func Remove(path string) error {
	return removeTable(path)
}

func (t *Table) hash(key []byte) uint64 {
	return xxhash.Sum64(key)
}

func (t *Table) validKey(key []byte) bool {
	if t.keySize == 0 {
		return len(key) <= MaxVarKey
	}
	return len(key) == t.keySize
}

// Lookup finds key's id. With LookupAdd it inserts key (with a zero value)
// when absent and returns the new id; without it, returns IDNil when
// absent.
func (t *Table) Lookup(key []byte, flags LookupFlags) (ID, error) {
	if !t.validKey(key) {
		return IDNil, fmt.Errorf("hashtable: lookup: %w", status.ErrInvalidArg)
	}
	if id, ok := t.find(key); ok {
		return id, nil
	}
	if flags&LookupAdd == 0 {
		return IDNil, nil
	}
	return t.insert(key), nil
}

// find returns the live entry id for key, if any.
func (t *Table) find(key []byte) (ID, bool) {
	if len(t.buckets) == 0 {
		return IDNil, false
	}
	mask := uint64(len(t.buckets) - 1)
	h := t.hash(key) & mask
	for i := uint64(0); i < uint64(len(t.buckets)); i++ {
		slot := (h + i) & mask
		id := t.buckets[slot]
		if id == IDNil {
			return IDNil, false
		}
		e := t.entries[id]
		if e != nil && e.alive && string(e.key) == string(key) {
			return id, true
		}
	}
	return IDNil, false
}

func (t *Table) insert(key []byte) ID {
	if float64(t.liveCount+1) > 0.5*float64(len(t.buckets)) {
		t.grow()
	}
	var id ID
	if n := len(t.freeIDs); n > 0 {
		id = t.freeIDs[n-1]
		t.freeIDs = t.freeIDs[:n-1]
		t.entries[id] = &entry{key: append([]byte(nil), key...), value: make([]byte, t.valueSize), id: id, alive: true}
	} else {
		t.nextID++
		id = t.nextID
		t.entries = append(t.entries, &entry{key: append([]byte(nil), key...), value: make([]byte, t.valueSize), id: id, alive: true})
	}
	t.order = append(t.order, id)
	t.liveCount++
	t.placeBucket(id, key)
	return id
}

func (t *Table) placeBucket(id ID, key []byte) {
	mask := uint64(len(t.buckets) - 1)
	h := t.hash(key) & mask
	for i := uint64(0); i < uint64(len(t.buckets)); i++ {
		slot := (h + i) & mask
		if t.buckets[slot] == IDNil {
			t.buckets[slot] = id
			return
		}
	}
}

func (t *Table) grow() {
	newSize := len(t.buckets) * 2
	if newSize == 0 {
		newSize = 16
	}
	old := t.buckets
	t.buckets = make([]ID, newSize)
	for _, id := range old {
		if id == IDNil {
			continue
		}
		e := t.entries[id]
		if e == nil || !e.alive {
			continue
		}
		t.placeBucket(id, e.key)
	}
}

// Delete removes key's entry, if present, via direct lookup (not the
// cursor).
func (t *Table) Delete(key []byte) error {
	id, ok := t.find(key)
	if !ok {
		return fmt.Errorf("hashtable: delete: %w", status.ErrNotFound)
	}
	return t.deleteID(id)
}

func (t *Table) deleteID(id ID) error {
	if int(id) >= len(t.entries) || t.entries[id] == nil || !t.entries[id].alive {
		return fmt.Errorf("hashtable: delete: %w", status.ErrNotFound)
	}
	t.entries[id].alive = false
	t.liveCount--
	t.tombstones++
	t.freeIDs = append(t.freeIDs, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetValue returns the value bytes for id.
func (t *Table) GetValue(id ID) ([]byte, error) {
	if int(id) >= len(t.entries) || t.entries[id] == nil || !t.entries[id].alive {
		return nil, fmt.Errorf("hashtable: get_value: %w", status.ErrNotFound)
	}
	return t.entries[id].value, nil
}

// SetValue writes bytes into id's value according to mode.
func (t *Table) SetValue(id ID, value []byte, mode SetMode) error {
	if int(id) >= len(t.entries) || t.entries[id] == nil || !t.entries[id].alive {
		return fmt.Errorf("hashtable: set_value: %w", status.ErrNotFound)
	}
	e := t.entries[id]
	switch mode {
	case SetReplace:
		e.value = append([]byte(nil), value...)
	case SetAppend:
		e.value = append(e.value, value...)
	case SetIncr:
		if t.valueSize == 8 && len(e.value) == 8 && len(value) == 8 {
			cur := beUint64(e.value)
			delta := beUint64(value)
			putBeUint64(e.value, cur+delta)
		} else {
			e.value = append(e.value, value...)
		}
	default:
		return fmt.Errorf("hashtable: set_value: %w", status.ErrInvalidArg)
	}
	return nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func putBeUint64(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// Key returns id's key bytes.
func (t *Table) Key(id ID) ([]byte, error) {
	if int(id) >= len(t.entries) || t.entries[id] == nil || !t.entries[id].alive {
		return nil, fmt.Errorf("hashtable: key: %w", status.ErrNotFound)
	}
	return t.entries[id].key, nil
}

// Count returns the number of live entries.
func (t *Table) Count() int { return t.liveCount }

// Direction selects cursor order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Cursor walks live entries in insertion order (Ascending) or its reverse
// (Descending). Deletions through DeleteCursor do not invalidate a
// cursor's progress: the cursor walks a snapshot of the order slice taken
// at Open time and simply skips ids that are no longer alive.
type Cursor struct {
	t     *Table
	order []ID
	pos   int
	dir   Direction
	cur   ID
}

// OpenCursor starts a new cursor over t's live entries.
func (t *Table) OpenCursor(dir Direction) *Cursor {
	snap := make([]ID, len(t.order))
	copy(snap, t.order)
	if dir == Descending {
		for i, j := 0, len(snap)-1; i < j; i, j = i+1, j-1 {
			snap[i], snap[j] = snap[j], snap[i]
		}
	}
	return &Cursor{t: t, order: snap, dir: dir, pos: -1}
}

// Next advances the cursor and returns the next live id, or IDNil with
// status.ErrEndOfData when exhausted.
func (c *Cursor) Next() (ID, error) {
	for {
		c.pos++
		if c.pos >= len(c.order) {
			c.cur = IDNil
			return IDNil, fmt.Errorf("hashtable: cursor: %w", status.ErrEndOfData)
		}
		id := c.order[c.pos]
		if int(id) < len(c.t.entries) && c.t.entries[id] != nil && c.t.entries[id].alive {
			c.cur = id
			return id, nil
		}
	}
}

// DeleteCursor deletes the entry the cursor is currently positioned on.
func (c *Cursor) DeleteCursor() error {
	if c.cur == IDNil {
		return fmt.Errorf("hashtable: cursor delete: %w", status.ErrInvalidArg)
	}
	return c.t.deleteID(c.cur)
}
