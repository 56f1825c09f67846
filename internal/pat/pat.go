// Package pat implements the ordered-key PAT trie of spec.md §4.1: a
// patricia/crit-bit trie over variable-length byte keys supporting exact
// lookup, longest-common-prefix search, prefix/suffix search, and bounded
// ascending/descending cursor iteration.
//
// Every stored key gets a dense, non-zero, stable id (spec.md §3). Internally
// the trie is a single node stream persisted through internal/segment's
// Arena (one fixed-size record per node, leaf or branch) plus a second
// Arena holding the raw key bytes — the two segment streams spec.md §4.1
// describes. Public ids are kept dense via a small indirection array
// mapping id -> node-stream index, since branch nodes share the same
// record stream but are not user-visible entries.
package pat

import (
	"fmt"

	"github.com/ryogrid/ftsengine/internal/segment"
	"github.com/ryogrid/ftsengine/internal/status"
)

// ID is a dense, non-zero object id for a stored key. IDNil marks absence.
type ID int64

const IDNil ID = 0

// MaxKey bounds a stored key's length in bytes (spec.md §3).
const MaxKey = 1 << 16

const nodeRecordSize = 40

// Flags select lookup behavior.
type Flags uint32

const (
	FlagAdd Flags = 1 << iota
	FlagExact
	FlagLCP
)

const (
	flagIsLeaf  = 1 << 0
	flagLenKind = 1 << 1
	fileFlagSis = 1 << 0
)

// nodeRef encodes a reference to a slot in the unified node stream: 0 is
// nil, a positive value is a 1-based node-stream index.
type nodeRef int64

// node is the decoded, in-memory form of one 40-byte record.
type node struct {
	isLeaf  bool
	lenKind bool // internal only: true = length-boundary test, false = bit test
	pos     int32
	left    nodeRef
	right   nodeRef
	keyOff  int64
	keyLen  int32
}

func encodeNode(n node) []byte {
	b := make([]byte, nodeRecordSize)
	if n.isLeaf {
		b[0] |= flagIsLeaf
	} else if n.lenKind {
		b[0] |= flagLenKind
	}
	segment.PutUint32(b, 4, uint32(n.pos))
	segment.PutUint64(b, 8, uint64(n.left))
	segment.PutUint64(b, 16, uint64(n.right))
	segment.PutUint64(b, 24, uint64(n.keyOff))
	segment.PutUint32(b, 32, uint32(n.keyLen))
	return b
}

func decodeNode(b []byte) node {
	var n node
	n.isLeaf = b[0]&flagIsLeaf != 0
	n.lenKind = b[0]&flagLenKind != 0
	n.pos = int32(segment.GetUint32(b, 4))
	n.left = nodeRef(segment.GetUint64(b, 8))
	n.right = nodeRef(segment.GetUint64(b, 16))
	n.keyOff = int64(segment.GetUint64(b, 24))
	n.keyLen = int32(segment.GetUint32(b, 32))
	return n
}

// Trie is an open PAT trie.
type Trie struct {
	nodePath, keyPath string
	nodeFile          *segment.File
	keyFile           *segment.File
	nodeArena         *segment.Arena
	keyArena          *segment.Arena

	root    nodeRef
	idToIdx []int64 // dense id -> node-stream slot (1-based), index 0 unused
	freeIDs []ID
	count   int
	sis     bool
}

var nodeMagic = [8]byte{'F', 'T', 'S', 'P', 'A', 'T', 'N', '1'}
var keyMagic = [8]byte{'F', 'T', 'S', 'P', 'A', 'T', 'K', '1'}

const nodeHeaderSize = 64
const keyHeaderSize = 64
const nodeSegSize = 4096
const keySegSize = 1 << 16

// CreateParams configures a new Trie.
type CreateParams struct {
	Sis bool // suffix-indexed mode (spec.md glossary, "sis mode")
}

// Create creates a new trie persisted at basePath (".n" node stream, ".k"
// key stream).
func Create(basePath string, p CreateParams) (*Trie, error) {
	nf, err := segment.Create(basePath+".n", nodeMagic, nodeHeaderSize, nodeSegSize)
	if err != nil {
		return nil, err
	}
	kf, err := segment.Create(basePath+".k", keyMagic, keyHeaderSize, keySegSize)
	if err != nil {
		nf.Close()
		return nil, err
	}
	t := &Trie{
		nodePath: basePath + ".n", keyPath: basePath + ".k",
		nodeFile: nf, keyFile: kf,
		nodeArena: segment.NewArena(nf, 0),
		keyArena:  segment.NewArena(kf, 0),
		idToIdx:   []int64{0},
		sis:       p.Sis,
	}
	if p.Sis {
		segment.PutUint32(nf.Header(), 8, fileFlagSis)
	}
	return t, nil
}

// lengthOffset is where each stream's true logical length (in bytes, as
// opposed to the whole-segment capacity a File rounds allocations up to)
// is kept in that stream's own header, so Open can recover the exact
// append cursor instead of over-counting the unused tail of the last
// allocated segment.
const lengthOffset = 16
const rootOffset = 24

func (t *Trie) persistLengths() {
	segment.PutUint64(t.nodeFile.Header(), lengthOffset, uint64(t.nodeArena.Len()))
	segment.PutUint64(t.keyFile.Header(), lengthOffset, uint64(t.keyArena.Len()))
}

// setRoot updates the trie's root reference, in memory and in the node
// stream's header so Open can recover it directly instead of assuming the
// root is always the first-ever appended record (true only until the
// first split).
func (t *Trie) setRoot(ref nodeRef) {
	t.root = ref
	segment.PutUint64(t.nodeFile.Header(), rootOffset, uint64(ref))
}

// Open reopens a trie previously created by Create.
func Open(basePath string) (*Trie, error) {
	nf, err := segment.Open(basePath+".n", nodeMagic, nodeHeaderSize, nodeSegSize)
	if err != nil {
		return nil, err
	}
	kf, err := segment.Open(basePath+".k", keyMagic, keyHeaderSize, keySegSize)
	if err != nil {
		nf.Close()
		return nil, err
	}
	t := &Trie{
		nodePath: basePath + ".n", keyPath: basePath + ".k",
		nodeFile: nf, keyFile: kf,
	}
	flags := segment.GetUint32(nf.Header(), 8)
	t.sis = flags&fileFlagSis != 0
	t.nodeArena = segment.NewArena(nf, int64(segment.GetUint64(nf.Header(), lengthOffset)))
	t.keyArena = segment.NewArena(kf, int64(segment.GetUint64(kf.Header(), lengthOffset)))
	if err := t.rebuildIndex(); err != nil {
		nf.Close()
		kf.Close()
		return nil, err
	}
	return t, nil
}

// rebuildIndex scans the node stream after Open to recover the root
// reference, the id->node-index table, and the free list, since only the
// raw node/key streams are persisted (not the in-memory indirection
// table).
func (t *Trie) rebuildIndex() error {
	t.idToIdx = []int64{0}
	total := t.nodeArena.Len() / nodeRecordSize
	maxID := ID(0)
	type leafSeen struct {
		id  ID
		ref nodeRef
	}
	var leaves []leafSeen
	for i := int64(0); i < total; i++ {
		rec, err := t.nodeArena.ReadAt(i*nodeRecordSize, nodeRecordSize)
		if err != nil {
			return err
		}
		n := decodeNode(rec)
		if n.isLeaf {
			id := ID(n.left)
			leaves = append(leaves, leafSeen{id: id, ref: nodeRef(i + 1)})
			if id > maxID {
				maxID = id
			}
		}
	}
	t.idToIdx = make([]int64, maxID+1)
	used := make([]bool, maxID+1)
	for _, l := range leaves {
		t.idToIdx[l.id] = int64(l.ref)
		used[l.id] = true
	}
	t.freeIDs = nil
	distinct := 0
	for id := ID(1); id <= maxID; id++ {
		if used[id] {
			distinct++
		} else {
			t.freeIDs = append(t.freeIDs, id)
		}
	}
	// count tracks distinct ids that own at least one leaf (sis mode can
	// alias many leaves to one id), not the total leaf-record count.
	t.count = distinct
	t.root = nodeRef(segment.GetUint64(t.nodeFile.Header(), rootOffset))
	return nil
}

func (t *Trie) readNode(ref nodeRef) (node, error) {
	if ref == 0 {
		return node{}, fmt.Errorf("pat: nil ref: %w", status.ErrInvalidArg)
	}
	rec, err := t.nodeArena.ReadAt((int64(ref)-1)*nodeRecordSize, nodeRecordSize)
	if err != nil {
		return node{}, fmt.Errorf("pat: read node: %w", status.ErrFileCorrupt)
	}
	return decodeNode(rec), nil
}

func (t *Trie) writeNode(ref nodeRef, n node) error {
	return t.nodeArena.WriteAt((int64(ref)-1)*nodeRecordSize, encodeNode(n))
}

func (t *Trie) appendNode(n node) (nodeRef, error) {
	off, err := t.nodeArena.Append(encodeNode(n))
	if err != nil {
		return 0, err
	}
	t.persistLengths()
	return nodeRef(off/nodeRecordSize + 1), nil
}

func (t *Trie) keyOf(n node) ([]byte, error) {
	return t.keyArena.ReadAt(n.keyOff, int64(n.keyLen))
}

// Count returns the number of live stored keys.
func (t *Trie) Count() int { return t.count }

// Close closes the underlying files.
func (t *Trie) Close() error {
	if err := t.nodeFile.Close(); err != nil {
		return err
	}
	return t.keyFile.Close()
}

// Remove deletes the node and key streams of a trie previously created at
// basePath. The trie must not be open.
func Remove(basePath string) error {
	var firstErr error
	for _, p := range []string{basePath + ".n", basePath + ".k"} {
		if err := removeFile(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Sync flushes both streams to disk.
func (t *Trie) Sync() error {
	if err := t.nodeFile.Sync(); err != nil {
		return err
	}
	return t.keyFile.Sync()
}

func bitAt(key []byte, pos int32) int {
	byteIdx := pos / 8
	if int(byteIdx) >= len(key) {
		return 0
	}
	return int((key[byteIdx] >> uint(7-pos%8)) & 1)
}

func testKey(key []byte, n node) int {
	if n.lenKind {
		if int32(len(key))*8 <= n.pos {
			return 0
		}
		return 1
	}
	return bitAt(key, n.pos)
}

// firstDiff finds the first bit position at which a and b differ. If a is
// a proper prefix of b (or vice versa), the returned position is the
// length boundary (a multiple of 8) and lenKind is true; aLonger reports
// which side is the longer one. equal reports true when a == b exactly.
func firstDiff(a, b []byte) (pos int32, lenKind bool, aLonger bool, equal bool) {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			xor := a[i] ^ b[i]
			bit := 0
			for mask := byte(0x80); mask != 0; mask >>= 1 {
				if xor&mask != 0 {
					break
				}
				bit++
			}
			return int32(i*8 + bit), false, false, false
		}
	}
	if len(a) == len(b) {
		return 0, false, false, true
	}
	return int32(minLen * 8), true, len(a) > len(b), false
}

// descend walks from root following test(key, .) until it reaches a leaf,
// used as the initial best-match search for insert/lookup.
func (t *Trie) descend(key []byte) (nodeRef, error) {
	ref := t.root
	for {
		n, err := t.readNode(ref)
		if err != nil {
			return 0, err
		}
		if n.isLeaf {
			return ref, nil
		}
		if testKey(key, n) == 0 {
			ref = n.left
		} else {
			ref = n.right
		}
	}
}

// leftmostLeaf finds the smallest (leftmost) leaf under ref, used to
// verify a candidate prefix/suffix subtree.
func (t *Trie) leftmostLeaf(ref nodeRef) (nodeRef, error) {
	for {
		n, err := t.readNode(ref)
		if err != nil {
			return 0, err
		}
		if n.isLeaf {
			return ref, nil
		}
		ref = n.left
	}
}
