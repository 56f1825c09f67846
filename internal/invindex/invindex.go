// Package invindex implements the inverted index of spec.md §4.3: a mapping
// from lexicon term-id to an ordered posting list of (record-id, section,
// positions, weight), built on top of a PAT trie lexicon and spec.md §4.3's
// two-file on-disk layout — a segment file holding a fixed-size per-term
// directory, and a companion chunk file holding the variable-length
// serialized posting list each directory entry points at.
package invindex

import (
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/pat"
	"github.com/ryogrid/ftsengine/internal/segment"
	"github.com/ryogrid/ftsengine/internal/status"
)

// Posting is one (record, section) occurrence of a term.
type Posting struct {
	RID       int64
	Section   int32
	Positions []int32
	Weight    int32
}

var dirMagic = [8]byte{'F', 'T', 'S', 'I', 'I', 'D', 'I', 'R'}
var chunkMagic = [8]byte{'F', 'T', 'S', 'I', 'I', 'C', 'H', 'K'}

const dirHeaderSize = 64
const chunkHeaderSize = 64
const dirSegSize = 4096
const chunkSegSize = 1 << 16

// dirRecordSize is the fixed per-term directory entry: the current posting
// list for a term always lives as one whole serialized blob in the chunk
// file, so the directory only needs to point at it.
const dirRecordSize = 24

// Index is an open inverted index.
type Index struct {
	path string
	lex  *pat.Trie

	dirFile    *segment.File
	chunkFile  *segment.File
	dirArena   *segment.Arena
	chunkArena *segment.Arena
}

// Create creates a new inverted index at path, with its own lexicon trie
// (path+".lex.n"/".lex.k") and directory/chunk files (path+".ii"/".ii.c").
func Create(path string) (*Index, error) {
	lex, err := pat.Create(path+".lex", pat.CreateParams{})
	if err != nil {
		return nil, err
	}
	df, err := segment.Create(path+".ii", dirMagic, dirHeaderSize, dirSegSize)
	if err != nil {
		lex.Close()
		return nil, err
	}
	cf, err := segment.Create(path+".ii.c", chunkMagic, chunkHeaderSize, chunkSegSize)
	if err != nil {
		df.Close()
		lex.Close()
		return nil, err
	}
	return &Index{
		path: path, lex: lex,
		dirFile: df, chunkFile: cf,
		dirArena:   segment.NewArena(df, 0),
		chunkArena: segment.NewArena(cf, 0),
	}, nil
}

// lengthOffset mirrors internal/pat's header convention: each arena's true
// logical length is persisted in its own file's header so Open can recover
// the append cursor exactly instead of inferring it from segment count.
const lengthOffset = 16

func (idx *Index) persistLengths() {
	segment.PutUint64(idx.dirFile.Header(), lengthOffset, uint64(idx.dirArena.Len()))
	segment.PutUint64(idx.chunkFile.Header(), lengthOffset, uint64(idx.chunkArena.Len()))
}

// Open reopens an inverted index previously created by Create.
func Open(path string) (*Index, error) {
	if err := checkMagic(path+".ii", dirMagic); err != nil {
		return nil, err
	}
	lex, err := pat.Open(path + ".lex")
	if err != nil {
		return nil, err
	}
	df, err := segment.Open(path+".ii", dirMagic, dirHeaderSize, dirSegSize)
	if err != nil {
		lex.Close()
		return nil, err
	}
	cf, err := segment.Open(path+".ii.c", chunkMagic, chunkHeaderSize, chunkSegSize)
	if err != nil {
		df.Close()
		lex.Close()
		return nil, err
	}
	idx := &Index{
		path: path, lex: lex,
		dirFile: df, chunkFile: cf,
	}
	idx.dirArena = segment.NewArena(df, int64(segment.GetUint64(df.Header(), lengthOffset)))
	idx.chunkArena = segment.NewArena(cf, int64(segment.GetUint64(cf.Header(), lengthOffset)))
	return idx, nil
}

// checkMagic validates the ii file's magic directly so a mismatch produces
// spec.md §4.3's diagnostic wording ("invalid ii file. ii_idstr (...)")
// instead of internal/segment's generic message.
func checkMagic(path string, want [8]byte) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("invindex: %s: %w", path, status.ErrNotFound)
		}
		return fmt.Errorf("invindex: open %s: %w", path, status.ErrSyscall)
	}
	defer f.Close()
	got := make([]byte, 8)
	if _, err := f.ReadAt(got, 0); err != nil {
		return fmt.Errorf("invindex: read header %s: %w", path, status.ErrFileCorrupt)
	}
	if string(got) != string(want[:]) {
		return fmt.Errorf("invalid ii file. ii_idstr (%x): %w", got, status.ErrInvalidArg)
	}
	return nil
}

// Close closes the lexicon and both index files.
func (idx *Index) Close() error {
	if err := idx.lex.Close(); err != nil {
		return err
	}
	if err := idx.dirFile.Close(); err != nil {
		return err
	}
	return idx.chunkFile.Close()
}

// Sync flushes the lexicon and both index files.
func (idx *Index) Sync() error {
	if err := idx.lex.Sync(); err != nil {
		return err
	}
	if err := idx.dirFile.Sync(); err != nil {
		return err
	}
	return idx.chunkFile.Sync()
}

// Remove deletes an inverted index's files, including its lexicon trie.
func Remove(path string) error {
	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	note(pat.Remove(path + ".lex"))
	note(removeFile(path + ".ii"))
	note(removeFile(path + ".ii.c"))
	return firstErr
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("invindex: remove %s: %w", path, status.ErrSyscall)
	}
	return nil
}

// Lexicon returns the term lexicon backing this index.
func (idx *Index) Lexicon() *pat.Trie { return idx.lex }

// dirSlot ensures the directory has a record for term id, growing it with
// zeroed records as needed (dense term ids mean the directory is simply
// indexed by id-1, the same pattern internal/pat uses for its id table).
func (idx *Index) dirSlot(id pat.ID) (int64, error) {
	want := int64(id) * dirRecordSize
	for idx.dirArena.Len() < want {
		if _, err := idx.dirArena.Append(make([]byte, dirRecordSize)); err != nil {
			return 0, err
		}
	}
	idx.persistLengths()
	return (int64(id) - 1) * dirRecordSize, nil
}

type dirEntry struct {
	chunkOff int64
	chunkLen int32
	n        int32
}

func (idx *Index) readDir(id pat.ID) (dirEntry, error) {
	off := (int64(id) - 1) * dirRecordSize
	if off < 0 || off+dirRecordSize > idx.dirArena.Len() {
		return dirEntry{}, nil
	}
	rec, err := idx.dirArena.ReadAt(off, dirRecordSize)
	if err != nil {
		return dirEntry{}, err
	}
	return dirEntry{
		chunkOff: int64(segment.GetUint64(rec, 0)),
		chunkLen: int32(segment.GetUint32(rec, 8)),
		n:        int32(segment.GetUint32(rec, 12)),
	}, nil
}

func (idx *Index) writeDir(id pat.ID, e dirEntry) error {
	off, err := idx.dirSlot(id)
	if err != nil {
		return err
	}
	rec := make([]byte, dirRecordSize)
	segment.PutUint64(rec, 0, uint64(e.chunkOff))
	segment.PutUint32(rec, 8, uint32(e.chunkLen))
	segment.PutUint32(rec, 12, uint32(e.n))
	return idx.dirArena.WriteAt(off, rec)
}

// postingsOf returns the current posting list for a term id (nil, nil if
// the term has no directory entry yet).
func (idx *Index) postingsOf(id pat.ID) ([]Posting, error) {
	e, err := idx.readDir(id)
	if err != nil || e.chunkLen == 0 {
		return nil, err
	}
	blob, err := idx.chunkArena.ReadAt(e.chunkOff, int64(e.chunkLen))
	if err != nil {
		return nil, err
	}
	return decodePostings(blob)
}

// setPostings rewrites a term's posting list as a fresh chunk blob, leaving
// the old blob's bytes as unreferenced spill (the chunk file is append-only,
// so updates never overwrite another term's live data).
func (idx *Index) setPostings(id pat.ID, postings []Posting) error {
	blob := encodePostings(postings)
	off, err := idx.chunkArena.Append(blob)
	if err != nil {
		return err
	}
	idx.persistLengths()
	return idx.writeDir(id, dirEntry{chunkOff: off, chunkLen: int32(len(blob)), n: int32(len(postings))})
}
