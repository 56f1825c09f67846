// Package segment is the engine's stand-in for the "io" collaborator named
// in spec.md §1: creation of a named file with a header area and fixed-size
// segments, segment mapping/unmapping, and close. The PAT trie and the
// inverted index are built against this package's File type rather than
// against raw os.File, so their record-at-offset logic never sees whether a
// segment is currently memory-mapped.
//
// Layout on disk: [fixed header][segment 0][segment 1]...
// The header size and the segment size are fixed for the lifetime of a
// File, chosen by the caller at Create time; they are not stored in the
// file, and the caller passes them to Open again.
package segment

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ryogrid/ftsengine/internal/status"
)

// HeaderMagicLen is the fixed prefix every File's header begins with.
const HeaderMagicLen = 8

// File is a named persistent file with a header region and an array of
// fixed-size segments, grown by appending whole segments.
type File struct {
	f           *os.File
	path        string
	headerSize  int64
	segSize     int64
	mapping     mapping
	numSegments int64
}

// Create creates path, writing magic into the first HeaderMagicLen bytes of
// a headerSize-byte header, followed by zero segments of segSize bytes
// each. headerSize must be >= HeaderMagicLen.
func Create(path string, magic [HeaderMagicLen]byte, headerSize, segSize int64) (*File, error) {
	if headerSize < HeaderMagicLen || segSize <= 0 {
		return nil, fmt.Errorf("segment: create %s: %w", path, status.ErrInvalidArg)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("segment: %s already exists: %w", path, status.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("segment: create %s: %w", path, status.ErrSyscall)
	}
	header := make([]byte, headerSize)
	copy(header, magic[:])
	if _, err := f.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("segment: write header %s: %w", path, status.ErrSyscall)
	}
	sf := &File{f: f, path: path, headerSize: headerSize, segSize: segSize}
	if err := sf.mapping.open(f, headerSize); err != nil {
		f.Close()
		return nil, err
	}
	return sf, nil
}

// Open opens an existing segment file created by Create, validating that
// the stored magic matches. headerSize and segSize must match the values
// used at Create time (the caller, e.g. the PAT trie, passes the same
// constants to both).
func Open(path string, wantMagic [HeaderMagicLen]byte, headerSize, segSize int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("segment: %s: %w", path, status.ErrNotFound)
		}
		return nil, fmt.Errorf("segment: open %s: %w", path, status.ErrSyscall)
	}
	got := make([]byte, HeaderMagicLen)
	if _, err := f.ReadAt(got, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: read header %s: %w", path, status.ErrFileCorrupt)
	}
	if string(got) != string(wantMagic[:]) {
		f.Close()
		return nil, fmt.Errorf("invalid file. segment_idstr (%x): %w", got, status.ErrInvalidArg)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: stat %s: %w", path, status.ErrSyscall)
	}
	sf := &File{f: f, path: path, headerSize: headerSize, segSize: segSize}
	sf.numSegments = (info.Size() - headerSize) / segSize
	if err := sf.mapping.open(f, headerSize); err != nil {
		f.Close()
		return nil, err
	}
	return sf, nil
}

// Header returns the mutable header bytes, memory-mapped for the lifetime
// of the File. Callers must keep writes within headerSize bytes.
func (sf *File) Header() []byte {
	return sf.mapping.header(sf.headerSize)
}

// NumSegments returns the current number of allocated fixed-size segments.
func (sf *File) NumSegments() int64 {
	return sf.numSegments
}

// Grow appends n new zero-filled segments and returns the index of the
// first one.
func (sf *File) Grow(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("segment: grow: %w", status.ErrInvalidArg)
	}
	first := sf.numSegments
	newSize := sf.headerSize + (sf.numSegments+n)*sf.segSize
	if err := sf.f.Truncate(newSize); err != nil {
		return 0, fmt.Errorf("segment: grow %s: %w", sf.path, status.ErrSyscall)
	}
	sf.numSegments += n
	if err := sf.mapping.remap(sf.f, sf.headerSize, sf.numSegments*sf.segSize); err != nil {
		return 0, err
	}
	return first, nil
}

// Segment returns a byte slice view of segment index i, valid until the
// next Grow or Close.
func (sf *File) Segment(i int64) ([]byte, error) {
	if i < 0 || i >= sf.numSegments {
		return nil, fmt.Errorf("segment: index %d out of range: %w", i, status.ErrInvalidArg)
	}
	body := sf.mapping.body(sf.headerSize, sf.numSegments*sf.segSize)
	off := i * sf.segSize
	return body[off : off+sf.segSize], nil
}

// Sync flushes the memory-mapped pages and the underlying file to disk.
func (sf *File) Sync() error {
	if err := sf.mapping.sync(); err != nil {
		return fmt.Errorf("segment: sync %s: %w", sf.path, status.ErrSyscall)
	}
	if err := sf.f.Sync(); err != nil {
		return fmt.Errorf("segment: sync %s: %w", sf.path, status.ErrSyscall)
	}
	return nil
}

// Close unmaps and closes the underlying file.
func (sf *File) Close() error {
	if err := sf.mapping.close(); err != nil {
		sf.f.Close()
		return err
	}
	if err := sf.f.Close(); err != nil {
		return fmt.Errorf("segment: close %s: %w", sf.path, status.ErrSyscall)
	}
	return nil
}

// PutUint32 / GetUint32 are small helpers for fixed header fields, used by
// every package that lays out a struct-like header on top of File.Header().
func PutUint32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func GetUint32(b []byte, off int) uint32    { return binary.LittleEndian.Uint32(b[off:]) }
func PutUint64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:], v) }
func GetUint64(b []byte, off int) uint64    { return binary.LittleEndian.Uint64(b[off:]) }
