package segment

import "fmt"

// Arena is an append-only byte arena built on top of a File's fixed-size
// segments: writes that cross a segment boundary are split and copied into
// each underlying segment in turn, so callers see a single logical,
// unbounded byte stream. Used by the PAT trie's key-bytes stream and the
// inverted index's postings/chunk streams (spec.md §4.1, §4.3).
type Arena struct {
	f   *File
	len int64
}

// NewArena wraps an already-open File as an arena, with logicalLen bytes
// already written (recovered from the File's own header on Open).
func NewArena(f *File, logicalLen int64) *Arena {
	return &Arena{f: f, len: logicalLen}
}

// Len returns the number of logical bytes written so far.
func (a *Arena) Len() int64 { return a.len }

func (a *Arena) segSize() int64 {
	// Segment size is fixed for the File's lifetime.
	return a.f.segSize
}

// Append writes data at the current end of the arena and returns its
// starting logical offset.
func (a *Arena) Append(data []byte) (int64, error) {
	start := a.len
	remaining := data
	for len(remaining) > 0 {
		segSize := a.segSize()
		segIdx := a.len / segSize
		segOff := a.len % segSize
		if segIdx >= a.f.NumSegments() {
			if _, err := a.f.Grow(1); err != nil {
				return 0, err
			}
		}
		seg, err := a.f.Segment(segIdx)
		if err != nil {
			return 0, err
		}
		n := copy(seg[segOff:], remaining)
		remaining = remaining[n:]
		a.len += int64(n)
	}
	return start, nil
}

// WriteAt overwrites length(data) bytes starting at logical offset off,
// which must already lie within the arena (off+len(data) <= Len()).
func (a *Arena) WriteAt(off int64, data []byte) error {
	if off < 0 || off+int64(len(data)) > a.len {
		return fmt.Errorf("segment: arena write [%d,%d) out of range [0,%d)", off, off+int64(len(data)), a.len)
	}
	remaining := data
	pos := off
	segSize := a.segSize()
	for len(remaining) > 0 {
		segIdx := pos / segSize
		segOff := pos % segSize
		seg, err := a.f.Segment(segIdx)
		if err != nil {
			return err
		}
		n := copy(seg[segOff:], remaining)
		remaining = remaining[n:]
		pos += int64(n)
	}
	return nil
}

// ReadAt returns a copy of length bytes starting at logical offset off.
func (a *Arena) ReadAt(off, length int64) ([]byte, error) {
	if off < 0 || length < 0 || off+length > a.len {
		return nil, fmt.Errorf("segment: arena read [%d,%d) out of range [0,%d)", off, off+length, a.len)
	}
	out := make([]byte, 0, length)
	remaining := length
	pos := off
	segSize := a.segSize()
	for remaining > 0 {
		segIdx := pos / segSize
		segOff := pos % segSize
		seg, err := a.f.Segment(segIdx)
		if err != nil {
			return nil, err
		}
		n := int64(len(seg)) - segOff
		if n > remaining {
			n = remaining
		}
		out = append(out, seg[segOff:segOff+n]...)
		pos += n
		remaining -= n
	}
	return out, nil
}
