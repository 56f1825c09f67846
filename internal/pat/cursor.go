package pat

import (
	"bytes"
	"fmt"

	"github.com/ryogrid/ftsengine/internal/status"
)

// Direction selects the order a Cursor yields keys in.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// RangeFlags narrows a Cursor's bounds from inclusive to exclusive.
type RangeFlags uint32

const (
	// FlagGT makes Min exclusive.
	FlagGT RangeFlags = 1 << iota
	// FlagLT makes Max exclusive.
	FlagLT
)

// Cursor iterates the keys of a Trie in ascending or descending
// lexicographic order, optionally bounded by [Min, Max]. It walks the
// trie in a background goroutine (an ordinary in-order traversal — the
// crit-bit invariant that left/right subtrees split lexicographically
// smaller/larger guarantees this yields sorted order directly) and stops
// early the moment a yielded key would fall outside the bound on the far
// side of the requested direction, since no further node in a
// lexicographically ordered traversal could re-enter the range.
type Cursor struct {
	results chan Hit
	errCh   chan error
	quit    chan struct{}
}

// OpenCursor starts a new bounded cursor. A nil bound is unbounded on that
// side.
func (t *Trie) OpenCursor(min, max []byte, flags RangeFlags, dir Direction) *Cursor {
	c := &Cursor{
		results: make(chan Hit, 32),
		errCh:   make(chan error, 1),
		quit:    make(chan struct{}),
	}
	go t.produceCursor(c, min, max, flags, dir)
	return c
}

func (t *Trie) produceCursor(c *Cursor, min, max []byte, flags RangeFlags, dir Direction) {
	defer close(c.results)
	if t.root == 0 {
		return
	}
	var walk func(ref nodeRef) (stop bool)
	walk = func(ref nodeRef) bool {
		n, err := t.readNode(ref)
		if err != nil {
			select {
			case c.errCh <- err:
			default:
			}
			return true
		}
		if n.isLeaf {
			key, err := t.keyOf(n)
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return true
			}
			inRange, stop := boundsCheck(key, min, max, flags, dir)
			if stop {
				return true
			}
			if !inRange {
				return false
			}
			select {
			case c.results <- Hit{ID: ID(n.left), Key: append([]byte(nil), key...)}:
				return false
			case <-c.quit:
				return true
			}
		}
		first, second := n.left, n.right
		if dir == Descending {
			first, second = n.right, n.left
		}
		if walk(first) {
			return true
		}
		return walk(second)
	}
	walk(t.root)
}

// boundsCheck reports whether key lies within [min,max] (honoring
// GT/LT exclusivity) and whether the traversal should stop entirely: once
// an ascending walk yields a key past max, or a descending walk yields a
// key before min, no later key in traversal order can re-enter the range.
func boundsCheck(key, min, max []byte, flags RangeFlags, dir Direction) (inRange, stop bool) {
	if min != nil {
		cmp := bytes.Compare(key, min)
		if cmp < 0 || (cmp == 0 && flags&FlagGT != 0) {
			if dir == Descending {
				return false, true
			}
			return false, false
		}
	}
	if max != nil {
		cmp := bytes.Compare(key, max)
		if cmp > 0 || (cmp == 0 && flags&FlagLT != 0) {
			if dir == Ascending {
				return false, true
			}
			return false, false
		}
	}
	return true, false
}

// Next returns the next key/id pair, or a wrapped status.ErrEndOfData
// once the cursor is exhausted.
func (c *Cursor) Next() (Hit, error) {
	select {
	case err := <-c.errCh:
		return Hit{}, fmt.Errorf("pat: cursor: %w", err)
	case h, ok := <-c.results:
		if !ok {
			select {
			case err := <-c.errCh:
				return Hit{}, fmt.Errorf("pat: cursor: %w", err)
			default:
			}
			return Hit{}, fmt.Errorf("pat: cursor exhausted: %w", status.ErrEndOfData)
		}
		return h, nil
	}
}

// Close releases the cursor's background traversal goroutine. Safe to
// call after the cursor has already been drained.
func (c *Cursor) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
}
