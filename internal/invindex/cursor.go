package invindex

import (
	"fmt"

	"github.com/ryogrid/ftsengine/internal/status"
)

// Hit is one posting yielded by a Cursor, with its positions truncated to
// the cursor's max_positions cap (spec.md §4.3).
type Hit struct {
	RID       int64
	Section   int32
	Positions []int32
	Weight    int32
}

// Cursor iterates a term's posting list ascending by (rid, section,
// position), bounded to [ridMin, ridMax] and capping the number of
// positions reported per posting.
type Cursor struct {
	hits []Hit
	i    int
}

// OpenCursor opens a cursor over term's postings. ridMax <= 0 means
// unbounded. maxPositions <= 0 means unbounded.
func (idx *Index) OpenCursor(term []byte, ridMin, ridMax int64, maxPositions int) (*Cursor, error) {
	postings, err := idx.Postings(term)
	if err != nil {
		return nil, err
	}
	c := &Cursor{}
	for _, p := range postings {
		if p.RID < ridMin {
			continue
		}
		if ridMax > 0 && p.RID > ridMax {
			continue
		}
		positions := p.Positions
		if maxPositions > 0 && len(positions) > maxPositions {
			positions = positions[:maxPositions]
		}
		c.hits = append(c.hits, Hit{RID: p.RID, Section: p.Section, Positions: positions, Weight: p.Weight})
	}
	return c, nil
}

// Next returns the next hit, or an EndOfData-wrapped error once exhausted.
func (c *Cursor) Next() (Hit, error) {
	if c.i >= len(c.hits) {
		return Hit{}, fmt.Errorf("invindex: cursor exhausted: %w", status.ErrEndOfData)
	}
	h := c.hits[c.i]
	c.i++
	return h, nil
}
