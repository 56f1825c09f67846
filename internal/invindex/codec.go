package invindex

import "github.com/ryogrid/ftsengine/internal/segment"

// encodePostings serializes a posting list, ascending by (rid, section,
// position), into a flat chunk blob:
//
//	count   uint32
//	per posting: rid int64, section uint32, weight uint32, tf uint32,
//	             tf * position uint32
func encodePostings(postings []Posting) []byte {
	size := 4
	for _, p := range postings {
		size += 8 + 4 + 4 + 4 + 4*len(p.Positions)
	}
	b := make([]byte, size)
	segment.PutUint32(b, 0, uint32(len(postings)))
	off := 4
	for _, p := range postings {
		segment.PutUint64(b, off, uint64(p.RID))
		segment.PutUint32(b, off+8, uint32(p.Section))
		segment.PutUint32(b, off+12, uint32(p.Weight))
		segment.PutUint32(b, off+16, uint32(len(p.Positions)))
		off += 20
		for _, pos := range p.Positions {
			segment.PutUint32(b, off, uint32(pos))
			off += 4
		}
	}
	return b
}

func decodePostings(b []byte) ([]Posting, error) {
	if len(b) < 4 {
		return nil, nil
	}
	n := int(segment.GetUint32(b, 0))
	out := make([]Posting, 0, n)
	off := 4
	for i := 0; i < n; i++ {
		rid := int64(segment.GetUint64(b, off))
		section := int32(segment.GetUint32(b, off+8))
		weight := int32(segment.GetUint32(b, off+12))
		tf := int(segment.GetUint32(b, off+16))
		off += 20
		positions := make([]int32, tf)
		for j := 0; j < tf; j++ {
			positions[j] = int32(segment.GetUint32(b, off))
			off += 4
		}
		out = append(out, Posting{RID: rid, Section: section, Positions: positions, Weight: weight})
	}
	return out, nil
}
