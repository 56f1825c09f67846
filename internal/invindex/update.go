package invindex

import (
	"sort"

	"github.com/ryogrid/ftsengine/internal/pat"
)

// FieldValue is one chunk of text contributing to a record's indexed
// content, with its own weight (spec.md §4.3's per-value weighting).
type FieldValue struct {
	Bytes  []byte
	Weight int32
}

// Values is the ordered content passed to Update for one side (old or new)
// of a record's section.
type Values []FieldValue

// termOccurrence is the set of positions (and the weight in effect at those
// positions) a single term takes across one Values slice.
type termOccurrence struct {
	positions []int32
	weight    int32
}

func extractTerms(vs Values) map[string]*termOccurrence {
	out := map[string]*termOccurrence{}
	var pos int32
	for _, fv := range vs {
		toks := tokenize(fv.Bytes, pos)
		for _, tk := range toks {
			key := string(tk.term)
			occ, ok := out[key]
			if !ok {
				occ = &termOccurrence{weight: fv.Weight}
				out[key] = occ
			}
			occ.positions = append(occ.positions, tk.pos)
			pos = tk.pos + 1
		}
	}
	return out
}

// Update applies spec.md §4.3's diff-based postings maintenance for one
// record's section: term-ids present in old but not new have their posting
// for (rid, section) removed, term-ids present in new but not old get a
// fresh posting inserted, and term-ids present in both have their posting
// rewritten if positions changed. A missing side (nil Values) is treated as
// empty, so Update(rid, section, nil, new) is a pure insert and
// Update(rid, section, old, nil) a pure delete.
func (idx *Index) Update(rid int64, section int32, old, new Values) error {
	oldTerms := extractTerms(old)
	newTerms := extractTerms(new)

	for term, occ := range oldTerms {
		id, err := idx.lex.Lookup([]byte(term), 0)
		if err != nil {
			// Not in the lexicon at all: nothing was ever indexed for it.
			continue
		}
		if newOcc, ok := newTerms[term]; ok {
			if !sameOccurrence(occ, newOcc) {
				if err := idx.rewritePosting(id, rid, section, newOcc); err != nil {
					return err
				}
			}
			delete(newTerms, term)
		} else {
			if err := idx.removePosting(id, rid, section); err != nil {
				return err
			}
		}
	}
	for term, occ := range newTerms {
		id, err := idx.lex.Lookup([]byte(term), pat.FlagAdd)
		if err != nil {
			return err
		}
		if err := idx.rewritePosting(id, rid, section, occ); err != nil {
			return err
		}
	}
	return nil
}

func sameOccurrence(a, b *termOccurrence) bool {
	if a.weight != b.weight || len(a.positions) != len(b.positions) {
		return false
	}
	for i := range a.positions {
		if a.positions[i] != b.positions[i] {
			return false
		}
	}
	return true
}

// rewritePosting replaces the (rid, section) posting for a term with the
// given occurrence, inserting it if absent.
func (idx *Index) rewritePosting(id pat.ID, rid int64, section int32, occ *termOccurrence) error {
	postings, err := idx.postingsOf(id)
	if err != nil {
		return err
	}
	replaced := false
	for i := range postings {
		if postings[i].RID == rid && postings[i].Section == section {
			postings[i].Positions = occ.positions
			postings[i].Weight = occ.weight
			replaced = true
			break
		}
	}
	if !replaced {
		postings = append(postings, Posting{RID: rid, Section: section, Positions: occ.positions, Weight: occ.weight})
	}
	sortPostings(postings)
	return idx.setPostings(id, postings)
}

func (idx *Index) removePosting(id pat.ID, rid int64, section int32) error {
	postings, err := idx.postingsOf(id)
	if err != nil {
		return err
	}
	out := postings[:0]
	for _, p := range postings {
		if p.RID == rid && p.Section == section {
			continue
		}
		out = append(out, p)
	}
	return idx.setPostings(id, out)
}

func sortPostings(postings []Posting) {
	sort.Slice(postings, func(i, j int) bool {
		if postings[i].RID != postings[j].RID {
			return postings[i].RID < postings[j].RID
		}
		return postings[i].Section < postings[j].Section
	})
}

// Postings returns the full current posting list for a term, ascending by
// (rid, section). Used directly by callers that don't need a bounded
// Cursor (e.g. computing a term's document frequency).
func (idx *Index) Postings(term []byte) ([]Posting, error) {
	id, err := idx.lex.Lookup(term, 0)
	if err != nil {
		return nil, nil
	}
	return idx.postingsOf(id)
}
