package snip

import (
	"sort"
	"strings"
)

// GetResult renders result index i: the window's original text with each
// match replaced inline by open_tag + match_bytes + close_tag. If a mapping
// is installed, non-keyword bytes pass through it; keyword spans never are.
func (s *Snip) GetResult(i int) (string, error) {
	if i < 0 || i >= len(s.results) {
		return "", errInvalidArg("result index out of range")
	}
	r := s.results[i]
	matches := append([]matchSpan(nil), r.matches...)
	sort.Slice(matches, func(a, b int) bool { return matches[a].start < matches[b].start })

	var b strings.Builder
	pos := r.start
	for _, m := range matches {
		s.writePlain(&b, pos, m.start)
		c := s.conds[m.condIdx]
		b.Write(c.OpenTag)
		b.Write(s.text[m.start:m.end])
		b.Write(c.CloseTag)
		pos = m.end
	}
	s.writePlain(&b, pos, r.end)
	return b.String(), nil
}

// writePlain appends text[from:to] to b, passing each byte through the
// installed mapping if any.
func (s *Snip) writePlain(b *strings.Builder, from, to int) {
	if from >= to {
		return
	}
	if s.mapping == nil {
		b.Write(s.text[from:to])
		return
	}
	for _, c := range s.text[from:to] {
		b.WriteString(s.mapping(c))
	}
}
