// Package snip implements the keyword-conditioned windowed snippet
// extractor of spec.md §4.4: given up to MaxConds keyword conditions, it
// finds every match in a text, proposes a width-bounded window around each,
// folds a match that lies inside an earlier match's window into that
// window's result, and renders each resulting window with its
// matches wrapped in (possibly per-condition) open/close tags.
package snip

import (
	"fmt"

	"github.com/ryogrid/ftsengine/internal/status"
)

// Flags configure a Snip's behavior (spec.md §4.4/glossary).
type Flags uint32

const (
	// Normalize folds case and Unicode-compatible forms uniformly in both
	// text and keyword before matching, and additionally strips whitespace
	// so a keyword spanning a line-wrap in the source text still matches
	// (the UTF-8 sample text in spec.md §8 scenario 6 depends on this: its
	// keyword spans a newline introduced by line-wrapping).
	Normalize Flags = 1 << iota
	// CopyTag means tag byte slices passed to AddCond are copied rather
	// than referenced, so the caller may reuse its buffers afterwards.
	CopyTag
	// SkipLeadingSpaces advances a proposed window's start past leading
	// whitespace.
	SkipLeadingSpaces
)

// MaxConds is the maximum number of conditions a Snip may hold.
const MaxConds = 32

// MaxResults is the maximum number of results a Snip may report.
const MaxResults = 16

// Mapping remaps non-keyword bytes when rendering a result (spec.md §4.4's
// "get_result" mapping callback). Only HTMLMapping is provided, matching
// the teacher corpus's single built-in mapping.
type Mapping func(b byte) string

// HTMLMapping escapes &, <, >, " to their HTML entities and passes every
// other byte through verbatim.
func HTMLMapping(b byte) string {
	switch b {
	case '&':
		return "&amp;"
	case '<':
		return "&lt;"
	case '>':
		return "&gt;"
	case '"':
		return "&quot;"
	default:
		return string(b)
	}
}

// Condition is one keyword to search for, with its own open/close tags
// (empty tags fall back to the Snip's defaults).
type Condition struct {
	Keyword  []byte
	OpenTag  []byte
	CloseTag []byte
}

// Snip is a configured snippet extractor, reusable across many Exec calls.
type Snip struct {
	flags      Flags
	width      int
	maxResults int
	defOpen    []byte
	defClose   []byte
	mapping    Mapping
	conds      []Condition

	text    []byte
	results []result
}

type matchSpan struct {
	start, end int // byte range of the raw match in text
	condIdx    int
}

type result struct {
	start, end int // byte range of the window in text
	matches    []matchSpan
	taggedLen  int
}

// New creates a Snip. maxResults must be in [1, MaxResults].
func New(flags Flags, width, maxResults int, defaultOpen, defaultClose []byte, mapping Mapping) (*Snip, error) {
	if maxResults < 1 || maxResults > MaxResults {
		return nil, errInvalidArg("max_results out of range")
	}
	if width <= 0 {
		return nil, errInvalidArg("width must be positive")
	}
	return &Snip{
		flags: flags, width: width, maxResults: maxResults,
		defOpen: defaultOpen, defClose: defaultClose, mapping: mapping,
	}, nil
}

// AddCond registers a condition. Empty tags fall back to the Snip's
// defaults; keyword length must be <= width.
func (s *Snip) AddCond(keyword, openTag, closeTag []byte) error {
	if len(keyword) == 0 {
		return errInvalidArg("empty keyword")
	}
	if len(keyword) > s.width {
		return errInvalidArg("keyword longer than width")
	}
	if len(s.conds) >= MaxConds {
		return errInvalidArg("too many conditions")
	}
	c := Condition{Keyword: keyword, OpenTag: openTag, CloseTag: closeTag}
	if s.flags&CopyTag != 0 {
		c.OpenTag = append([]byte(nil), openTag...)
		c.CloseTag = append([]byte(nil), closeTag...)
	}
	if len(c.OpenTag) == 0 {
		c.OpenTag = s.defOpen
	}
	if len(c.CloseTag) == 0 {
		c.CloseTag = s.defClose
	}
	s.conds = append(s.conds, c)
	return nil
}

func errInvalidArg(msg string) error {
	return fmt.Errorf("snip: %s: %w", msg, status.ErrInvalidArg)
}
