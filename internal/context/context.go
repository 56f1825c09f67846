// Package context implements the per-task Context of spec.md §3/§9: a
// handle carrying the active text encoding, mode flags, a scratch output
// buffer, a result callback, and status (running/more/tail/quit). Output
// goes through whichever Sender the caller installed — a plain stdout
// writer for the standalone REPL, or a framed GQTP socket writer for the
// dispatch server — instead of the cyclic function-pointer + opaque-pointer
// callback spec.md §9 describes in the original. The core packages (PAT,
// hash, inverted index, snip, cache) do not take a Context; they return
// their results to the caller directly.
package context

import (
	"github.com/ryogrid/ftsengine/internal/bufferpool"
)

// Encoding selects the text encoding a Context interprets keys/values
// under (spec.md §6's `-e` flag: n/e/u/s/l/k).
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingEUCJP
	EncodingUTF8
	EncodingSJIS
	EncodingLatin1
	EncodingKOI8R
)

// ParseEncoding maps a `-e` flag letter to an Encoding, defaulting to
// EncodingUTF8 for an unrecognized or empty letter.
func ParseEncoding(letter string) Encoding {
	switch letter {
	case "n":
		return EncodingNone
	case "e":
		return EncodingEUCJP
	case "u":
		return EncodingUTF8
	case "s":
		return EncodingSJIS
	case "l":
		return EncodingLatin1
	case "k":
		return EncodingKOI8R
	default:
		return EncodingUTF8
	}
}

// Flags are per-context mode flags (spec.md §3).
type Flags uint32

// Status is a Context's current lifecycle state (spec.md §3).
type Status int

const (
	StatusRunning Status = iota
	StatusMore
	StatusTail
	StatusQuit
)

// Sender is the capability trait spec.md §9's "callback-based send
// handler" design note asks to express as a trait rather than a raw
// function-pointer + opaque-pointer pair: something a Context can push
// result bytes through.
type Sender interface {
	Send(data []byte, status Status) error
}

// Context is a per-task handle.
type Context struct {
	Encoding Encoding
	Flags    Flags
	Status   Status

	buf    *bufferpool.Buffer
	sender Sender
}

// New creates a Context with the given encoding/flags, writing through
// sender, with an scratch buffer pre-sized to hint bytes.
func New(enc Encoding, flags Flags, sender Sender, hint int) *Context {
	return &Context{
		Encoding: enc,
		Flags:    flags,
		Status:   StatusRunning,
		buf:      bufferpool.New(hint),
		sender:   sender,
	}
}

// Buffer returns the Context's scratch output buffer.
func (c *Context) Buffer() *bufferpool.Buffer { return c.buf }

// Flush sends the scratch buffer's contents through the installed Sender
// and clears it. On explicit request (more output still pending) the chunk
// is sent with StatusMore and the status stays StatusMore; otherwise it is
// sent with StatusTail (end of this result) and the status is then reset
// to StatusRunning.
func (c *Context) Flush(more bool) error {
	if more {
		c.Status = StatusMore
	} else {
		c.Status = StatusTail
	}
	if err := c.sender.Send(c.buf.AsSlice(), c.Status); err != nil {
		return err
	}
	c.buf.Clear()
	if !more {
		c.Status = StatusRunning
	}
	return nil
}

// Quit marks the context as finished; the server tears it down on the
// next opportunity (spec.md §4.5's "on QUIT, mark the connection closing
// and tear down the context").
func (c *Context) Quit() { c.Status = StatusQuit }
