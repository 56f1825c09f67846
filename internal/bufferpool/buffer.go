// Package bufferpool implements the append-only scratch buffer design note
// of spec.md §9: the engine's "manual variable-size bulk buffer" expressed
// as a small, reusable abstraction instead of a raw pointer-and-length pair.
package bufferpool

// Buffer is an append-only byte buffer with O(1) amortized append and a
// cheap reset, used as a Context's scratch output buffer and as the
// per-connection read accumulator in the dispatch server.
type Buffer struct {
	data []byte
}

// New returns a Buffer pre-sized to hint bytes of capacity.
func New(hint int) *Buffer {
	if hint < 0 {
		hint = 0
	}
	return &Buffer{data: make([]byte, 0, hint)}
}

// Clear empties the buffer without releasing its backing array.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
}

// Append copies p onto the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.data = append(b.data, c)
}

// AppendString copies s onto the end of the buffer.
func (b *Buffer) AppendString(s string) {
	b.data = append(b.data, s...)
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data)
}

// AsSlice returns the buffered bytes. The slice is invalidated by the next
// Append or Clear call; callers that need to retain it must copy.
func (b *Buffer) AsSlice() []byte {
	return b.data
}

// Consume removes the first n bytes from the front of the buffer, shifting
// the remainder down. Used by the server's per-connection read buffer to
// drop a fully-decoded frame while preserving any trailing partial frame.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}
