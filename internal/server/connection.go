package server

import (
	"context"
	"net"

	"github.com/ryogrid/ftsengine/internal/bufferpool"
	"github.com/ryogrid/ftsengine/internal/cache"
	fctx "github.com/ryogrid/ftsengine/internal/context"
)

// status is a per-connection object's lifecycle state (spec.md §4.5's
// "per-connection object").
type status int

const (
	statusIdle status = iota
	statusReading
	statusWriting
	statusClosing
)

// connection is the per-connection object of spec.md §4.5: a read
// accumulator, a lifecycle status, and (once the first message arrives) a
// per-task context with QL loaded and the shared database associated.
type connection struct {
	conn   net.Conn
	read   *bufferpool.Buffer
	status status
	fc     *fctx.Context
}

func newConnection(conn net.Conn) *connection {
	return &connection{conn: conn, read: bufferpool.New(4096), status: statusIdle}
}

func (c *connection) close() {
	c.status = statusClosing
	if c.fc != nil {
		c.fc.Quit()
	}
	c.conn.Close()
}

// fill reads whatever is immediately available into the read buffer.
func (c *connection) fill() (int, error) {
	tmp := make([]byte, 4096)
	n, err := c.conn.Read(tmp)
	if n > 0 {
		c.read.Append(tmp[:n])
	}
	return n, err
}

// hasBufferedFrame reports whether a complete frame is already sitting in
// the read buffer (a pipelined request arrived in the same Read as the
// one just served).
func (c *connection) hasBufferedFrame() (bool, error) {
	buf := c.read.AsSlice()
	if len(buf) == 0 {
		return false, nil
	}
	if buf[0] == mbreqMagic {
		if len(buf) < mbreqHeaderSize {
			return false, nil
		}
		h, err := decodeMBREQHeader(buf)
		if err != nil {
			return false, err
		}
		return len(buf) >= mbreqHeaderSize+int(h.bodyLen), nil
	}
	if len(buf) < gqtpHeaderSize {
		return false, nil
	}
	h, err := decodeGQTPHeader(buf)
	if err != nil {
		return false, err
	}
	return len(buf) >= gqtpHeaderSize+int(h.size), nil
}

// serveOne reads (blocking if necessary), decodes, and dispatches exactly
// one frame, reporting whether the connection should stay open for
// another message.
func (c *connection) serveOne(s *Server) (bool, error) {
	c.status = statusReading
	for {
		ready, err := c.hasBufferedFrame()
		if err != nil {
			return false, err
		}
		if ready {
			break
		}
		if _, err := c.fill(); err != nil {
			return false, err
		}
	}

	buf := c.read.AsSlice()
	if buf[0] == mbreqMagic {
		return c.serveMBREQ(s, buf)
	}
	return c.serveGQTP(s, buf)
}

func (c *connection) serveMBREQ(s *Server, buf []byte) (bool, error) {
	h, err := decodeMBREQHeader(buf)
	if err != nil {
		return false, err
	}
	frameLen := mbreqHeaderSize + int(h.bodyLen)
	body := buf[mbreqHeaderSize:frameLen]
	extras := body[:h.extraLen]
	key := body[uint16(h.extraLen) : uint16(h.extraLen)+h.keyLen]
	val := body[uint16(h.extraLen)+h.keyLen:]

	tbl, err := s.sharedCache()
	if err != nil {
		return false, err
	}
	resp := cache.Dispatch(tbl, cache.Request{
		Opcode: cache.Opcode(h.opcode),
		Key:    key,
		Extras: extras,
		Val:    val,
		Opaque: h.opaque,
		CAS:    h.cas,
	})

	c.status = statusWriting
	out := encodeMBREQResponse(h.opcode, uint16(resp.Status), resp.Extras, resp.Key, resp.Value, resp.Opaque, resp.CAS)
	if _, err := c.conn.Write(out); err != nil {
		return false, err
	}
	c.read.Consume(frameLen)
	c.status = statusIdle
	return !resp.Closed, nil
}

func (c *connection) serveGQTP(s *Server, buf []byte) (bool, error) {
	h, err := decodeGQTPHeader(buf)
	if err != nil {
		return false, err
	}
	frameLen := gqtpHeaderSize + int(h.size)
	body := append([]byte(nil), buf[gqtpHeaderSize:frameLen]...)

	if c.fc == nil {
		c.fc = fctx.New(fctx.EncodingUTF8, 0, &fctx.SocketSender{W: c.conn}, 256)
	}

	c.status = statusWriting
	quit := h.qtype == 'Q' // QUIT qtype, per spec.md §4.5's dispatch rule
	var reply []byte
	if quit {
		c.fc.Quit()
	} else {
		reply, err = s.ql.Execute(context.Background(), c.fc, body, h.flags)
		if err != nil {
			return false, err
		}
	}
	out := encodeGQTPFrame(h.qtype, gqtpFlagTail, 0, reply)
	if _, err := c.conn.Write(out); err != nil {
		return false, err
	}
	c.read.Consume(frameLen)
	c.status = statusIdle
	return !quit, nil
}
