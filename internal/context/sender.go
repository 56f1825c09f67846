package context

import (
	"encoding/binary"
	"io"
)

// StdoutSender writes result bytes straight through to an io.Writer with
// no framing, for the standalone REPL (spec.md §6's `-a` mode).
type StdoutSender struct {
	W io.Writer
}

func (s *StdoutSender) Send(data []byte, _ Status) error {
	_, err := s.W.Write(data)
	return err
}

// gqtpProto identifies the GQTP line protocol in a frame header.
const gqtpProto = 0x47515450 // "GQTP"

// gqtpHeaderSize is the fixed size of a GQTP response frame header:
// proto(4) qtype(1) flags(1) status(2) size(4).
const gqtpHeaderSize = 12

// GQTP frame flags, toggled by a context's status.
const (
	gqtpFlagMore byte = 1 << iota
	gqtpFlagTail
)

// SocketSender frames each Send call as a GQTP response, setting the MORE
// flag while the context has additional output pending and TAIL on the
// final chunk (spec.md §4.5's per-connection context paragraph).
type SocketSender struct {
	W io.Writer
}

func (s *SocketSender) Send(data []byte, st Status) error {
	header := make([]byte, gqtpHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], gqtpProto)
	header[4] = 0 // qtype: plain result
	header[5] = gqtpFlagsFor(st)
	binary.BigEndian.PutUint16(header[6:8], 0) // status: success
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	if _, err := s.W.Write(header); err != nil {
		return err
	}
	_, err := s.W.Write(data)
	return err
}

func gqtpFlagsFor(st Status) byte {
	switch st {
	case StatusMore:
		return gqtpFlagMore
	case StatusTail:
		return gqtpFlagTail
	default:
		return 0
	}
}
