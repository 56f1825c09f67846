package cache

import (
	"encoding/binary"
	"errors"

	"github.com/ryogrid/ftsengine/internal/status"
)

// Opcode is an MBREQ (binary memcached) command code.
type Opcode uint8

const (
	OpGet       Opcode = 0x00
	OpSet       Opcode = 0x01
	OpAdd       Opcode = 0x02
	OpReplace   Opcode = 0x03
	OpDelete    Opcode = 0x04
	OpIncrement Opcode = 0x05
	OpDecrement Opcode = 0x06
	OpQuit      Opcode = 0x07
	OpFlush     Opcode = 0x08
	OpGetQ      Opcode = 0x09
	OpNoop      Opcode = 0x0a
	OpVersion   Opcode = 0x0b
	OpGetK      Opcode = 0x0c
	OpGetKQ     Opcode = 0x0d
	OpAppend    Opcode = 0x0e
	OpPrepend   Opcode = 0x0f
)

// Status is an MBREQ response status code.
type Status uint16

const (
	StatusSuccess        Status = 0x0000
	StatusKeyENOENT      Status = 0x0001
	StatusKeyEEXISTS     Status = 0x0002
	StatusValueTooLarge  Status = 0x0003
	StatusInvalidArgs    Status = 0x0004
	StatusItemNotStored  Status = 0x0005
	StatusNonNumeric     Status = 0x0006
	StatusUnknownCommand Status = 0x0081
	StatusOutOfMemory    Status = 0x0082
)

// Request is a decoded MBREQ request relevant to cache dispatch.
type Request struct {
	Opcode Opcode
	Key    []byte
	Extras []byte // flags(4)|expire(4) for SET/ADD/REPLACE
	Val    []byte
	Opaque uint32
	CAS    uint64
}

// Response is the cache table's reply to a Request, ready for the server's
// MBREQ framer to wrap in a wire header.
type Response struct {
	Status Status
	Extras []byte // flags(4) on a GET/GETK hit
	Key    []byte // echoed back on GETK/GETKQ
	Value  []byte
	Opaque uint32
	CAS    uint64 // written big-endian by the server's MBREQ framer, never host-order raw
	Closed bool   // true on QUIT: caller should close the connection
}

// CASBytes renders a CAS value in network (big-endian) byte order, the
// wire order spec.md §9's resolved Open Question requires (the origin
// implementation echoed it in host order, which breaks cross-architecture
// cache-consistency checks on a big-endian client).
func CASBytes(cas int64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(cas))
	return b
}

// Dispatch executes one MBREQ request against table and returns the
// response, implementing spec.md §4.6's opcode semantics. Opcodes with no
// defined cache behavior (DELETE/INCREMENT/DECREMENT/FLUSH/GETQ/NOOP/
// VERSION/APPEND/PREPEND/GETKQ) are deliberately left stubbed at
// UNKNOWN_COMMAND rather than guessed at, per spec.md §9's resolved Open
// Question.
func Dispatch(table *Table, req Request) Response {
	switch req.Opcode {
	case OpGet, OpGetK:
		e, err := table.Get(req.Key)
		if err != nil {
			return Response{Status: StatusKeyENOENT, Opaque: req.Opaque}
		}
		resp := Response{
			Status: StatusSuccess,
			Extras: flagsBytes(e.Flags),
			Value:  e.Value,
			Opaque: req.Opaque,
			CAS:    uint64(e.CAS),
		}
		if req.Opcode == OpGetK {
			resp.Key = req.Key
		}
		return resp

	case OpSet, OpAdd, OpReplace:
		if len(req.Extras) < 8 {
			return Response{Status: StatusInvalidArgs, Opaque: req.Opaque}
		}
		flags := binary.BigEndian.Uint32(req.Extras[0:4])
		expire := binary.BigEndian.Uint32(req.Extras[4:8])
		var (
			cas int64
			err error
		)
		switch req.Opcode {
		case OpSet:
			cas, err = table.Set(req.Key, req.Val, flags, expire)
		case OpAdd:
			cas, err = table.Add(req.Key, req.Val, flags, expire)
		case OpReplace:
			cas, err = table.Replace(req.Key, req.Val, flags, expire)
		}
		if err != nil {
			return Response{Status: statusOf(err), Opaque: req.Opaque}
		}
		return Response{Status: StatusSuccess, Opaque: req.Opaque, CAS: uint64(cas)}

	case OpQuit:
		return Response{Status: StatusSuccess, Opaque: req.Opaque, Closed: true}

	default:
		return Response{Status: StatusUnknownCommand, Opaque: req.Opaque}
	}
}

func flagsBytes(flags uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, flags)
	return b
}

// statusOf maps a cache table error to its MBREQ status, covering exactly
// the two documented failure cases of SET/ADD/REPLACE (spec.md §4.6):
// ADD against an existing key, REPLACE against an absent one.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, status.ErrAlreadyExists):
		return StatusKeyEEXISTS
	case errors.Is(err, status.ErrNotFound):
		return StatusKeyENOENT
	default:
		return StatusInvalidArgs
	}
}
