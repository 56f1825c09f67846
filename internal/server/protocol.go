package server

import (
	"encoding/binary"
	"fmt"
)

// gqtpProto identifies the line protocol in a frame header (spec.md
// §4.5): the literal bytes "GQTP" read as a big-endian uint32.
const gqtpProto uint32 = 0x47515450

// gqtpHeaderSize is the fixed size of a GQTP header: proto(4) qtype(1)
// flags(1) status(2) size(4).
const gqtpHeaderSize = 12

// GQTP frame flags.
const (
	gqtpFlagMore byte = 1 << iota
	gqtpFlagTail
)

// gqtpStatusOverload is returned when the enqueue back-off of spec.md
// §4.5 is exhausted and the message must be dropped.
const gqtpStatusOverload uint16 = 1

type gqtpHeader struct {
	qtype  byte
	flags  byte
	status uint16
	size   uint32
}

func decodeGQTPHeader(b []byte) (gqtpHeader, error) {
	if len(b) < gqtpHeaderSize {
		return gqtpHeader{}, fmt.Errorf("server: short gqtp header (%d bytes)", len(b))
	}
	if binary.BigEndian.Uint32(b[0:4]) != gqtpProto {
		return gqtpHeader{}, fmt.Errorf("server: bad gqtp magic %x", b[0:4])
	}
	return gqtpHeader{
		qtype:  b[4],
		flags:  b[5],
		status: binary.BigEndian.Uint16(b[6:8]),
		size:   binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

func encodeGQTPFrame(qtype, flags byte, status uint16, body []byte) []byte {
	out := make([]byte, gqtpHeaderSize+len(body))
	putU32(out[0:4], gqtpProto)
	out[4] = qtype
	out[5] = flags
	putU16(out[6:8], status)
	putU32(out[8:12], uint32(len(body)))
	copy(out[gqtpHeaderSize:], body)
	return out
}

// mbreqMagic is the binary protocol's request magic byte (spec.md §4.5:
// "magic=MBREQ"), matching the real memcached binary protocol's 0x80
// request magic so the server can sniff a connection's protocol from its
// first byte.
const mbreqMagic byte = 0x80

// mbreqHeaderSize is the fixed 24-byte binary header: magic(1) opcode(1)
// keylen(2) extralen(1) 0(1) status(2) size(4) opaque(4) cas(8).
const mbreqHeaderSize = 24

type mbreqHeader struct {
	opcode   byte
	keyLen   uint16
	extraLen byte
	status   uint16
	bodyLen  uint32
	opaque   uint32
	cas      uint64
}

func decodeMBREQHeader(b []byte) (mbreqHeader, error) {
	if len(b) < mbreqHeaderSize {
		return mbreqHeader{}, fmt.Errorf("server: short mbreq header (%d bytes)", len(b))
	}
	if b[0] != mbreqMagic {
		return mbreqHeader{}, fmt.Errorf("server: bad mbreq magic %x", b[0])
	}
	return mbreqHeader{
		opcode:   b[1],
		keyLen:   binary.BigEndian.Uint16(b[2:4]),
		extraLen: b[4],
		status:   binary.BigEndian.Uint16(b[6:8]),
		bodyLen:  binary.BigEndian.Uint32(b[8:12]),
		opaque:   binary.BigEndian.Uint32(b[12:16]),
		cas:      binary.BigEndian.Uint64(b[16:24]),
	}, nil
}

func encodeMBREQResponse(opcode byte, status uint16, extras, key, value []byte, opaque uint32, cas uint64) []byte {
	bodyLen := len(extras) + len(key) + len(value)
	out := make([]byte, mbreqHeaderSize+bodyLen)
	out[0] = mbreqMagic
	out[1] = opcode
	putU16(out[2:4], uint16(len(key)))
	out[4] = byte(len(extras))
	out[5] = 0
	putU16(out[6:8], status)
	putU32(out[8:12], uint32(bodyLen))
	putU32(out[12:16], opaque)
	putU64(out[16:24], cas)
	off := mbreqHeaderSize
	off += copy(out[off:], extras)
	off += copy(out[off:], key)
	copy(out[off:], value)
	return out
}

func putU16(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func putU32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func putU64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
