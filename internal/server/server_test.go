package server

import (
	"context"
	"encoding/binary"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ryogrid/ftsengine/internal/database"
)

func newTestServer(t *testing.T) (*Server, net.Listener, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	db, err := database.Create(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)

	srv := New(ln, db, EchoQL{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(done)
	}()

	cleanup := func() {
		cancel()
		<-done
		db.Close()
	}
	return srv, ln, cleanup
}

func buildMBREQRequest(opcode byte, extras, key, val []byte, opaque uint32) []byte {
	bodyLen := len(extras) + len(key) + len(val)
	out := make([]byte, mbreqHeaderSize+bodyLen)
	out[0] = mbreqMagic
	out[1] = opcode
	binary.BigEndian.PutUint16(out[2:4], uint16(len(key)))
	out[4] = byte(len(extras))
	binary.BigEndian.PutUint32(out[8:12], uint32(bodyLen))
	binary.BigEndian.PutUint32(out[12:16], opaque)
	off := mbreqHeaderSize
	off += copy(out[off:], extras)
	off += copy(out[off:], key)
	copy(out[off:], val)
	return out
}

func buildGQTPRequest(qtype byte, body []byte) []byte {
	out := make([]byte, gqtpHeaderSize+len(body))
	binary.BigEndian.PutUint32(out[0:4], gqtpProto)
	out[4] = qtype
	binary.BigEndian.PutUint32(out[8:12], uint32(len(body)))
	copy(out[gqtpHeaderSize:], body)
	return out
}

func TestMBREQSetThenGetOverWire(t *testing.T) {
	_, ln, cleanup := newTestServer(t)
	defer cleanup()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	extras := make([]byte, 8) // flags=0, expire=0
	req := buildMBREQRequest(0x01, extras, []byte("k"), []byte("v"), 1)
	_, err = conn.Write(req)
	require.NoError(t, err)

	header := make([]byte, mbreqHeaderSize)
	_, err = readFull(conn, header)
	require.NoError(t, err)
	require.Equal(t, byte(mbreqMagic), header[0])
	status := binary.BigEndian.Uint16(header[6:8])
	require.Equal(t, uint16(0), status)

	getReq := buildMBREQRequest(0x00, nil, []byte("k"), nil, 2)
	_, err = conn.Write(getReq)
	require.NoError(t, err)

	_, err = readFull(conn, header)
	require.NoError(t, err)
	bodyLen := binary.BigEndian.Uint32(header[8:12])
	body := make([]byte, bodyLen)
	_, err = readFull(conn, body)
	require.NoError(t, err)
	require.Equal(t, "v", string(body[4:])) // 4-byte flags extras, then value
}

func TestGQTPEchoOverWire(t *testing.T) {
	_, ln, cleanup := newTestServer(t)
	defer cleanup()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	req := buildGQTPRequest(0, []byte("select 1"))
	_, err = conn.Write(req)
	require.NoError(t, err)

	header := make([]byte, gqtpHeaderSize)
	_, err = readFull(conn, header)
	require.NoError(t, err)
	size := binary.BigEndian.Uint32(header[8:12])
	body := make([]byte, size)
	_, err = readFull(conn, body)
	require.NoError(t, err)
	require.Equal(t, "select 1", string(body))
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
