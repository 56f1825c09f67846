package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	base := filepath.Join(t.TempDir(), "t")
	tbl, err := Create(base)
	require.NoError(t, err)
	return tbl
}

// spec.md §8 scenario 7: SET then GET returns SUCCESS then the value
// prefixed by flags/extralen=4; GET on an absent key returns KEY_ENOENT.
func TestSetThenGetViaDispatch(t *testing.T) {
	tbl := newTestTable(t)

	setResp := Dispatch(tbl, Request{
		Opcode: OpSet,
		Key:    []byte("k"),
		Extras: extras(7, 0),
		Val:    []byte("v"),
		Opaque: 1,
	})
	require.Equal(t, StatusSuccess, setResp.Status)

	getResp := Dispatch(tbl, Request{Opcode: OpGet, Key: []byte("k"), Opaque: 2})
	require.Equal(t, StatusSuccess, getResp.Status)
	require.Equal(t, []byte("v"), getResp.Value)
	require.Len(t, getResp.Extras, 4)

	missResp := Dispatch(tbl, Request{Opcode: OpGet, Key: []byte("missing"), Opaque: 3})
	require.Equal(t, StatusKeyENOENT, missResp.Status)
}

func TestAddRejectsExisting(t *testing.T) {
	tbl := newTestTable(t)
	require.Equal(t, StatusSuccess, Dispatch(tbl, Request{Opcode: OpAdd, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v")}).Status)
	require.Equal(t, StatusKeyEEXISTS, Dispatch(tbl, Request{Opcode: OpAdd, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v2")}).Status)
}

func TestReplaceRequiresExisting(t *testing.T) {
	tbl := newTestTable(t)
	require.Equal(t, StatusKeyENOENT, Dispatch(tbl, Request{Opcode: OpReplace, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v")}).Status)
	Dispatch(tbl, Request{Opcode: OpSet, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v")})
	require.Equal(t, StatusSuccess, Dispatch(tbl, Request{Opcode: OpReplace, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v2")}).Status)
}

func TestQuitClosesConnection(t *testing.T) {
	tbl := newTestTable(t)
	resp := Dispatch(tbl, Request{Opcode: OpQuit})
	require.Equal(t, StatusSuccess, resp.Status)
	require.True(t, resp.Closed)
}

func TestUnknownOpcodesAreStubbed(t *testing.T) {
	tbl := newTestTable(t)
	for _, op := range []Opcode{OpDelete, OpIncrement, OpDecrement, OpFlush, OpGetQ, OpNoop, OpVersion, OpAppend, OpPrepend, OpGetKQ} {
		resp := Dispatch(tbl, Request{Opcode: op, Key: []byte("k")})
		require.Equal(t, StatusUnknownCommand, resp.Status, "opcode %x", op)
	}
}

func TestCASIsMonotonicAndNetworkByteOrder(t *testing.T) {
	tbl := newTestTable(t)
	r1 := Dispatch(tbl, Request{Opcode: OpSet, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v1")})
	r2 := Dispatch(tbl, Request{Opcode: OpSet, Key: []byte("k"), Extras: extras(0, 0), Val: []byte("v2")})
	require.Less(t, r1.CAS, r2.CAS)

	b := CASBytes(int64(r2.CAS))
	require.Equal(t, uint64(r2.CAS), beUint64(b))
}

func extras(flags, expire uint32) []byte {
	b := make([]byte, 8)
	putU32(b[0:4], flags)
	putU32(b[4:8], expire)
	return b
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func beUint64(b [8]byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
