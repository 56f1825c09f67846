package hashtable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// keys fixture grounded on original_source/test/unit/core/test-hash-cursor.c.
var cursorKeys = []string{"セナ", "ナセナセ", "Senna", "セナ + Ruby", "セナセナ"}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.hash")
	tbl, err := Create(path, CreateParams{KeySize: 0, ValueSize: 4})
	require.NoError(t, err)
	return tbl
}

func TestLookupAddThenGet(t *testing.T) {
	tbl := newTestTable(t)
	id, err := tbl.Lookup([]byte("hello"), LookupAdd)
	require.NoError(t, err)
	require.NotEqual(t, IDNil, id)

	got, err := tbl.Lookup([]byte("hello"), LookupGet)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestDeleteThenLookupReturnsNil(t *testing.T) {
	tbl := newTestTable(t)
	_, err := tbl.Lookup([]byte("k"), LookupAdd)
	require.NoError(t, err)
	require.NoError(t, tbl.Delete([]byte("k")))

	got, err := tbl.Lookup([]byte("k"), LookupGet)
	require.NoError(t, err)
	require.Equal(t, IDNil, got)
}

func TestCursorAscendingAndDescending(t *testing.T) {
	tbl := newTestTable(t)
	var ids []ID
	for _, k := range cursorKeys {
		id, err := tbl.Lookup([]byte(k), LookupAdd)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	c := tbl.OpenCursor(Ascending)
	var got []ID
	for {
		id, err := c.Next()
		if err != nil {
			break
		}
		got = append(got, id)
	}
	require.Equal(t, ids, got)

	c = tbl.OpenCursor(Descending)
	got = nil
	for {
		id, err := c.Next()
		if err != nil {
			break
		}
		got = append(got, id)
	}
	reversed := make([]ID, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	require.Equal(t, reversed, got)
}

func TestCursorYieldsEachLiveIDExactlyOnceDespiteDeletion(t *testing.T) {
	tbl := newTestTable(t)
	for _, k := range cursorKeys {
		_, err := tbl.Lookup([]byte(k), LookupAdd)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Delete([]byte(cursorKeys[1])))

	c := tbl.OpenCursor(Ascending)
	seen := map[ID]bool{}
	for {
		id, err := c.Next()
		if err != nil {
			break
		}
		require.False(t, seen[id], "id %d yielded twice", id)
		seen[id] = true
	}
	require.Equal(t, tbl.Count(), len(seen))
}

func TestSetValueIncrNumeric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.hash")
	tbl, err := Create(path, CreateParams{KeySize: 0, ValueSize: 8})
	require.NoError(t, err)
	id, err := tbl.Lookup([]byte("counter"), LookupAdd)
	require.NoError(t, err)

	delta := make([]byte, 8)
	delta[7] = 5
	require.NoError(t, tbl.SetValue(id, delta, SetIncr))
	require.NoError(t, tbl.SetValue(id, delta, SetIncr))

	v, err := tbl.GetValue(id)
	require.NoError(t, err)
	require.Equal(t, uint64(10), beUint64(v))
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.hash")
	tbl, err := Create(path, CreateParams{KeySize: 0, ValueSize: 4})
	require.NoError(t, err)
	id, err := tbl.Lookup([]byte("persisted"), LookupAdd)
	require.NoError(t, err)
	require.NoError(t, tbl.SetValue(id, []byte("abcd"), SetReplace))
	require.NoError(t, tbl.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	got, err := reopened.Lookup([]byte("persisted"), LookupGet)
	require.NoError(t, err)
	require.Equal(t, id, got)
	val, err := reopened.GetValue(got)
	require.NoError(t, err)
	require.Equal(t, []byte("abcd"), val)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hash")
	require.NoError(t, os.WriteFile(path, []byte("not a hash table file"), 0644))
	_, err := Open(path)
	require.Error(t, err)
}
