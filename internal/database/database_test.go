package database

import (
	"path/filepath"
	"testing"

	"github.com/ryogrid/ftsengine/internal/hashtable"
	"github.com/ryogrid/ftsengine/internal/pat"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*Database, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "db")
	db, err := Create(dir)
	require.NoError(t, err)
	return db, dir
}

func TestCreateLookupGetCache(t *testing.T) {
	db, _ := newTestDB(t)
	defer db.Close()

	id, tbl, err := db.CreateCache("sessions")
	require.NoError(t, err)
	require.NotEqual(t, pat.IDNil, id)
	require.NotNil(t, tbl)

	got, err := db.Lookup("sessions")
	require.NoError(t, err)
	require.Equal(t, id, got)

	name, kind, _, err := db.Get(id)
	require.NoError(t, err)
	require.Equal(t, "sessions", name)
	require.Equal(t, KindCache, kind)

	back, err := db.Cache(id)
	require.NoError(t, err)
	require.Same(t, tbl, back)
}

func TestLookupUnregisteredNameFails(t *testing.T) {
	db, _ := newTestDB(t)
	defer db.Close()
	id, err := db.Lookup("nope")
	require.Error(t, err)
	require.Equal(t, pat.IDNil, id)
}

func TestGetWrongKindRejected(t *testing.T) {
	db, _ := newTestDB(t)
	defer db.Close()
	id, _, err := db.CreateCache("c")
	require.NoError(t, err)
	_, err = db.Hash(id)
	require.Error(t, err)
}

func TestReopenRebuildsManifest(t *testing.T) {
	db, dir := newTestDB(t)
	lexID, _, err := db.CreatePAT("lexicon")
	require.NoError(t, err)
	hashID, _, err := db.CreateHash("meta", hashtable.CreateParams{ValueSize: 8})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	gotLex, err := reopened.Lookup("lexicon")
	require.NoError(t, err)
	require.Equal(t, lexID, gotLex)

	name, kind, _, err := reopened.Get(hashID)
	require.NoError(t, err)
	require.Equal(t, "meta", name)
	require.Equal(t, KindHash, kind)

	tbl, err := reopened.Hash(hashID)
	require.NoError(t, err)
	require.NotNil(t, tbl)
}
