package pat

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// keys fixture grounded on
// original_source/test/unit/core/test-patricia-trie-search.c.
var (
	key1 = "セナ"
	key2 = "ナセナセ"
	key3 = "Senna"
	key4 = "セナ + Ruby"
	key5 = "セナセナ"
)

func newTestTrie(t *testing.T, sis bool) *Trie {
	t.Helper()
	base := filepath.Join(t.TempDir(), "t.pat")
	tr, err := Create(base, CreateParams{Sis: sis})
	require.NoError(t, err)
	for _, k := range []string{key1, key2, key3, key4, key5} {
		_, err := tr.Add([]byte(k))
		require.NoError(t, err)
	}
	return tr
}

func hitKeys(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = string(h.Key)
	}
	return out
}

func TestAddThenExactLookup(t *testing.T) {
	tr := newTestTrie(t, false)
	id, err := tr.Lookup([]byte(key1), 0)
	require.NoError(t, err)
	require.NotEqual(t, IDNil, id)

	got, err := tr.Key(id)
	require.NoError(t, err)
	require.Equal(t, key1, string(got))
}

func TestAddIsIdempotent(t *testing.T) {
	tr := newTestTrie(t, false)
	id1, err := tr.Add([]byte(key1))
	require.NoError(t, err)
	id2, err := tr.Add([]byte(key1))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, 5, tr.Count())
}

func TestLCPSearch(t *testing.T) {
	cases := []struct {
		name     string
		sis      bool
		search   string
		expected string // "" means not found
	}{
		{"default-nonexistence", false, "カッター", ""},
		{"default-short", false, "セ", ""},
		{"default-exact", false, key1, key1},
		{"default-long", false, "セナセナセナ", key5},
		{"sis-nonexistence", true, "カッター", ""},
		{"sis-short", true, "セ", "セ"},
		{"sis-exact", true, key1, key1},
		{"sis-long", true, "セナセナセナ", key5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := newTestTrie(t, c.sis)
			id, key, err := tr.LCPSearch([]byte(c.search))
			if c.expected == "" {
				require.Error(t, err)
				require.Equal(t, IDNil, id)
				return
			}
			require.NoError(t, err)
			require.NotEqual(t, IDNil, id)
			require.Equal(t, c.expected, string(key))
		})
	}
}

func TestPrefixSearch(t *testing.T) {
	cases := []struct {
		name     string
		sis      bool
		search   string
		expected []string
	}{
		{"default-nonexistence", false, "カッター", nil},
		{"default-short", false, "セ", []string{key1, key4, key5}},
		{"default-exact", false, key1, []string{key1, key4, key5}},
		{"default-long", false, "セナセナセナ", nil},
		{"sis-nonexistence", true, "カッター", nil},
		{"sis-short", true, "セ", []string{"セ", key1, key4, "セナセ", key5}},
		{"sis-exact", true, key1, []string{key1, key4, "セナセ", key5}},
		{"sis-long", true, "セナセナセナ", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := newTestTrie(t, c.sis)
			hits, err := tr.PrefixSearch([]byte(c.search))
			if c.expected == nil {
				require.Error(t, err)
				require.Empty(t, hits)
				return
			}
			require.NoError(t, err)
			require.ElementsMatch(t, c.expected, hitKeys(hits))
		})
	}
}

func TestSuffixSearch(t *testing.T) {
	cases := []struct {
		name     string
		sis      bool
		search   string
		expected []string
	}{
		{"default-nonexistence", false, "カッター", nil},
		{"default-short", false, "ナ", nil},
		{"default-exact", false, key1, []string{key1}},
		{"default-long", false, "セナセナセナ", nil},
		{"sis-nonexistence", true, "カッター", nil},
		{"sis-short", true, "ナ", []string{key5, "ナセナ", key1, "ナ"}},
		{"sis-exact", true, key1, []string{key5, "ナセナ", key1}},
		{"sis-long", true, "セナセナセナ", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := newTestTrie(t, c.sis)
			hits, err := tr.SuffixSearch([]byte(c.search))
			if c.expected == nil {
				require.Error(t, err)
				require.Empty(t, hits)
				return
			}
			require.NoError(t, err)
			require.ElementsMatch(t, c.expected, hitKeys(hits))
		})
	}
}

func TestCursorAscendingDescendingAndBounds(t *testing.T) {
	tr := newTestTrie(t, false)

	c := tr.OpenCursor(nil, nil, 0, Ascending)
	var asc []string
	for {
		h, err := c.Next()
		if err != nil {
			break
		}
		asc = append(asc, string(h.Key))
	}
	require.Len(t, asc, 5)
	for i := 1; i < len(asc); i++ {
		require.Less(t, asc[i-1], asc[i])
	}

	c = tr.OpenCursor(nil, nil, 0, Descending)
	var desc []string
	for {
		h, err := c.Next()
		if err != nil {
			break
		}
		desc = append(desc, string(h.Key))
	}
	require.Len(t, desc, 5)
	for i := range asc {
		require.Equal(t, asc[i], desc[len(desc)-1-i])
	}

	c = tr.OpenCursor([]byte(key1), []byte(key5), FlagGT, Ascending)
	var bounded []string
	for {
		h, err := c.Next()
		if err != nil {
			break
		}
		bounded = append(bounded, string(h.Key))
	}
	for _, k := range bounded {
		require.Greater(t, k, key1)
		require.LessOrEqual(t, k, key5)
	}
}

func TestOpenRebuildsIndexAfterReopen(t *testing.T) {
	base := filepath.Join(t.TempDir(), "t.pat")
	tr, err := Create(base, CreateParams{})
	require.NoError(t, err)
	id, err := tr.Add([]byte(key1))
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	reopened, err := Open(base)
	require.NoError(t, err)
	got, err := reopened.Lookup([]byte(key1), 0)
	require.NoError(t, err)
	require.Equal(t, id, got)
}
