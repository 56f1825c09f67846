package invindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// grounded on spec.md §8 scenario 4: 4 records, term "検索" occurring in
// records {1,2,3}; cursor CRUD sequence as postings are removed/replaced.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	base := filepath.Join(t.TempDir(), "t.ii")
	idx, err := Create(base)
	require.NoError(t, err)
	return idx
}

func cursorRIDs(t *testing.T, idx *Index, term string) []int64 {
	t.Helper()
	c, err := idx.OpenCursor([]byte(term), 0, 0, 0)
	require.NoError(t, err)
	var rids []int64
	for {
		h, err := c.Next()
		if err != nil {
			break
		}
		rids = append(rids, h.RID)
	}
	return rids
}

func TestUpdateAndCursorScenario(t *testing.T) {
	idx := newTestIndex(t)

	records := map[int64]string{
		1: "検索エンジン",
		2: "全文検索システム",
		3: "高速な検索機能",
		4: "データベース管理",
	}
	for rid, text := range records {
		require.NoError(t, idx.Update(rid, 0, nil, Values{{Bytes: []byte(text), Weight: 1}}))
	}

	require.ElementsMatch(t, []int64{1, 2, 3}, cursorRIDs(t, idx, "検索"))

	// Remove record 1 entirely.
	require.NoError(t, idx.Update(1, 0, Values{{Bytes: []byte(records[1]), Weight: 1}}, nil))
	require.ElementsMatch(t, []int64{2, 3}, cursorRIDs(t, idx, "検索"))

	// Replace record 3's content with text lacking the term.
	require.NoError(t, idx.Update(3, 0, Values{{Bytes: []byte(records[3]), Weight: 1}}, Values{{Bytes: []byte("関係ない文章"), Weight: 1}}))
	require.ElementsMatch(t, []int64{2}, cursorRIDs(t, idx, "検索"))

	// Remove the last occurrence.
	require.NoError(t, idx.Update(2, 0, Values{{Bytes: []byte(records[2]), Weight: 1}}, nil))
	require.Empty(t, cursorRIDs(t, idx, "検索"))
}

func TestUpdateRewritesPositionsWithinSameRecord(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Update(10, 0, nil, Values{{Bytes: []byte("検索機能"), Weight: 1}}))
	postings, err := idx.Postings([]byte("検索"))
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, []int32{0}, postings[0].Positions)

	require.NoError(t, idx.Update(10, 0, Values{{Bytes: []byte("検索機能"), Weight: 1}}, Values{{Bytes: []byte("高速検索機能"), Weight: 1}}))
	postings, err = idx.Postings([]byte("検索"))
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, int64(10), postings[0].RID)
}

func TestCursorBoundsAndMaxPositions(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Update(1, 0, nil, Values{{Bytes: []byte("検索検索検索"), Weight: 1}}))
	require.NoError(t, idx.Update(2, 0, nil, Values{{Bytes: []byte("検索"), Weight: 1}}))
	require.NoError(t, idx.Update(3, 0, nil, Values{{Bytes: []byte("検索"), Weight: 1}}))

	c, err := idx.OpenCursor([]byte("検索"), 2, 3, 0)
	require.NoError(t, err)
	var rids []int64
	for {
		h, err := c.Next()
		if err != nil {
			break
		}
		rids = append(rids, h.RID)
	}
	require.ElementsMatch(t, []int64{2, 3}, rids)

	c2, err := idx.OpenCursor([]byte("検索"), 1, 1, 1)
	require.NoError(t, err)
	h, err := c2.Next()
	require.NoError(t, err)
	require.Len(t, h.Positions, 1)
}

func TestOpenAfterClose(t *testing.T) {
	base := filepath.Join(t.TempDir(), "t.ii")
	idx, err := Create(base)
	require.NoError(t, err)
	require.NoError(t, idx.Update(1, 0, nil, Values{{Bytes: []byte("検索エンジン"), Weight: 1}}))
	require.NoError(t, idx.Close())

	reopened, err := Open(base)
	require.NoError(t, err)
	defer reopened.Close()
	require.ElementsMatch(t, []int64{1}, cursorRIDs(t, reopened, "検索"))
}
