package snip

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// text is the fixture text from original_source/test/unit/util/test-snip.c.
const text = "Groonga is an embeddable fulltext search engine, which you can use in\n" +
	"conjunction with various scripting languages and databases. Groonga is\n" +
	"an inverted index based engine, & combines the best of n-gram\n" +
	"indexing and word indexing to achieve fast, precise searches. While\n" +
	"groonga codebase is rather compact it is scalable enough to handle large\n" +
	"amounts of data and queries."

const textJaUTF8 = "Groongaは組み込み型の全文検索エンジンです。DBMSやスクリプト言語処理系等に\n" +
	"組み込むことによって、その全文検索機能を強化することができます。n-gram\n" +
	"インデックスと単語インデックスの特徴を兼ね備えた、高速かつ高精度な転置\n" +
	"インデックスタイプのエンジンです。コンパクトな実装ですが、大規模な文書\n" +
	"量と検索要求を処理できるように設計されています。また、純粋なn-gramイン\n" +
	"デックスの作成も可能です。"

// spec.md §8 scenario 5.
func TestExecSimple(t *testing.T) {
	s, err := New(0, 100, 10, []byte("[["), []byte("]]"), nil)
	require.NoError(t, err)
	require.NoError(t, s.AddCond([]byte("Groonga"), nil, nil))

	n, maxTagged, err := s.Exec([]byte(text))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 105, maxTagged)

	r0, err := s.GetResult(0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(r0, "[[Groonga]] is an embeddable fulltext search engine,"),
		"got %q", r0)

	_, err = s.GetResult(2)
	require.Error(t, err)
}

// spec.md §8 scenario 6.
func TestExecUTF8Normalize(t *testing.T) {
	keyword := []byte("転置インデックス")

	s, err := New(0, 100, 10, []byte("[["), []byte("]]"), nil)
	require.NoError(t, err)
	require.NoError(t, s.AddCond(keyword, nil, nil))
	n, _, err := s.Exec([]byte(textJaUTF8))
	require.NoError(t, err)
	require.Equal(t, 0, n)

	sNorm, err := New(Normalize, 100, 10, []byte("[["), []byte("]]"), nil)
	require.NoError(t, err)
	require.NoError(t, sNorm.AddCond(keyword, nil, nil))
	n, maxTagged, err := sNorm.Exec([]byte(textJaUTF8))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 105, maxTagged)
}

func TestAddCondRejectsOversizeKeyword(t *testing.T) {
	s, err := New(0, 10, 10, []byte("["), []byte("]"), nil)
	require.NoError(t, err)
	err = s.AddCond([]byte("this keyword is way too long"), nil, nil)
	require.Error(t, err)
}

func TestAddCondRejectsTooManyConditions(t *testing.T) {
	s, err := New(0, 100, 10, []byte("["), []byte("]"), nil)
	require.NoError(t, err)
	for i := 0; i < MaxConds; i++ {
		require.NoError(t, s.AddCond([]byte("x"), nil, nil))
	}
	require.Error(t, s.AddCond([]byte("x"), nil, nil))
}

func TestNewRejectsInvalidMaxResults(t *testing.T) {
	_, err := New(0, 100, 0, nil, nil, nil)
	require.Error(t, err)
	_, err = New(0, 100, MaxResults+1, nil, nil, nil)
	require.Error(t, err)
}

func TestHTMLMapping(t *testing.T) {
	s, err := New(0, 40, 10, []byte("<<"), []byte(">>"), HTMLMapping)
	require.NoError(t, err)
	require.NoError(t, s.AddCond([]byte("index"), nil, nil))

	n, _, err := s.Exec([]byte(`a & b <index> "quoted"`))
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)

	r0, err := s.GetResult(0)
	require.NoError(t, err)
	require.Contains(t, r0, "&amp;")
	require.Contains(t, r0, "<<index>>")
}
