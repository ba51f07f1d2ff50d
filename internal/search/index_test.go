package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestSearchRanksExactFieldsFirst(t *testing.T) {
	ix := Build([]Document{
		{ID: "1", Filename: "happy cat.png"},
		{ID: "2", Filename: "dog.png", ExtractedText: "cat"},
		{ID: "3", Filename: "bird.gif", Description: "a parrot"},
	})
	require.Equal(t, 3, ix.Len())

	hits := searchSorted(t, ix, "cat")
	assert.Equal(t, []string{"2"}, ids(hits)[:1], "exact extracted text wins")
	assert.NotContains(t, ids(hits), "3")
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

// searchSorted runs a search and checks scores are non-increasing.
func searchSorted(t *testing.T, ix *Index, q string) []Hit {
	t.Helper()
	hits := ix.Search(q)
	for i := 1; i < len(hits); i++ {
		require.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	return hits
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	ix := Build([]Document{{ID: "1", Filename: "LOL"}})
	assert.Equal(t, []string{"1"}, ids(ix.Search("lol")))
}

func TestSearchWeightsExtractedTextHighest(t *testing.T) {
	ix := Build([]Document{
		{ID: "desc", Description: "hello"},
		{ID: "ocr", ExtractedText: "hello"},
	})
	hits := ix.Search("hello")
	require.Len(t, hits, 2)
	assert.Equal(t, "ocr", hits[0].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearchLongFieldsScorePoorly(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 10) + "ABCDEF" + strings.Repeat(" consectetur", 10)
	ix := Build([]Document{{ID: "1", Filename: "scan.png", ExtractedText: long}})

	assert.Empty(t, ix.Search("ABCDEF"), "verbatim substring in a long field stays below threshold")
	assert.True(t, ContainsFold(Document{ExtractedText: long}, "abcdef"))
}

func TestSearchThresholdOption(t *testing.T) {
	docs := []Document{{ID: "1", Filename: "cat.png"}}
	assert.NotEmpty(t, Build(docs).Search("cat"))
	assert.Empty(t, Build(docs, WithThreshold(0.9)).Search("cat"))
	assert.NotEmpty(t, Build(docs, WithThreshold(0)).Search("cpg"))
}

func TestSearchFieldsOption(t *testing.T) {
	ix := Build([]Document{{ID: "1", Filename: "cat", Description: "dog"}},
		WithFields([]Field{{Name: FieldDescription, Weight: 1}}))
	assert.Empty(t, ix.Search("cat"))
	assert.NotEmpty(t, ix.Search("dog"))
}

func TestSearchEmptyKeyword(t *testing.T) {
	ix := Build([]Document{{ID: "1", Filename: "cat"}})
	assert.Nil(t, ix.Search("   "))
	assert.Nil(t, Build(nil).Search("cat"))
}

func TestSearchTieKeepsDocumentOrder(t *testing.T) {
	ix := Build([]Document{
		{ID: "b", Filename: "same"},
		{ID: "a", Filename: "same"},
	})
	assert.Equal(t, []string{"b", "a"}, ids(ix.Search("same")))
}

func TestSearchUnicode(t *testing.T) {
	ix := Build([]Document{
		{ID: "1", Filename: "开心表情.png", ExtractedText: "哈哈哈"},
		{ID: "2", Description: "可爱的动漫少女角色"},
	})
	assert.Equal(t, []string{"1"}, ids(ix.Search("哈哈哈")))
}

func TestContainsFold(t *testing.T) {
	d := Document{Filename: "Cat.PNG", ExtractedText: "", Description: "Sleepy"}
	tests := []struct {
		q    string
		want bool
	}{
		{"cat", true},
		{"SLEEP", true},
		{"  png ", true},
		{"dog", false},
		{"", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContainsFold(d, tt.q), tt.q)
	}
}

func TestUseFuzzy(t *testing.T) {
	assert.False(t, UseFuzzy("a"))
	assert.False(t, UseFuzzy("  a  "))
	assert.False(t, UseFuzzy("哈"))
	assert.True(t, UseFuzzy("哈哈"))
	assert.True(t, UseFuzzy("ab"))
}
