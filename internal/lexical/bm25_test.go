package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"improve", "intuition"}, Tokenize("How can I improve my intuition?"))
	assert.Equal(t, []string{"real", "life", "example", "intuition"}, Tokenize("a real-life Example of INTUITION"))
	assert.Empty(t, Tokenize("to be or not"[:5]))
}

func TestSearchRanksByTermOverlap(t *testing.T) {
	ix := New()
	ix.Add("a", "Intuition is a feeling you get without reasoning.")
	ix.Add("b", "Practice builds intuition and intuition builds trust.")
	ix.Add("c", "The weather was nice today.")

	matches := ix.Search("intuition trust", 10)
	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].ID)
	assert.Equal(t, "a", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Greater(t, matches[1].Score, 0.0)
}

func TestSearchLimitAndEmpty(t *testing.T) {
	ix := New()
	assert.Nil(t, ix.Search("anything", 5))

	ix.Add("a", "alpha beta")
	ix.Add("b", "alpha gamma")
	ix.Add("c", "alpha delta")

	assert.Len(t, ix.Search("alpha", 2), 2)
	assert.Nil(t, ix.Search("the of", 5))
	assert.Nil(t, ix.Search("alpha", 0))
	assert.Empty(t, ix.Search("omega", 5))
}

func TestAddReplacesDocument(t *testing.T) {
	ix := New()
	ix.Add("a", "alpha")
	ix.Add("a", "beta")

	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Search("alpha", 5))
	assert.Len(t, ix.Search("beta", 5), 1)
}

func TestSearchTieBreaksByID(t *testing.T) {
	ix := New()
	ix.Add("z", "same words here")
	ix.Add("m", "same words here")

	matches := ix.Search("words", 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "m", matches[0].ID)
	assert.Equal(t, "z", matches[1].ID)
}
