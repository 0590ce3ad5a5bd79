package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag/internal/config"
	"transcript-rag/internal/models"
)

type fixedEmbedder struct {
	vectors map[string][]float32
	calls   int
	failOn  string
}

func (f *fixedEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if text == f.failOn {
		return nil, errors.New("embedder down")
	}
	return f.vectors[text], nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestNormalizeVector(t *testing.T) {
	v := []float32{3, 4}
	out := NormalizeVector(v)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
	// input is left alone
	assert.Equal(t, []float32{3, 4}, v)

	assert.Equal(t, []float32{0, 0, 0}, NormalizeVector([]float32{0, 0, 0}))
	assert.Empty(t, NormalizeVector(nil))
}

func TestNormalizeWrapsEmbedder(t *testing.T) {
	inner := &fixedEmbedder{vectors: map[string][]float32{"hi": {2, 0, 2}}}
	e := Normalize(inner)

	v, err := e.EmbedQuery(context.Background(), "hi")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm(v), 1e-6)

	// wrapping twice does not stack
	assert.Equal(t, e, Normalize(e))

	inner.failOn = "boom"
	_, err = e.EmbedQuery(context.Background(), "boom")
	assert.Error(t, err)
}

func TestGenerateEmbedding(t *testing.T) {
	inner := &fixedEmbedder{vectors: map[string][]float32{
		"one": {1, 0},
		"two": {0, 1},
	}}
	chunks := []models.Chunk{{Text: "one"}, {Text: "two"}}

	vectors, err := GenerateEmbedding(context.Background(), inner, chunks)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)

	empty, err := GenerateEmbedding(context.Background(), inner, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestGenerateEmbeddingStopsOnFailure(t *testing.T) {
	inner := &fixedEmbedder{failOn: "one"}
	_, err := GenerateEmbedding(context.Background(), inner, []models.Chunk{{Text: "one"}, {Text: "two"}})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(&config.LLMConfig{
		Provider: config.ProviderOllama,
		BaseURL:  "http://localhost:11434",
		Model:    "all-minilm",
	})
	require.NoError(t, err)
	assert.IsType(t, normalized{}, e)

	_, err = NewEmbedder(&config.LLMConfig{Provider: "word2vec"})
	assert.Error(t, err)
}

func TestMeanPool(t *testing.T) {
	// three tokens of width two, the last one is padding
	tokens := []float32{1, 2, 3, 4, 100, 100}
	out := meanPool(tokens, []int64{1, 1, 0}, 3, 2)
	assert.Equal(t, []float32{2, 3}, out)

	assert.Equal(t, []float32{0, 0}, meanPool(tokens, []int64{0, 0, 0}, 3, 2))
}
