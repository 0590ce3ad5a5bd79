package rag

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag/internal/hybrid"
	"transcript-rag/internal/intent"
	"transcript-rag/internal/models"
)

func segmentIDs(results []models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Segment.ID
	}
	return out
}

func assertScoreBounds(t *testing.T, results []models.SearchResult) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.Segment.ID], "duplicate segment %s", r.Segment.ID)
		seen[r.Segment.ID] = true
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.Less(t, r.Score, 1.0)
	}
}

func TestSearchHowToIntent(t *testing.T) {
	s := newTestSession(t, constantEmbedder(1, 0, 0, 0))
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, []models.TranscriptSegment{
		{ID: "s1", Start: 10, End: 18, Text: "You get better at using intuition by listening to it. Over time you learn to trust it."},
		{ID: "s2", Start: 18, End: 24, Text: "Intuition is a feeling that arises without conscious reasoning."},
		{ID: "s3", Start: 24, End: 30, Text: "The weather today is sunny and warm."},
	}))

	query := "How can I improve my intuition?"
	assert.Contains(t, intent.Classify(query), intent.HowTo)

	results, err := s.Search(ctx, query, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2", "s3"}, segmentIDs(results))
	assert.InDelta(t, 1/1.1, results[0].Score, 1e-9)
	assertScoreBounds(t, results)

	assert.Equal(t, 10.0, results[0].Segment.Start)
	assert.Equal(t, 18.0, results[0].Segment.End)
}

func TestSearchExampleIntent(t *testing.T) {
	embed := func(_ context.Context, text string) ([]float32, error) {
		switch {
		case strings.Contains(text, "best friend"):
			return []float32{1, 0, 0, 0}, nil
		case strings.Contains(text, "in real life"):
			return []float32{0.5, 0.8660254, 0, 0}, nil
		case strings.Contains(text, "weather"):
			return []float32{0, 0, 1, 0}, nil
		}
		return []float32{1, 0, 0, 0}, nil
	}
	s := newTestSession(t, embed)
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, []models.TranscriptSegment{
		{ID: "ex", Start: 0, End: 6, Text: "For example, imagine intuition is like when you just know your best friend is sad."},
		{ID: "lex", Start: 6, End: 9, Text: "A real life example of intuition in real life."},
		{ID: "other", Start: 9, End: 12, Text: "The weather today is sunny and warm."},
	}))

	query := "Give me a real life example of intuition"
	assert.Contains(t, intent.Classify(query), intent.Example)

	results, err := s.Search(ctx, query, 10)
	require.NoError(t, err)
	// "other" is below the similarity floor and shares no terms
	assert.Equal(t, []string{"ex", "lex"}, segmentIDs(results))
	assertScoreBounds(t, results)
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestSession(t, constantEmbedder(1, 0, 0, 0))
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, nil))

	results, err := s.Search(ctx, "what is intuition", 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchExcludesWrongDimension(t *testing.T) {
	s := newTestSession(t, func(_ context.Context, text string) ([]float32, error) {
		if strings.Contains(strings.ToLower(text), "quantum") && text != "quantum entanglement" {
			return []float32{1, 0, 0}, nil
		}
		if strings.Contains(text, "weather") {
			return []float32{0, 0, 1, 0}, nil
		}
		return []float32{1, 0, 0, 0}, nil
	})
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, []models.TranscriptSegment{
		{ID: "bad", Text: "Quantum entanglement is spooky."},
		{ID: "good", Text: "The weather today is sunny."},
	}))
	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, "quantum entanglement", 10)
	require.NoError(t, err)
	assert.NotContains(t, segmentIDs(results), "bad")
}

func TestSearchDeduplicatesSegments(t *testing.T) {
	s := newTestSession(t, constantEmbedder(1, 0, 0, 0))
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, sampleSegments))

	results, err := s.Search(ctx, "intuition hunch", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2"}, segmentIDs(results))
	assert.Equal(t, sampleSegments[0].Text, results[0].Segment.Text)
	assertScoreBounds(t, results)
}

func TestSearchLimit(t *testing.T) {
	s := newTestSession(t, constantEmbedder(1, 0, 0, 0))
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, sampleSegments))

	results, err := s.Search(ctx, "intuition", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = s.Search(ctx, "intuition", -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSearchHugeLimit(t *testing.T) {
	s := newTestSession(t, constantEmbedder(1, 0, 0, 0))
	ctx := context.Background()
	require.NoError(t, s.Index(ctx, sampleSegments))

	results, err := s.Search(ctx, "intuition", math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, segmentIDs(results))

	for _, ev := range drain(s) {
		assert.NoError(t, ev.Err)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	calls := 0
	s := newTestSession(t, func(context.Context, string) ([]float32, error) {
		calls++
		return []float32{1, 0, 0, 0}, nil
	})
	results, err := s.Search(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, calls)
}

func TestSearchFailures(t *testing.T) {
	boom := errors.New("timeout")
	s := newTestSession(t, func(context.Context, string) ([]float32, error) {
		return nil, boom
	})
	_, err := s.Search(context.Background(), "intuition", 5)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StageSearch, opErr.Stage)
	assert.Equal(t, ComponentEmbedder, opErr.Component)
	assert.ErrorIs(t, err, boom)

	// a query vector of the wrong size is rejected by the engine
	s = newTestSession(t, constantEmbedder(1, 0))
	_, err = s.Search(context.Background(), "intuition", 5)
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, ComponentIndexEngine, opErr.Component)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func hit(id, segment string, start, score float64, text string) hybrid.Hit {
	return hybrid.Hit{
		Record: hybrid.Record{ID: id, SegmentID: segment, Text: text, FullSegmentText: "full " + segment, Start: start},
		Score:  score,
	}
}

func TestRerankKeepsBestPassagePerSegment(t *testing.T) {
	results := rerank([]hybrid.Hit{
		hit("a#0", "a", 0, 0.5, ""),
		hit("a#1", "a", 0, 0.7, ""),
		hit("b#0", "b", 3, 0.6, ""),
	}, []intent.Label{intent.General}, 10)

	require.Equal(t, []string{"a", "b"}, segmentIDs(results))
	assert.Equal(t, "full a", results[0].Segment.Text)
	assert.InDelta(t, 0.7/0.77, results[0].Score, 1e-9)
	assert.InDelta(t, 0.6/0.77, results[1].Score, 1e-9)
}

func TestRerankTieBreaks(t *testing.T) {
	results := rerank([]hybrid.Hit{
		hit("a#0", "a", 5, 0.5, ""),
		hit("c#0", "c", 2, 0.5, ""),
		hit("b#0", "b", 2, 0.5, ""),
	}, []intent.Label{intent.General}, 10)
	assert.Equal(t, []string{"b", "c", "a"}, segmentIDs(results))
}

func TestRerankAppliesCappedBoost(t *testing.T) {
	results := rerank([]hybrid.Hit{
		hit("a#0", "a", 0, 0.2, "Learn to trust it by practice and through repetition."),
		hit("b#0", "b", 0, 0.45, "Nothing relevant here."),
	}, []intent.Label{intent.HowTo}, 10)

	// 0.2 + 0.3 beats 0.45
	require.Equal(t, []string{"a", "b"}, segmentIDs(results))
	assert.InDelta(t, 0.45/(0.5*1.1), results[1].Score, 1e-9)
}

func TestRerankTruncatesAndHandlesZero(t *testing.T) {
	results := rerank([]hybrid.Hit{
		hit("a#0", "a", 0, 0, ""),
		hit("b#0", "b", 1, 0, ""),
	}, []intent.Label{intent.General}, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Segment.ID)
	assert.Zero(t, results[0].Score)

	assert.Empty(t, rerank(nil, []intent.Label{intent.General}, 5))
}
