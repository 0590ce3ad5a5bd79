package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"transcript-rag/internal/hybrid"
	"transcript-rag/internal/intent"
	"transcript-rag/internal/models"
)

const (
	// scoreHeadroom keeps the top normalized score below 1.
	scoreHeadroom = 1.1
	maxScore      = 0.99
)

// Search returns at most limit segments for query, best first, one per
// segment, with scores in [0, 0.99]. A limit of 0 means the configured
// default.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if limit == 0 {
		limit = s.cfg.DefaultLimit
	}
	embedder, engine, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []models.SearchResult{}, nil
	}

	candidates := limit
	if fetch := max(s.cfg.OverFetch, 1); limit <= math.MaxInt/fetch {
		candidates = limit * fetch
	}

	labels := intent.Classify(query)
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, s.fail(StageSearch, ComponentEmbedder, err)
	}

	hits, err := engine.Search(ctx, hybrid.Query{
		Term:       query,
		Vector:     vector,
		Properties: []string{hybrid.FieldText},
		Limit:      candidates,
		Similarity: s.cfg.SimilarityFloor,
	})
	if err != nil {
		return nil, s.fail(StageSearch, ComponentIndexEngine, err)
	}

	results := rerank(hits, labels, limit)
	log.Debug().
		Str("query", query).
		Strs("intents", intent.Strings(labels)).
		Int("candidates", len(hits)).
		Int("results", len(results)).
		Msg("Search finished")
	return results, nil
}

// rerank adds the intent boost, keeps the best passage per segment, sorts,
// truncates to limit and normalizes the scores.
func rerank(hits []hybrid.Hit, labels []intent.Label, limit int) []models.SearchResult {
	best := make(map[string]models.SearchResult, len(hits))
	for _, h := range hits {
		score := h.Score + intent.Boost(labels, h.Record.Text)
		if cur, ok := best[h.Record.SegmentID]; ok && cur.Score >= score {
			continue
		}
		best[h.Record.SegmentID] = models.SearchResult{
			Segment: models.SegmentRef{
				ID:    h.Record.SegmentID,
				Text:  h.Record.FullSegmentText,
				Start: h.Record.Start,
				End:   h.Record.End,
			},
			Score: score,
		}
	}

	results := make([]models.SearchResult, 0, len(best))
	for _, r := range best {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Segment.Start != b.Segment.Start {
			return a.Segment.Start < b.Segment.Start
		}
		return a.Segment.ID < b.Segment.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	normalize(results)
	return results
}

func normalize(results []models.SearchResult) {
	if len(results) == 0 {
		return
	}
	top := results[0].Score
	for i := range results {
		if top <= 0 {
			results[i].Score = 0
			continue
		}
		results[i].Score = min(results[i].Score/(top*scoreHeadroom), maxScore)
	}
}
