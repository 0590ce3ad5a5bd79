package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"transcript-rag/internal/chunker"
	"transcript-rag/internal/embedding"
	"transcript-rag/internal/hybrid"
	"transcript-rag/internal/models"
)

// PassageID names the chunk at index i of a segment.
func PassageID(segmentID string, i int) string {
	return fmt.Sprintf("%s#%d", segmentID, i)
}

// Index chunks and embeds every segment and inserts the passages as one
// batch. Passages whose embedding has the wrong length are skipped. On
// failure nothing already inserted is rolled back.
func (s *Session) Index(ctx context.Context, segments []models.TranscriptSegment) error {
	embedder, engine, gen, err := s.snapshot()
	if err != nil {
		return err
	}

	total := len(segments)
	s.emit(models.ProgressEvent{Stage: StageIndex, Percent: 0, Message: fmt.Sprintf("indexing %d segments", total)})

	var (
		passages []models.IndexedPassage
		dropped  int
	)
	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) != "" {
			chunks := chunker.Split(seg.Text)
			vectors, err := embedding.GenerateEmbedding(ctx, embedder, chunks)
			if err != nil {
				return s.fail(StageIndex, ComponentEmbedder, err)
			}
			for j, chunk := range chunks {
				if len(vectors[j]) != s.cfg.EmbeddingDim {
					dropped++
					continue
				}
				passages = append(passages, models.IndexedPassage{
					PassageID:   PassageID(seg.ID, j),
					SegmentID:   seg.ID,
					ChunkText:   chunk.Text,
					SegmentText: seg.Text,
					Start:       seg.Start,
					End:         seg.End,
					Embedding:   vectors[j],
				})
			}
		}

		// the final 100 is reserved for the insert
		s.emit(models.ProgressEvent{
			Stage:   StageIndex,
			Percent: (i + 1) * 99 / total,
			Message: fmt.Sprintf("embedded segment %d of %d", i+1, total),
		})
	}
	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Int("dimension", s.cfg.EmbeddingDim).Msg("Skipped passages with wrong embedding length")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.generation != gen {
		log.Debug().Int("passages", len(passages)).Msg("Index was reset while indexing, discarding batch")
		return nil
	}
	if err := engine.InsertMultiple(ctx, toRecords(passages)); err != nil {
		return s.fail(StageIndex, ComponentIndexEngine, err)
	}

	log.Info().Int("segments", total).Int("passages", len(passages)).Msg("Transcript indexed")
	s.emit(models.ProgressEvent{
		Stage:   StageIndex,
		Percent: 100,
		Message: fmt.Sprintf("indexed %d passages", len(passages)),
	})
	return nil
}

func toRecords(passages []models.IndexedPassage) []hybrid.Record {
	records := make([]hybrid.Record, len(passages))
	for i, p := range passages {
		records[i] = hybrid.Record{
			ID:              p.PassageID,
			SegmentID:       p.SegmentID,
			Text:            p.ChunkText,
			FullSegmentText: p.SegmentText,
			Start:           p.Start,
			End:             p.End,
			Embedding:       p.Embedding,
		}
	}
	return records
}
