// Package hybrid implements the passage index engine: a keyword index and a
// vector collection behind one Create / InsertMultiple / Search contract.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"transcript-rag/internal/chromemdb"
	"transcript-rag/internal/helper"
	"transcript-rag/internal/lexical"
)

// Schema field names. Only FieldText is keyword-indexed and only
// FieldEmbedding is vector-indexed.
const (
	FieldID              = "id"
	FieldSegmentID       = "segmentId"
	FieldText            = "text"
	FieldFullSegmentText = "fullSegmentText"
	FieldStart           = "start"
	FieldEnd             = "end"
	FieldEmbedding       = "embedding"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidQuery      = errors.New("invalid query")
)

type Schema struct {
	Dimension int
}

type Record struct {
	ID              string
	SegmentID       string
	Text            string
	FullSegmentText string
	Start           float64
	End             float64
	Embedding       []float32
}

// Query is one hybrid lookup. Term drives the keyword side over Properties,
// Vector drives the cosine side. Either may be empty. Vector hits below
// Similarity are discarded before fusion.
type Query struct {
	Term       string
	Vector     []float32
	Properties []string
	Limit      int
	Similarity float32
}

// Hit carries the fused score plus each side's max-normalized score.
type Hit struct {
	Record      Record
	Score       float64
	TextScore   float64
	VectorScore float64
}

type Weights struct {
	Text   float64
	Vector float64
}

var DefaultWeights = Weights{Text: 0.5, Vector: 0.5}

type Option func(*Engine)

func WithWeights(w Weights) Option {
	return func(e *Engine) {
		e.weights = w
	}
}

type Engine struct {
	mu      sync.RWMutex
	schema  Schema
	weights Weights
	text    *lexical.Index
	vectors *chromemdb.VectorDBManager
}

// Create builds an empty engine for the schema. Every engine gets its own
// collection so a dropped engine never shares state with its replacement.
func Create(schema Schema, opts ...Option) (*Engine, error) {
	if schema.Dimension < 1 {
		return nil, fmt.Errorf("schema dimension must be positive, got %d", schema.Dimension)
	}
	e := &Engine{
		schema:  schema,
		weights: DefaultWeights,
		text:    lexical.New(),
		vectors: chromemdb.NewVectorDBManager(),
	}
	for _, opt := range opts {
		opt(e)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	if _, err := e.vectors.GetOrCreateCollection("passages-" + id); err != nil {
		return nil, err
	}
	log.Debug().Int("dimension", schema.Dimension).Str("collection", "passages-"+id).Msg("Created index engine")
	return e, nil
}

func (e *Engine) Schema() Schema {
	return e.schema
}

// InsertMultiple adds the records as one batch. The whole batch is rejected
// if any record has the wrong embedding length.
func (e *Engine) InsertMultiple(ctx context.Context, records []Record) error {
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id is required")
		}
		if len(r.Embedding) != e.schema.Dimension {
			return fmt.Errorf("%w: record %s has %d values, want %d",
				ErrDimensionMismatch, r.ID, len(r.Embedding), e.schema.Dimension)
		}
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Metadata:  createMetadata(r),
			Embedding: r.Embedding,
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.vectors.CreateDocs(ctx, docs); err != nil {
		return err
	}
	for _, r := range records {
		e.text.Add(r.ID, r.Text)
	}
	return nil
}

// Search runs the keyword and vector sides, scales each side by its own
// maximum and fuses the union of candidates with the engine weights.
// Hits are ordered by fused score, ties by record ID.
func (e *Engine) Search(ctx context.Context, q Query) ([]Hit, error) {
	if q.Limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidQuery, q.Limit)
	}
	for _, p := range q.Properties {
		if p != FieldText {
			return nil, fmt.Errorf("%w: property %q is not keyword-indexed", ErrInvalidQuery, p)
		}
	}
	if len(q.Vector) > 0 && len(q.Vector) != e.schema.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, want %d",
			ErrDimensionMismatch, len(q.Vector), e.schema.Dimension)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	hits := make(map[string]*Hit)

	if strings.TrimSpace(q.Term) != "" {
		matches := e.text.Search(q.Term, q.Limit)
		top := 0.0
		for _, m := range matches {
			top = max(top, m.Score)
		}
		for _, m := range matches {
			if top <= 0 {
				break
			}
			hits[m.ID] = &Hit{Record: Record{ID: m.ID}, TextScore: m.Score / top}
		}
	}

	if len(q.Vector) > 0 {
		results, err := e.vectors.SearchWithQueryOptions(ctx, chromem.QueryOptions{
			QueryEmbedding: q.Vector,
			NResults:       q.Limit,
		})
		if err != nil {
			return nil, err
		}
		kept := results[:0]
		top := 0.0
		for _, r := range results {
			// NaN similarities fail this comparison too
			if !(r.Similarity >= q.Similarity) {
				continue
			}
			kept = append(kept, r)
			top = max(top, float64(r.Similarity))
		}
		for _, r := range kept {
			if top <= 0 {
				break
			}
			h, ok := hits[r.ID]
			if !ok {
				h = &Hit{}
				hits[r.ID] = h
			}
			h.Record = recordFromDocument(r.ID, r.Content, r.Metadata, r.Embedding)
			h.VectorScore = float64(r.Similarity) / top
		}
	}

	out := make([]Hit, 0, len(hits))
	for id, h := range hits {
		// keyword-only hits still need their stored fields
		if h.Record.SegmentID == "" {
			doc, err := e.vectors.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			h.Record = recordFromDocument(doc.ID, doc.Content, doc.Metadata, doc.Embedding)
		}
		h.Score = e.weights.Text*h.TextScore + e.weights.Vector*h.VectorScore
		out = append(out, *h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Record.ID < out[j].Record.ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vectors.Count()
}

// Drop releases the collection. The engine is empty afterwards and must not
// be reused.
func (e *Engine) Drop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = lexical.New()
	return e.vectors.DeleteCollection()
}

func createMetadata(r Record) map[string]string {
	return map[string]string{
		FieldSegmentID:       r.SegmentID,
		FieldFullSegmentText: r.FullSegmentText,
		FieldStart:           strconv.FormatFloat(r.Start, 'f', -1, 64),
		FieldEnd:             strconv.FormatFloat(r.End, 'f', -1, 64),
	}
}

func recordFromDocument(id, content string, metadata map[string]string, embedding []float32) Record {
	start, _ := strconv.ParseFloat(metadata[FieldStart], 64)
	end, _ := strconv.ParseFloat(metadata[FieldEnd], 64)
	return Record{
		ID:              id,
		SegmentID:       metadata[FieldSegmentID],
		Text:            content,
		FullSegmentText: metadata[FieldFullSegmentText],
		Start:           start,
		End:             end,
		Embedding:       embedding,
	}
}
