// Package rag indexes transcript segments into a hybrid passage index and
// answers queries against it.
package rag

import (
	"sync"

	"github.com/rs/zerolog/log"

	"transcript-rag/internal/config"
	"transcript-rag/internal/embedding"
	"transcript-rag/internal/hybrid"
	"transcript-rag/internal/models"
)

// Session owns one transcript's index, the embedder used to build and query
// it, and the progress stream. Index and Search must not overlap; Worker
// serializes them. Reset and Close may be called from any goroutine.
type Session struct {
	cfg      config.RAGConfig
	embedder embedding.Embedder

	mu         sync.RWMutex
	engine     *hybrid.Engine
	generation uint64

	eventsMu sync.Mutex
	events   chan models.ProgressEvent
	closed   bool
}

// NewSession creates a session with an empty index. A nil embedder is
// accepted; Index and Search then fail with ErrNotConfigured.
func NewSession(cfg config.RAGConfig, embedder embedding.Embedder) (*Session, error) {
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:      cfg,
		embedder: embedder,
		engine:   engine,
		events:   make(chan models.ProgressEvent, cfg.ProgressBuffer),
	}, nil
}

func newEngine(cfg config.RAGConfig) (*hybrid.Engine, error) {
	return hybrid.Create(
		hybrid.Schema{Dimension: cfg.EmbeddingDim},
		hybrid.WithWeights(hybrid.Weights{Text: cfg.TextWeight, Vector: cfg.VectorWeight}),
	)
}

// Events is the progress stream. Events are dropped when the reader falls
// behind. The channel is closed by Close.
func (s *Session) Events() <-chan models.ProgressEvent {
	return s.events
}

// Reset swaps in a fresh empty index. An Index call still running against
// the old index discards its batch.
func (s *Session) Reset() error {
	engine, err := newEngine(s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.engine
	s.engine = engine
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if old != nil {
		if err := old.Drop(); err != nil {
			log.Warn().Err(err).Msg("Failed to drop previous index")
		}
	}
	log.Debug().Uint64("generation", gen).Msg("Index reset")
	return nil
}

// Count is the number of passages in the current index.
func (s *Session) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return 0
	}
	return s.engine.Count()
}

// Close drops the index and closes the event stream. The session cannot be
// used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	old := s.engine
	s.engine = nil
	s.generation++
	s.mu.Unlock()

	s.eventsMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.eventsMu.Unlock()

	if old != nil {
		return old.Drop()
	}
	return nil
}

func (s *Session) snapshot() (embedding.Embedder, *hybrid.Engine, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.embedder == nil || s.engine == nil {
		return nil, nil, 0, ErrNotConfigured
	}
	return s.embedder, s.engine, s.generation, nil
}

func (s *Session) emit(ev models.ProgressEvent) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		log.Debug().Str("stage", ev.Stage).Int("percent", ev.Percent).Msg("Progress event dropped")
	}
}

// fail emits the terminal event for a failed operation and returns its error.
func (s *Session) fail(stage, component string, err error) error {
	opErr := &OperationError{Stage: stage, Component: component, Err: err}
	log.Error().Err(err).Str("stage", stage).Str("component", component).Msg("Operation failed")
	s.emit(models.ProgressEvent{
		Stage:   stage,
		Percent: 100,
		Message: opErr.Error(),
		Err:     opErr,
	})
	return opErr
}
