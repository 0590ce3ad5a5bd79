package rag

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"transcript-rag/internal/models"
)

type request struct {
	ctx  context.Context
	run  func(ctx context.Context)
	done chan struct{}
}

// Worker runs Index and Search requests for one Session on a single
// goroutine, in submission order. Submitting to a full queue fails with
// ErrQueueFull instead of waiting.
type Worker struct {
	session  *Session
	requests chan request

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorker(session *Session, queueSize int) *Worker {
	w := &Worker{
		session:  session,
		requests: make(chan request, queueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for req := range w.requests {
		req.run(req.ctx)
		close(req.done)
	}
	log.Debug().Msg("Worker stopped")
}

func (w *Worker) enqueue(req request) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWorkerClosed
	}
	select {
	case w.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// do queues fn and waits for the worker to run it.
func (w *Worker) do(ctx context.Context, fn func(ctx context.Context)) error {
	req := request{ctx: ctx, run: fn, done: make(chan struct{})}
	if err := w.enqueue(req); err != nil {
		return err
	}
	<-req.done
	return nil
}

func (w *Worker) Index(ctx context.Context, segments []models.TranscriptSegment) error {
	var err error
	if qErr := w.do(ctx, func(ctx context.Context) {
		err = w.session.Index(ctx, segments)
	}); qErr != nil {
		return qErr
	}
	return err
}

func (w *Worker) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	var (
		results []models.SearchResult
		err     error
	)
	if qErr := w.do(ctx, func(ctx context.Context) {
		results, err = w.session.Search(ctx, query, limit)
	}); qErr != nil {
		return nil, qErr
	}
	return results, err
}

// Reset does not wait behind queued requests; an Index still running
// discards its batch.
func (w *Worker) Reset() error {
	return w.session.Reset()
}

func (w *Worker) Events() <-chan models.ProgressEvent {
	return w.session.Events()
}

// Close stops accepting requests, waits for the queued ones to finish and
// closes the session.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.requests)
	w.mu.Unlock()

	w.wg.Wait()
	return w.session.Close()
}
