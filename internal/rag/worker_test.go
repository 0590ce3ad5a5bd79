package rag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunsRequests(t *testing.T) {
	s, err := NewSession(testConfig(), constantEmbedder(1, 0, 0, 0))
	require.NoError(t, err)
	w := NewWorker(s, 4)
	ctx := context.Background()

	require.NoError(t, w.Index(ctx, sampleSegments))
	results, err := w.Search(ctx, "intuition hunch", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, segmentIDs(results))

	require.NoError(t, w.Reset())
	results, err = w.Search(ctx, "intuition hunch", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, w.Close())
}

func TestWorkerQueueFull(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s, err := NewSession(testConfig(), funcEmbedder(func(context.Context, string) ([]float32, error) {
		once.Do(func() { close(started) })
		<-release
		return []float32{1, 0, 0, 0}, nil
	}))
	require.NoError(t, err)
	w := NewWorker(s, 1)
	ctx := context.Background()

	errs := make(chan error, 2)
	go func() { errs <- w.Index(ctx, sampleSegments) }()
	<-started
	go func() { errs <- w.Index(ctx, sampleSegments) }()
	require.Eventually(t, func() bool { return len(w.requests) == 1 }, time.Second, time.Millisecond)

	_, err = w.Search(ctx, "intuition", 1)
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.NoError(t, w.Close())
}

func TestWorkerClose(t *testing.T) {
	s, err := NewSession(testConfig(), constantEmbedder(1, 0, 0, 0))
	require.NoError(t, err)
	w := NewWorker(s, 2)
	require.NoError(t, w.Index(context.Background(), sampleSegments))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Index(context.Background(), sampleSegments), ErrWorkerClosed)
	_, err = w.Search(context.Background(), "intuition", 1)
	assert.ErrorIs(t, err, ErrWorkerClosed)

	// buffered events are still readable, then the stream ends
	for range w.Events() {
	}
}
