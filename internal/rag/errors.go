package rag

import (
	"errors"
	"fmt"

	"transcript-rag/internal/hybrid"
)

const (
	StageIndex  = "index"
	StageSearch = "search"

	ComponentEmbedder    = "embedder"
	ComponentIndexEngine = "index engine"
)

var (
	// ErrNotConfigured means the session has no embedder or no index engine.
	ErrNotConfigured = errors.New("embedder or index engine is not configured")
	ErrInvalidLimit  = errors.New("limit must be at least 1")
	ErrNoPassages    = errors.New("no passages to answer from")

	ErrDimensionMismatch = hybrid.ErrDimensionMismatch

	ErrQueueFull    = errors.New("worker queue is full")
	ErrWorkerClosed = errors.New("worker is closed")
)

// OperationError reports the failure of one Index or Search call.
type OperationError struct {
	Stage     string
	Component string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed in %s: %v", e.Stage, e.Component, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
