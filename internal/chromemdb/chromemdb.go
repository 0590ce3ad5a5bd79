package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// VectorDBManager encapsulates the chromem-go database operations for one
// in-memory collection.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorDBManager initializes a new in-memory vector database manager.
// Nothing is written to disk; the collection lives as long as the manager.
func NewVectorDBManager() *VectorDBManager {
	return &VectorDBManager{db: chromem.NewDB()}
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	// embeddings are always supplied by the caller, so no embedding func
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c
	return c, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if len(documents) == 0 {
		return nil
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	log.Debug().Int("count", len(documents)).Str("collection", m.collection.Name).Msg("Added documents")
	return nil
}

// SearchWithQueryOptions performs a similarity search. NResults is clamped to
// the collection size, and an empty collection yields no results.
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}

	count := m.collection.Count()
	if count == 0 || opts.NResults <= 0 {
		return nil, nil
	}
	opts.NResults = min(opts.NResults, count)

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

func (m *VectorDBManager) GetByID(ctx context.Context, id string) (chromem.Document, error) {
	if m.collection == nil {
		return chromem.Document{}, fmt.Errorf("collection is required")
	}
	doc, err := m.collection.GetByID(ctx, id)
	if err != nil {
		return chromem.Document{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if m.collection == nil {
		return nil
	}
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	m.collection = nil
	return nil
}
