package vectordb

import (
	"context"
	"sort"
	"sync"

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

// MemoryIndex is an in-process ports.VectorIndex with no persistence. Used
// in tests and ephemeral runs where ingestion and querying share a process.
type MemoryIndex struct {
	mu        sync.RWMutex
	fragments []entities.Fragment
	dimension int
	built     bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Open succeeds once the index has been built in this process.
func (m *MemoryIndex) Open(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.built {
		return ports.ErrIndexNotBuilt
	}
	return nil
}

// Rebuild replaces the index contents.
func (m *MemoryIndex) Rebuild(ctx context.Context, fragments []entities.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fragments = make([]entities.Fragment, len(fragments))
	copy(m.fragments, fragments)
	m.dimension = 0
	if len(fragments) > 0 {
		m.dimension = len(fragments[0].Embedding)
	}
	m.built = true
	return nil
}

// Search returns the topK nearest fragments by ascending cosine distance,
// ties kept in insertion order.
func (m *MemoryIndex) Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.built {
		return nil, ports.ErrIndexNotBuilt
	}
	if topK <= 0 {
		topK = 2
	}

	results := make([]entities.SearchResult, 0, len(m.fragments))
	for _, f := range m.fragments {
		results = append(results, entities.SearchResult{
			Fragment: f,
			Distance: cosineDistance(embedding, f.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the index shape.
func (m *MemoryIndex) Stats(ctx context.Context) (entities.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.built {
		return entities.IndexStats{}, nil
	}
	return entities.IndexStats{
		TotalChunks:        len(m.fragments),
		EmbeddingDimension: m.dimension,
		Ready:              true,
	}, nil
}
