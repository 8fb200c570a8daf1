// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions, never on concrete adapters, so the
// remote and local provider variants stay substitutable behind the same
// boundary.
package ports

import (
	"context"
	"errors"

	"campusfaq/internal/domain/entities"
)

// Sentinel errors shared across adapters.
var (
	// ErrIndexNotBuilt signals that the persisted index markers are absent:
	// ingestion has never run. Fatal at setup time.
	ErrIndexNotBuilt = errors.New("vector index not built")

	// ErrIndexMismatch signals that the persisted index was built with a
	// different embedding provider or model than the one configured now.
	ErrIndexMismatch = errors.New("vector index embedder mismatch")

	// ErrMissingAPIKey signals an absent credential for a remote provider.
	// Fatal at construction time, never silently tolerated.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model. An index built with one model
	// must only be queried with the same model.
	Model() string
}

// Generator produces text from a bounded prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorIndex persists fragments with their embeddings and supports
// k-nearest-neighbor search by vector distance. The query pipeline treats
// it as immutable once opened; only ingestion rebuilds it.
type VectorIndex interface {
	// Open loads the persisted index and verifies it is usable with the
	// configured embedder. Returns ErrIndexNotBuilt when the marker files
	// are missing and ErrIndexMismatch on embedder disagreement.
	Open(ctx context.Context) error

	// Rebuild replaces the entire index contents with the given fragments.
	Rebuild(ctx context.Context, fragments []entities.Fragment) error

	// Search returns the topK nearest fragments by ascending distance.
	// Ties keep insertion order.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error)

	// Stats reports the current index shape. Never fails on an unopened
	// index; it reports zeros instead.
	Stats(ctx context.Context) (entities.IndexStats, error)
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
