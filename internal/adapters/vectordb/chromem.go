package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

const chromemCollection = "fragments"

// ChromemIndex implements ports.VectorIndex on top of chromem-go's embedded
// persistent store. Selected with vector_store.type "chromem"; same marker
// semantics as the SQLite index via the shared metadata sidecar.
type ChromemIndex struct {
	dir              string
	embedderProvider string
	embedderModel    string
	embedFunc        chromem.EmbeddingFunc

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	meta       indexMeta
	opened     bool
}

// NewChromemIndex creates a chromem-backed index rooted at dir. The embedder
// is wrapped into chromem's embedding function for documents added without a
// precomputed vector.
func NewChromemIndex(dir, embedderProvider, embedderModel string, embedder ports.Embedder) *ChromemIndex {
	return &ChromemIndex{
		dir:              dir,
		embedderProvider: embedderProvider,
		embedderModel:    embedderModel,
		embedFunc: func(ctx context.Context, text string) ([]float32, error) {
			return embedder.Embed(ctx, text)
		},
	}
}

func (c *ChromemIndex) metaPath() string { return filepath.Join(c.dir, metaFileName) }

// Open loads the persisted collection and verifies embedder compatibility.
func (c *ChromemIndex) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return nil
	}

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return ports.ErrIndexNotBuilt
	}
	meta, err := readMeta(c.metaPath())
	if err != nil {
		return err
	}
	if err := checkCompatible(meta, c.embedderProvider, c.embedderModel); err != nil {
		return err
	}

	db, err := chromem.NewPersistentDB(c.dir, false)
	if err != nil {
		return fmt.Errorf("opening chromem db: %w", err)
	}
	col, err := db.GetOrCreateCollection(chromemCollection, nil, c.embedFunc)
	if err != nil {
		return fmt.Errorf("opening chromem collection: %w", err)
	}
	if col.Count() == 0 {
		return ports.ErrIndexNotBuilt
	}

	c.db = db
	c.collection = col
	c.meta = meta
	c.opened = true
	return nil
}

// Rebuild replaces the collection contents and rewrites the metadata
// sidecar.
func (c *ChromemIndex) Rebuild(ctx context.Context, fragments []entities.Fragment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	if c.db == nil {
		db, err := chromem.NewPersistentDB(c.dir, false)
		if err != nil {
			return fmt.Errorf("opening chromem db: %w", err)
		}
		c.db = db
	}

	// Drop and recreate for a clean replace.
	if err := c.db.DeleteCollection(chromemCollection); err != nil {
		return fmt.Errorf("clearing chromem collection: %w", err)
	}
	col, err := c.db.CreateCollection(chromemCollection, nil, c.embedFunc)
	if err != nil {
		return fmt.Errorf("creating chromem collection: %w", err)
	}

	dimension := 0
	docs := make([]chromem.Document, 0, len(fragments))
	for _, f := range fragments {
		if dimension == 0 {
			dimension = len(f.Embedding)
		}
		docs = append(docs, chromem.Document{
			ID:        f.ID,
			Content:   f.Content,
			Embedding: f.Embedding,
			Metadata:  fragmentMetaToMap(f),
		})
	}
	if len(docs) > 0 {
		if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("adding documents: %w", err)
		}
	}

	meta := indexMeta{
		EmbedderProvider: c.embedderProvider,
		EmbedderModel:    c.embedderModel,
		Dimension:        dimension,
		TotalChunks:      len(fragments),
		BuiltAt:          nowFunc(),
	}
	if err := writeMeta(c.metaPath(), meta); err != nil {
		return err
	}

	c.collection = col
	c.meta = meta
	c.opened = true
	return nil
}

// Search returns the topK nearest fragments by ascending cosine distance.
func (c *ChromemIndex) Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.opened {
		return nil, ports.ErrIndexNotBuilt
	}
	if topK <= 0 {
		topK = 2
	}
	if count := c.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	docs, err := c.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}

	results := make([]entities.SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, entities.SearchResult{
			Fragment: fragmentFromChromem(d),
			Distance: 1 - float64(d.Similarity),
		})
	}
	return results, nil
}

// Stats reports the index shape.
func (c *ChromemIndex) Stats(ctx context.Context) (entities.IndexStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.opened {
		return entities.IndexStats{}, nil
	}
	return entities.IndexStats{
		TotalChunks:        c.collection.Count(),
		EmbeddingDimension: c.meta.Dimension,
		Ready:              true,
	}, nil
}

func fragmentMetaToMap(f entities.Fragment) map[string]string {
	m := map[string]string{
		"document_id": f.DocumentID,
		"index":       strconv.Itoa(f.Index),
		"source":      f.Meta.Source,
		"page":        strconv.Itoa(f.Meta.Page),
	}
	if f.Meta.Compressed {
		m["compressed"] = "true"
		m["original_content"] = f.Meta.OriginalContent
	}
	return m
}

func fragmentFromChromem(d chromem.Result) entities.Fragment {
	index, _ := strconv.Atoi(d.Metadata["index"])
	page, _ := strconv.Atoi(d.Metadata["page"])
	return entities.Fragment{
		ID:         d.ID,
		DocumentID: d.Metadata["document_id"],
		Content:    d.Content,
		Index:      index,
		Embedding:  d.Embedding,
		Meta: entities.FragmentMeta{
			Source:          d.Metadata["source"],
			Page:            page,
			Compressed:      d.Metadata["compressed"] == "true",
			OriginalContent: d.Metadata["original_content"],
		},
	}
}
