package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

const dbFileName = "vectors.db"

// SQLiteIndex implements ports.VectorIndex with SQLite-backed persistence.
// Two marker files under the index directory signal a usable index: the
// database itself and the metadata sidecar. Search is brute-force cosine
// distance over all rows, which is fine at FAQ-corpus scale.
type SQLiteIndex struct {
	dir              string
	embedderProvider string
	embedderModel    string

	mu     sync.RWMutex
	db     *sql.DB
	meta   indexMeta
	opened bool
}

// NewSQLiteIndex creates an index rooted at dir. The embedder provider and
// model identify the vector space; Open refuses indexes built with anything
// else.
func NewSQLiteIndex(dir, embedderProvider, embedderModel string) *SQLiteIndex {
	return &SQLiteIndex{
		dir:              dir,
		embedderProvider: embedderProvider,
		embedderModel:    embedderModel,
	}
}

func (s *SQLiteIndex) dbPath() string   { return filepath.Join(s.dir, dbFileName) }
func (s *SQLiteIndex) metaPath() string { return filepath.Join(s.dir, metaFileName) }

// Open loads the persisted index read-only for querying. Returns
// ports.ErrIndexNotBuilt when either marker file is absent and
// ports.ErrIndexMismatch when the index was built with a different embedder.
func (s *SQLiteIndex) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}

	if _, err := os.Stat(s.dbPath()); os.IsNotExist(err) {
		return ports.ErrIndexNotBuilt
	}
	meta, err := readMeta(s.metaPath())
	if err != nil {
		return err
	}
	if err := checkCompatible(meta, s.embedderProvider, s.embedderModel); err != nil {
		return err
	}

	db, err := sql.Open("sqlite3", s.dbPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db
	s.meta = meta
	s.opened = true
	return nil
}

// Rebuild replaces the entire index contents and rewrites the metadata
// sidecar. This is the only write path; queries never mutate.
func (s *SQLiteIndex) Rebuild(ctx context.Context, fragments []entities.Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	if s.db == nil {
		db, err := sql.Open("sqlite3", s.dbPath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		s.db = db
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fragments (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		frag_index INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		meta BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_document_id ON fragments(document_id);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments"); err != nil {
		return fmt.Errorf("clearing fragments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (id, document_id, content, frag_index, embedding, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	dimension := 0
	for _, f := range fragments {
		if dimension == 0 {
			dimension = len(f.Embedding)
		} else if len(f.Embedding) != dimension {
			return fmt.Errorf("fragment %s has dimension %d, expected %d", f.ID, len(f.Embedding), dimension)
		}

		embeddingJSON, err := json.Marshal(f.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}
		metaJSON, err := json.Marshal(f.Meta)
		if err != nil {
			return fmt.Errorf("encoding fragment metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, f.ID, f.DocumentID, f.Content, f.Index, embeddingJSON, metaJSON); err != nil {
			return fmt.Errorf("inserting fragment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fragments: %w", err)
	}

	meta := indexMeta{
		EmbedderProvider: s.embedderProvider,
		EmbedderModel:    s.embedderModel,
		Dimension:        dimension,
		TotalChunks:      len(fragments),
		BuiltAt:          nowFunc(),
	}
	if err := writeMeta(s.metaPath(), meta); err != nil {
		return err
	}

	s.meta = meta
	s.opened = true
	return nil
}

// Search returns the topK nearest fragments by ascending cosine distance.
// Rows are scanned in insertion order and sorted stably, so ties keep that
// order.
func (s *SQLiteIndex) Search(ctx context.Context, embedding []float32, topK int) ([]entities.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.opened {
		return nil, ports.ErrIndexNotBuilt
	}
	if topK <= 0 {
		topK = 2
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, content, frag_index, embedding, meta
		FROM fragments ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var results []entities.SearchResult
	for rows.Next() {
		var f entities.Fragment
		var embeddingJSON, metaJSON []byte

		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Content, &f.Index, &embeddingJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal(embeddingJSON, &f.Embedding); err != nil {
			continue // skip corrupted embeddings
		}
		if err := json.Unmarshal(metaJSON, &f.Meta); err != nil {
			continue
		}

		results = append(results, entities.SearchResult{
			Fragment: f,
			Distance: cosineDistance(embedding, f.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the index shape. Zeros on an unopened index, never an error.
func (s *SQLiteIndex) Stats(ctx context.Context) (entities.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.opened {
		return entities.IndexStats{}, nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&count); err != nil {
		return entities.IndexStats{}, fmt.Errorf("counting fragments: %w", err)
	}
	return entities.IndexStats{
		TotalChunks:        count,
		EmbeddingDimension: s.meta.Dimension,
		Ready:              true,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.opened = false
	return err
}
