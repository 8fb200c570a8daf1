// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, providers or
// transport.
package entities

import "time"

// Document represents a source document (PDF, TXT, MD) before chunking.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FragmentMeta carries the attribution metadata of a fragment.
// OriginalContent is set only when the fragment was compressed during
// ingestion; consumers that build generation context must prefer it over the
// compressed Content.
type FragmentMeta struct {
	Source           string  `json:"source"`
	Page             int     `json:"page,omitempty"`
	Compressed       bool    `json:"compressed,omitempty"`
	OriginalContent  string  `json:"original_content,omitempty"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
}

// Fragment is an immutable unit of retrievable text. Fragments are created
// once during ingestion and read-only afterwards.
type Fragment struct {
	ID         string       `json:"id"`
	DocumentID string       `json:"document_id"`
	Content    string       `json:"content"`
	Index      int          `json:"index"` // Position in document
	Embedding  []float32    `json:"-"`
	Meta       FragmentMeta `json:"metadata"`
}

// ContextContent returns the text that should feed generation: the
// pre-compression original when present, the stored content otherwise.
func (f Fragment) ContextContent() string {
	if f.Meta.Compressed && f.Meta.OriginalContent != "" {
		return f.Meta.OriginalContent
	}
	return f.Content
}

// SearchResult pairs a retrieved fragment with its distance to the query
// vector. Smaller distance means more relevant.
type SearchResult struct {
	Fragment Fragment
	Distance float64
}

// AnswerResponse is the outcome of one question. Success discriminates
// between a populated Answer+Sources and a populated Error.
type AnswerResponse struct {
	Answer  string     `json:"answer"`
	Sources []Fragment `json:"sources"`
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
}

// ChatTurn is one successful question/answer exchange with its cited
// fragments.
type ChatTurn struct {
	Question string     `json:"question"`
	Answer   string     `json:"answer"`
	Sources  []Fragment `json:"sources"`
}

// IndexStats describes the loaded similarity index.
type IndexStats struct {
	TotalChunks        int  `json:"total_chunks"`
	EmbeddingDimension int  `json:"embedding_dimension"`
	Ready              bool `json:"ready"`
}
