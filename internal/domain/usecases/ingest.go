package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

// compressionPrompt wraps a chunk for the optional summarization pass.
const compressionPrompt = `You are a text summarization expert. Summarize the following text concisely while preserving all key information, facts, dates, and important details.

Text to summarize:
%s

Summary:`

// Chunks shorter than this are never worth compressing.
const minCompressibleChars = 200

// IngestOptions configures the ingestion pipeline.
type IngestOptions struct {
	ChunkSize          int     // characters per chunk
	ChunkOverlap       int     // characters shared between adjacent chunks
	CompressionEnabled bool    // summarize chunks before indexing
	CompressionRatio   float64 // truncation target when summarization fails
}

// Ingester builds the vector index from a directory of source documents:
// load, clean, chunk, optionally compress, embed, rebuild. The query
// pipeline never mutates the index; this is the only writer.
type Ingester struct {
	loader   ports.DocumentLoader
	embedder ports.Embedder
	index    ports.VectorIndex

	// generator is only needed when compression is enabled; it is nil
	// otherwise.
	generator ports.Generator
	opts      IngestOptions
}

// NewIngester creates an Ingester with injected dependencies.
func NewIngester(loader ports.DocumentLoader, embedder ports.Embedder, index ports.VectorIndex, generator ports.Generator, opts IngestOptions) *Ingester {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 100
	}
	if opts.CompressionRatio <= 0 || opts.CompressionRatio > 1 {
		opts.CompressionRatio = 0.5
	}
	return &Ingester{
		loader:    loader,
		embedder:  embedder,
		index:     index,
		generator: generator,
		opts:      opts,
	}
}

// IngestDir processes every supported document under dir and atomically
// rebuilds the index from the resulting fragments. Returns the number of
// fragments indexed.
func (ing *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	paths, err := ing.discover(dir)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("no documents found in %s", dir)
	}
	slog.Info("ingesting documents", "dir", dir, "files", len(paths))

	var fragments []entities.Fragment
	for _, path := range paths {
		doc, err := ing.loader.Load(ctx, path)
		if err != nil {
			slog.Warn("skipping unreadable document", "path", path, "err", err)
			continue
		}
		doc.Content = CleanText(doc.Content)
		chunks := ing.chunkDocument(doc)
		fragments = append(fragments, chunks...)
	}
	if len(fragments) == 0 {
		return 0, fmt.Errorf("no text extracted from documents in %s", dir)
	}
	slog.Info("chunked documents", "fragments", len(fragments))

	if ing.opts.CompressionEnabled {
		fragments = ing.compressFragments(ctx, fragments)
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Content
	}
	embeddings, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding fragments: %w", err)
	}
	for i := range fragments {
		fragments[i].Embedding = embeddings[i]
	}

	if err := ing.index.Rebuild(ctx, fragments); err != nil {
		return 0, fmt.Errorf("rebuilding index: %w", err)
	}
	slog.Info("index rebuilt", "fragments", len(fragments))
	return len(fragments), nil
}

// discover lists supported files under dir in deterministic order.
func (ing *Ingester) discover(dir string) ([]string, error) {
	supported := make(map[string]bool)
	for _, ext := range ing.loader.SupportedExtensions() {
		supported[ext] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supported[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// chunkDocument splits document content into overlapping character chunks,
// breaking at word boundaries where possible.
func (ing *Ingester) chunkDocument(doc *entities.Document) []entities.Fragment {
	content := strings.TrimSpace(doc.Content)
	if content == "" {
		return nil
	}

	var fragments []entities.Fragment
	runes := []rune(content)
	start := 0
	index := 0

	for start < len(runes) {
		end := start + ing.opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Try to break at a word boundary
		if end < len(runes) {
			if lastSpace := strings.LastIndex(string(runes[start:end]), " "); lastSpace > 0 {
				end = start + len([]rune(string(runes[start:end])[:lastSpace]))
			}
		}

		text := strings.TrimSpace(string(runes[start:end]))
		if text != "" {
			fragments = append(fragments, entities.Fragment{
				ID:         fragmentID(doc.ID, index),
				DocumentID: doc.ID,
				Content:    text,
				Index:      index,
				Meta: entities.FragmentMeta{
					Source: doc.Name,
					Page:   index + 1,
				},
			})
			index++
		}

		if end == len(runes) {
			break
		}
		next := end - ing.opts.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}

	return fragments
}

// compressFragments summarizes each fragment through the generator, keeping
// the original text in metadata so the query path can prefer it. A failed
// summarization falls back to ratio truncation rather than aborting the run.
func (ing *Ingester) compressFragments(ctx context.Context, fragments []entities.Fragment) []entities.Fragment {
	slog.Info("compressing fragments", "count", len(fragments))
	out := make([]entities.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if len([]rune(f.Content)) < minCompressibleChars {
			out = append(out, f)
			continue
		}
		compressed := ing.compressText(ctx, f.Content)
		f.Meta.OriginalContent = f.Content
		f.Meta.Compressed = true
		f.Meta.CompressionRatio = float64(len(compressed)) / float64(len(f.Content))
		f.Content = compressed
		out = append(out, f)
	}
	return out
}

func (ing *Ingester) compressText(ctx context.Context, text string) string {
	if ing.generator != nil {
		summary, err := ing.generator.Generate(ctx, fmt.Sprintf(compressionPrompt, text))
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			slog.Warn("compression failed, truncating instead", "err", err)
		}
	}
	target := int(float64(len([]rune(text))) * ing.opts.CompressionRatio)
	return truncateRunes(text, target) + "..."
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	garbageRe     = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-'"]+`)
	punctRepeatRe = regexp.MustCompile(`([.,!?;:]){2,}`)
)

// CleanText normalizes extracted document text: collapses whitespace, strips
// characters outside basic punctuation, and de-duplicates consecutive
// punctuation.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = garbageRe.ReplaceAllString(text, "")
	text = punctRepeatRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// fragmentID creates a deterministic ID for a fragment.
func fragmentID(docID string, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", docID, index)))
	return hex.EncodeToString(hash[:8])
}
