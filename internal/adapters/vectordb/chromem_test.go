package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfaq/internal/domain/ports"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (s staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (staticEmbedder) Model() string { return "static" }

func TestChromemIndex_OpenWithoutBuild(t *testing.T) {
	idx := NewChromemIndex(t.TempDir(), "ollama", "nomic-embed-text", staticEmbedder{})
	err := idx.Open(context.Background())
	assert.ErrorIs(t, err, ports.ErrIndexNotBuilt)
}

func TestChromemIndex_RebuildThenReopen(t *testing.T) {
	dir := t.TempDir()

	writer := NewChromemIndex(dir, "ollama", "nomic-embed-text", staticEmbedder{})
	require.NoError(t, writer.Rebuild(context.Background(), testFragments()))

	reader := NewChromemIndex(dir, "ollama", "nomic-embed-text", staticEmbedder{})
	require.NoError(t, reader.Open(context.Background()))

	stats, err := reader.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.True(t, stats.Ready)
}

func TestChromemIndex_EmbedderMismatch(t *testing.T) {
	dir := t.TempDir()

	writer := NewChromemIndex(dir, "ollama", "nomic-embed-text", staticEmbedder{})
	require.NoError(t, writer.Rebuild(context.Background(), testFragments()))

	reader := NewChromemIndex(dir, "openai", "text-embedding-ada-002", staticEmbedder{})
	err := reader.Open(context.Background())
	assert.ErrorIs(t, err, ports.ErrIndexMismatch)
}

func TestChromemIndex_Search(t *testing.T) {
	idx := NewChromemIndex(t.TempDir(), "ollama", "nomic-embed-text", staticEmbedder{})
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))

	results, err := idx.Search(context.Background(), []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "f1", results[0].Fragment.ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, "calendar.txt", results[0].Fragment.Meta.Source)
	assert.Equal(t, "d1", results[0].Fragment.DocumentID)
}

func TestChromemIndex_SearchClampsTopK(t *testing.T) {
	idx := NewChromemIndex(t.TempDir(), "ollama", "nomic-embed-text", staticEmbedder{})
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))

	results, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
