package vectordb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

func testFragments() []entities.Fragment {
	return []entities.Fragment{
		{
			ID:         "f1",
			DocumentID: "d1",
			Content:    "Fall semester begins August 25, 2025.",
			Index:      0,
			Embedding:  []float32{1, 0, 0},
			Meta:       entities.FragmentMeta{Source: "calendar.txt", Page: 1},
		},
		{
			ID:         "f2",
			DocumentID: "d1",
			Content:    "Spring semester begins January 12, 2026.",
			Index:      1,
			Embedding:  []float32{0, 1, 0},
			Meta:       entities.FragmentMeta{Source: "calendar.txt", Page: 2},
		},
		{
			ID:         "f3",
			DocumentID: "d2",
			Content:    "The library is open until midnight.",
			Index:      0,
			Embedding:  []float32{0, 0, 1},
			Meta:       entities.FragmentMeta{Source: "library.txt", Page: 1},
		},
	}
}

func TestSQLiteIndex_OpenWithoutBuild(t *testing.T) {
	idx := NewSQLiteIndex(filepath.Join(t.TempDir(), "missing"), "ollama", "nomic-embed-text")
	err := idx.Open(context.Background())
	assert.ErrorIs(t, err, ports.ErrIndexNotBuilt)
}

func TestSQLiteIndex_OpenWithoutMetaSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, dbFileName), []byte{}, 0o644))

	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	err := idx.Open(context.Background())
	assert.ErrorIs(t, err, ports.ErrIndexNotBuilt)
}

func TestSQLiteIndex_RebuildThenReopen(t *testing.T) {
	dir := t.TempDir()

	writer := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, writer.Rebuild(context.Background(), testFragments()))
	require.NoError(t, writer.Close())

	// A fresh instance, as the query process would create.
	reader := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, reader.Open(context.Background()))
	defer reader.Close()

	stats, err := reader.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 3, stats.EmbeddingDimension)
	assert.True(t, stats.Ready)
}

func TestSQLiteIndex_EmbedderMismatch(t *testing.T) {
	dir := t.TempDir()

	writer := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, writer.Rebuild(context.Background(), testFragments()))
	require.NoError(t, writer.Close())

	reader := NewSQLiteIndex(dir, "openai", "text-embedding-ada-002")
	err := reader.Open(context.Background())
	assert.ErrorIs(t, err, ports.ErrIndexMismatch)
}

func TestSQLiteIndex_SearchOrdering(t *testing.T) {
	dir := t.TempDir()
	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))
	defer idx.Close()

	// Closest to the first axis, then the second.
	results, err := idx.Search(context.Background(), []float32{0.9, 0.4, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "f1", results[0].Fragment.ID)
	assert.Equal(t, "f2", results[1].Fragment.ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, "calendar.txt", results[0].Fragment.Meta.Source)
}

func TestSQLiteIndex_SearchTiesKeepInsertionOrder(t *testing.T) {
	dir := t.TempDir()
	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")

	// Both fragments are equidistant from the query.
	fragments := []entities.Fragment{
		{ID: "a", DocumentID: "d", Content: "first", Embedding: []float32{1, 0}},
		{ID: "b", DocumentID: "d", Content: "second", Embedding: []float32{0, 1}},
	}
	require.NoError(t, idx.Rebuild(context.Background(), fragments))
	defer idx.Close()

	results, err := idx.Search(context.Background(), []float32{1, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Fragment.ID)
	assert.Equal(t, "b", results[1].Fragment.ID)
}

func TestSQLiteIndex_SearchDefaultTopK(t *testing.T) {
	dir := t.TempDir()
	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))
	defer idx.Close()

	results, err := idx.Search(context.Background(), []float32{1, 1, 1}, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSQLiteIndex_RebuildReplacesContents(t *testing.T) {
	dir := t.TempDir()
	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))

	replacement := []entities.Fragment{
		{ID: "only", DocumentID: "d9", Content: "sole fragment", Embedding: []float32{1, 2, 3}},
	}
	require.NoError(t, idx.Rebuild(context.Background(), replacement))
	defer idx.Close()

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
}

func TestSQLiteIndex_DimensionConsistency(t *testing.T) {
	idx := NewSQLiteIndex(t.TempDir(), "ollama", "nomic-embed-text")
	err := idx.Rebuild(context.Background(), []entities.Fragment{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1, 0, 0}},
	})
	assert.Error(t, err)
}

func TestSQLiteIndex_StatsBeforeOpen(t *testing.T) {
	idx := NewSQLiteIndex(t.TempDir(), "ollama", "nomic-embed-text")
	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
	assert.False(t, stats.Ready)
}

func TestSQLiteIndex_MetaSidecarContents(t *testing.T) {
	dir := t.TempDir()
	idx := NewSQLiteIndex(dir, "ollama", "nomic-embed-text")
	require.NoError(t, idx.Rebuild(context.Background(), testFragments()))
	defer idx.Close()

	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	require.NoError(t, err)

	var meta indexMeta
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "ollama", meta.EmbedderProvider)
	assert.Equal(t, "nomic-embed-text", meta.EmbedderModel)
	assert.Equal(t, 3, meta.Dimension)
	assert.Equal(t, 3, meta.TotalChunks)
	assert.False(t, meta.BuiltAt.IsZero())
}
