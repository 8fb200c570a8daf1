// Package vectordb provides vector index adapters implementing
// ports.VectorIndex.
package vectordb

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"campusfaq/internal/domain/ports"
)

// metaFileName is one of the two marker files signalling a usable index.
const metaFileName = "index_meta.json"

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// indexMeta is the metadata sidecar written at build time. An index is only
// queryable with the same embedding model it was built with; Open enforces
// that through this record.
type indexMeta struct {
	EmbedderProvider string    `json:"embedder_provider"`
	EmbedderModel    string    `json:"embedder_model"`
	Dimension        int       `json:"dimension"`
	TotalChunks      int       `json:"total_chunks"`
	BuiltAt          time.Time `json:"built_at"`
}

func writeMeta(path string, meta indexMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readMeta(path string) (indexMeta, error) {
	var meta indexMeta
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return meta, ports.ErrIndexNotBuilt
		}
		return meta, fmt.Errorf("reading index metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decoding index metadata: %w", err)
	}
	return meta, nil
}

// checkCompatible verifies the persisted index matches the configured
// embedder. Mismatched models mean mismatched vector spaces.
func checkCompatible(meta indexMeta, provider, model string) error {
	if meta.EmbedderProvider != provider || meta.EmbedderModel != model {
		return fmt.Errorf("index built with %s/%s, configured %s/%s: %w",
			meta.EmbedderProvider, meta.EmbedderModel, provider, model, ports.ErrIndexMismatch)
	}
	return nil
}

// cosineDistance is 1 minus the cosine similarity of two vectors. Lower is
// closer; degenerate vectors compare as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
