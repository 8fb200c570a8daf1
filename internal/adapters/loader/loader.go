// Package loader provides document loading adapters.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campusfaq/internal/domain/entities"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   string(content),
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader extracts PDF text through an external extraction service. Text
// extraction itself is outside this system; only the interface is ours.
type PDFLoader struct {
	serviceURL string
}

// NewPDFLoader creates a PDF loader pointed at the default local service.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{serviceURL: "http://localhost:8081"}
}

// NewPDFLoaderWithURL creates a PDF loader with a custom service URL.
func NewPDFLoaderWithURL(url string) *PDFLoader {
	return &PDFLoader{serviceURL: url}
}

// Load reads a PDF via the extraction service. Extraction failures produce
// an error rather than an empty document so ingestion can skip the file.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := l.extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", filepath.Base(path), err)
	}

	info, _ := os.Stat(path)
	modTime := time.Now()
	if info != nil {
		modTime = info.ModTime()
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   text,
		CreatedAt: modTime,
		UpdatedAt: time.Now(),
	}, nil
}

func (l *PDFLoader) extract(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("pdf parse: %s", result.Error)
	}
	return result.Text, nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to format-specific loaders by extension.
type MultiLoader struct {
	loaders map[string]interface {
		Load(context.Context, string) (*entities.Document, error)
	}
}

// NewMultiLoader creates a loader covering all supported document formats.
func NewMultiLoader(pdfServiceURL string) *MultiLoader {
	text := NewTextLoader()
	pdf := NewPDFLoaderWithURL(pdfServiceURL)
	if pdfServiceURL == "" {
		pdf = NewPDFLoader()
	}
	return &MultiLoader{
		loaders: map[string]interface {
			Load(context.Context, string) (*entities.Document, error)
		}{
			".txt":      text,
			".md":       text,
			".markdown": text,
			".pdf":      pdf,
		},
	}
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		loader = NewTextLoader()
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
