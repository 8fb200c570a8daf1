// Package llm provides generation provider adapters implementing
// ports.Generator. The Ollama adapter is the local, credential-free default;
// the OpenAI adapter is the remote variant.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Options are generation parameters fixed at construction time.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// OllamaAdapter implements ports.Generator against a local Ollama server.
type OllamaAdapter struct {
	baseURL string
	model   string
	opts    Options
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama generation adapter.
func NewOllamaAdapter(baseURL, model string, opts Options) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 500
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		opts:    opts,
		client: &http.Client{
			Timeout: 300 * time.Second, // local models can be slow
		},
	}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces text for the given prompt in a single bounded call.
func (a *OllamaAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: a.opts.Temperature,
			NumPredict:  a.opts.MaxOutputTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return genResp.Response, nil
}
