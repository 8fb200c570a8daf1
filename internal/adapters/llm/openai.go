package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campusfaq/internal/domain/ports"
)

// OpenAIAdapter implements ports.Generator against the OpenAI chat
// completions API (or any compatible endpoint).
type OpenAIAdapter struct {
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

// OpenAIConfig configures the remote generation adapter.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Options Options
}

// NewOpenAIAdapter creates the remote generation adapter. A missing API key
// fails construction immediately; there is no automatic fallback to the
// local variant.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai llm: %w", ports.ErrMissingAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Options.MaxOutputTokens <= 0 {
		cfg.Options.MaxOutputTokens = 500
	}
	return &OpenAIAdapter{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		opts:    cfg.Options,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}

// Generate produces text for the given prompt. The wrapped chat response is
// normalized to plain text here, so callers only ever see a string.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := openaiChatRequest{
		Model:       a.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxOutputTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI returned status %d", resp.StatusCode)
	}

	var chatResp openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
