// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"campusfaq/internal/domain/entities"
	"campusfaq/internal/domain/ports"
)

// ErrNotReady is returned by Setup-dependent operations before Setup has
// completed successfully.
var ErrNotReady = errors.New("pipeline not ready: call Setup first")

// PipelineState tracks pipeline initialization progress.
type PipelineState int

const (
	StateUninitialized PipelineState = iota
	StateIndexLoaded
	StateReady
	StateFailed
)

// Truncation boundaries. The generation providers have hard input-size
// limits; content beyond a cap is silently dropped, keeping the prefix.
const (
	// MaxFragmentChars bounds each fragment individually so one long
	// fragment cannot crowd out the others.
	MaxFragmentChars = 400

	// MaxContextChars bounds the joined context block.
	MaxContextChars = 1500

	// MaxPromptChars bounds the final prompt, instruction text included.
	// A second safety net independent of the context cap.
	MaxPromptChars = 3000
)

// Pipeline answers natural-language questions over an already-built
// similarity index. Construct once per process, call Setup once, then query
// many times. Setup is serialized internally; AnswerQuestion is safe for
// concurrent use provided the underlying provider clients are reentrant.
type Pipeline struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.Generator
	topK      int

	mu    sync.Mutex
	state PipelineState
}

// NewPipeline creates a Pipeline with injected dependencies.
func NewPipeline(embedder ports.Embedder, index ports.VectorIndex, generator ports.Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = 2
	}
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
	}
}

// Setup loads the persisted vector index and readies the pipeline for
// queries. A missing index is a setup precondition failure, not a
// retry-able condition; the error propagates and the pipeline ends up
// in the failed state.
func (p *Pipeline) Setup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReady {
		return nil
	}

	slog.Info("loading vector index")
	if err := p.index.Open(ctx); err != nil {
		p.state = StateFailed
		if errors.Is(err, ports.ErrIndexNotBuilt) {
			return fmt.Errorf("vector index not found, run ingestion first: %w", err)
		}
		return fmt.Errorf("loading vector index: %w", err)
	}
	p.state = StateIndexLoaded

	stats, err := p.index.Stats(ctx)
	if err != nil {
		p.state = StateFailed
		return fmt.Errorf("reading index stats: %w", err)
	}

	p.state = StateReady
	slog.Info("pipeline ready", "chunks", stats.TotalChunks, "dimension", stats.EmbeddingDimension)
	return nil
}

// State returns the current pipeline state.
func (p *Pipeline) State() PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AnswerQuestion runs the full question-answering protocol: validate,
// retrieve, assemble a bounded context, generate, extract. Failures after
// validation are converted to a structured response; the pipeline stays
// ready for subsequent queries.
func (p *Pipeline) AnswerQuestion(ctx context.Context, question string) entities.AnswerResponse {
	if err := ValidateQuestion(question); err != nil {
		return failure(err.Error())
	}

	if p.State() != StateReady {
		return failure(ErrNotReady.Error())
	}

	queryVec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		slog.Error("embedding question failed", "err", err)
		return failure(fmt.Sprintf("An error occurred: %v", err))
	}

	results, err := p.index.Search(ctx, queryVec, p.topK)
	if err != nil {
		slog.Error("similarity search failed", "err", err)
		return failure(fmt.Sprintf("An error occurred: %v", err))
	}

	// Prefer original (pre-compression) content and cap each fragment so a
	// single long one cannot exhaust the context budget. The returned
	// sources carry the same processed content the model saw.
	sources := make([]entities.Fragment, 0, len(results))
	contextParts := make([]string, 0, len(results))
	for _, r := range results {
		content := truncateRunes(r.Fragment.ContextContent(), MaxFragmentChars)
		processed := r.Fragment
		processed.Content = content
		sources = append(sources, processed)
		contextParts = append(contextParts, content)
	}

	prompt := BuildPrompt(question, contextParts)

	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Error("generation failed", "err", err)
		return failure(fmt.Sprintf("An error occurred: %v", err))
	}

	answer := ExtractAnswer(raw, prompt)

	return entities.AnswerResponse{
		Answer:  answer,
		Sources: sources,
		Success: true,
	}
}

// GetStats reports the loaded index shape. All zeros and not ready before
// Setup has completed; never fails.
func (p *Pipeline) GetStats(ctx context.Context) entities.IndexStats {
	if p.State() != StateReady {
		return entities.IndexStats{}
	}
	stats, err := p.index.Stats(ctx)
	if err != nil {
		return entities.IndexStats{}
	}
	stats.Ready = true
	return stats
}

func failure(msg string) entities.AnswerResponse {
	return entities.AnswerResponse{
		Sources: []entities.Fragment{},
		Success: false,
		Error:   msg,
	}
}

// truncateRunes keeps at most n characters of s. Truncation is silent and
// always keeps the prefix.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
