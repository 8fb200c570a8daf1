package usecases

import (
	"context"
	"sync"

	"campusfaq/internal/domain/entities"
)

// ChatSession records an ordered transcript of successful exchanges for one
// user session. It shares (does not own) a pipeline; the transcript lives in
// process memory only and does not survive restarts.
type ChatSession struct {
	pipeline *Pipeline

	mu      sync.Mutex
	history []entities.ChatTurn
}

// NewChatSession creates a session over an initialized pipeline.
func NewChatSession(pipeline *Pipeline) *ChatSession {
	return &ChatSession{pipeline: pipeline}
}

// Ask delegates to the pipeline and appends a turn to the transcript only
// when the question succeeded. The response is returned either way.
func (s *ChatSession) Ask(ctx context.Context, question string) entities.AnswerResponse {
	resp := s.pipeline.AnswerQuestion(ctx, question)

	if resp.Success {
		s.mu.Lock()
		s.history = append(s.history, entities.ChatTurn{
			Question: question,
			Answer:   resp.Answer,
			Sources:  resp.Sources,
		})
		s.mu.Unlock()
	}

	return resp
}

// History returns a copy of the transcript in call order.
func (s *ChatSession) History() []entities.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.ChatTurn, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory resets the transcript to empty. Irreversible.
func (s *ChatSession) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
