// Package http provides the HTTP server infrastructure: a small JSON API
// over the pipeline plus a minimal chat page.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"campusfaq/internal/domain/usecases"
)

// Server exposes the question-answering pipeline over HTTP. It holds one
// shared chat session; history is in-process and per-deployment, not
// per-user.
type Server struct {
	pipeline *usecases.Pipeline
	session  *usecases.ChatSession
	addr     string
}

// NewServer creates a new HTTP server over an initialized pipeline.
func NewServer(pipeline *usecases.Pipeline, addr string) *Server {
	return &Server{
		pipeline: pipeline,
		session:  usecases.NewChatSession(pipeline),
		addr:     addr,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/history", s.handleHistory)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // generation can be slow on local models
	}

	slog.Info("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleAsk answers one question. Validation and runtime failures come back
// as success=false with an error string, never as a 5xx; only malformed
// requests are rejected at the HTTP layer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
	} else {
		r.ParseForm()
		req.Question = r.FormValue("question")
	}

	resp := s.session.Ask(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.GetStats(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready := s.pipeline.State() == usecases.StateReady
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"ready": ready})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.session.History())
	case http.MethodDelete:
		s.session.ClearHistory()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleIndex renders the chat page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Campus FAQ</title>
    <style>
        body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
        #messages { min-height: 300px; }
        .message { padding: .6rem .8rem; border-radius: 8px; margin: .4rem 0; }
        .user { background: #e8f0fe; }
        .assistant { background: #f1f3f4; }
        .sources { font-size: .8rem; color: #555; margin-top: .3rem; }
        .error { color: #b00020; }
        form { display: flex; gap: .5rem; margin-top: 1rem; }
        input { flex: 1; padding: .5rem; }
    </style>
</head>
<body>
    <h1>Campus FAQ</h1>
    <p>Ask questions about university documents.</p>
    <div id="messages"></div>
    <form onsubmit="ask(event)">
        <input type="text" id="question" placeholder="When does the fall semester start?" autocomplete="off" required>
        <button type="submit">Ask</button>
    </form>
    <script>
        async function ask(e) {
            e.preventDefault();
            const input = document.getElementById('question');
            const messages = document.getElementById('messages');
            const question = input.value.trim();
            if (!question) return;
            messages.innerHTML += '<div class="message user">' + escapeHtml(question) + '</div>';
            input.value = '';
            const res = await fetch('/api/ask', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({question})
            });
            const data = await res.json();
            if (data.success) {
                let sources = '';
                if (data.sources && data.sources.length) {
                    sources = '<div class="sources">Sources: ' +
                        data.sources.map(s => escapeHtml(s.metadata ? s.metadata.source : '')).join(', ') + '</div>';
                }
                messages.innerHTML += '<div class="message assistant">' + escapeHtml(data.answer) + sources + '</div>';
            } else {
                messages.innerHTML += '<div class="message assistant error">' + escapeHtml(data.error) + '</div>';
            }
            window.scrollTo(0, document.body.scrollHeight);
        }
        function escapeHtml(text) {
            const div = document.createElement('div');
            div.textContent = text || '';
            return div.innerHTML;
        }
    </script>
</body>
</html>`
