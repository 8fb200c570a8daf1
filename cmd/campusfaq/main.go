// Command campusfaq answers questions about university documents using
// retrieval-augmented generation over a locally persisted vector index.
//
// Modes:
//
//	campusfaq -ingest          build the index from the documents directory
//	campusfaq -serve           run the HTTP API and chat page
//	campusfaq -watch           with -serve: re-ingest when documents change
//	campusfaq                  interactive chat on stdin
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"campusfaq/internal/adapters/embedding"
	"campusfaq/internal/adapters/filewatcher"
	"campusfaq/internal/adapters/llm"
	"campusfaq/internal/adapters/loader"
	"campusfaq/internal/adapters/vectordb"
	"campusfaq/internal/config"
	"campusfaq/internal/domain/ports"
	"campusfaq/internal/domain/usecases"
	httpserver "campusfaq/internal/infrastructure/http"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		ingest  bool
		serve   bool
		watch   bool
		addr    string
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file (default: ./config.yaml, then ~/.config/campusfaq/config.yaml)")
	flag.BoolVar(&ingest, "ingest", false, "build the vector index from the documents directory and exit")
	flag.BoolVar(&serve, "serve", false, "run the HTTP server")
	flag.BoolVar(&watch, "watch", false, "watch the documents directory and re-ingest on changes (with -serve)")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fatal("loading config", err)
	}
	if addr != "" {
		cfg.ServerAddr = addr
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		fatal("initializing embedding provider", err)
	}
	generator, err := buildGenerator(cfg)
	if err != nil {
		fatal("initializing generation provider", err)
	}
	index, err := buildIndex(cfg, embedder)
	if err != nil {
		fatal("initializing vector store", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs := loader.NewMultiLoader(cfg.PDFServiceURL)
	ingester := usecases.NewIngester(docs, embedder, index, generator, usecases.IngestOptions{
		ChunkSize:          cfg.Chunking.Size,
		ChunkOverlap:       cfg.Chunking.Overlap,
		CompressionEnabled: cfg.Compression.Enabled,
		CompressionRatio:   cfg.Compression.Ratio,
	})

	if ingest {
		n, err := ingester.IngestDir(ctx, cfg.DocsDir)
		if err != nil {
			fatal("ingestion", err)
		}
		fmt.Printf("Indexed %d fragments from %s\n", n, cfg.DocsDir)
		return
	}

	pipeline := usecases.NewPipeline(embedder, index, generator, cfg.TopK)
	if err := pipeline.Setup(ctx); err != nil {
		fatal("pipeline setup", err)
	}

	if watch {
		go watchDocuments(ctx, ingester, cfg.DocsDir)
	}

	if serve {
		server := httpserver.NewServer(pipeline, cfg.ServerAddr)
		if err := server.Start(ctx); err != nil {
			fatal("server", err)
		}
		return
	}

	runREPL(ctx, pipeline)
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, used, err := config.LoadDefault()
		if err == nil {
			slog.Info("config loaded", "path", used)
		}
		return cfg, err
	}
	return config.Load(path)
}

func buildEmbedder(cfg *config.AppConfig) (ports.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "ollama", "":
		return embedding.NewOllamaAdapter(cfg.Embedder.BaseURL, cfg.Embedder.Model), nil
	case "openai":
		return embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			BaseURL: cfg.Embedder.BaseURL,
			APIKey:  cfg.Embedder.APIKey(),
			Model:   cfg.Embedder.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedder.Provider)
	}
}

func buildGenerator(cfg *config.AppConfig) (ports.Generator, error) {
	opts := llm.Options{
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}
	switch cfg.LLM.Provider {
	case "ollama", "":
		return llm.NewOllamaAdapter(cfg.LLM.BaseURL, cfg.LLM.Model, opts), nil
	case "openai":
		return llm.NewOpenAIAdapter(llm.OpenAIConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey(),
			Model:   cfg.LLM.Model,
			Options: opts,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

func buildIndex(cfg *config.AppConfig, embedder ports.Embedder) (ports.VectorIndex, error) {
	switch cfg.VectorStore.Type {
	case "sqlite", "":
		return vectordb.NewSQLiteIndex(cfg.VectorStore.Dir, cfg.Embedder.Provider, embedder.Model()), nil
	case "chromem":
		return vectordb.NewChromemIndex(cfg.VectorStore.Dir, cfg.Embedder.Provider, embedder.Model(), embedder), nil
	case "memory":
		return vectordb.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore.Type)
	}
}

// watchDocuments re-ingests when documents change, debouncing bursts of
// events (editors often fire several per save).
func watchDocuments(ctx context.Context, ingester *usecases.Ingester, dir string) {
	watcher, err := filewatcher.NewFSNotifyWatcher(nil)
	if err != nil {
		slog.Error("starting file watcher", "err", err)
		return
	}
	defer watcher.Stop()

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		slog.Error("watching documents directory", "err", err, "dir", dir)
		return
	}
	slog.Info("watching documents directory", "dir", dir)

	var timer *time.Timer
	reingest := func() {
		if n, err := ingester.IngestDir(ctx, dir); err != nil {
			slog.Error("re-ingestion failed", "err", err)
		} else {
			slog.Info("re-ingested documents", "fragments", n)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			slog.Info("document changed", "path", ev.Path)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(2*time.Second, reingest)
		}
	}
}

func runREPL(ctx context.Context, pipeline *usecases.Pipeline) {
	session := usecases.NewChatSession(pipeline)
	stats := pipeline.GetStats(ctx)
	fmt.Printf("Campus FAQ assistant ready (%d chunks, dim %d).\n", stats.TotalChunks, stats.EmbeddingDimension)
	fmt.Println("Type a question, or: history, clear, stats, exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		case "history":
			for i, turn := range session.History() {
				fmt.Printf("%d. Q: %s\n   A: %s\n", i+1, turn.Question, turn.Answer)
			}
			continue
		case "clear":
			session.ClearHistory()
			fmt.Println("History cleared.")
			continue
		case "stats":
			s := pipeline.GetStats(ctx)
			fmt.Printf("chunks=%d dimension=%d ready=%v\n", s.TotalChunks, s.EmbeddingDimension, s.Ready)
			continue
		}

		resp := session.Ask(ctx, line)
		if !resp.Success {
			fmt.Printf("Error: %s\n", resp.Error)
			continue
		}
		fmt.Println(resp.Answer)
		for i, src := range resp.Sources {
			fmt.Printf("  [%d] %s (page %d)\n", i+1, src.Meta.Source, src.Meta.Page)
		}
	}
}

func fatal(what string, err error) {
	slog.Error(what, "err", err)
	os.Exit(1)
}
