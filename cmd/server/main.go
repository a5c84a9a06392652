// ABOUTME: Main entry point for the Hypelens HTTP API server
// ABOUTME: Wires the service graph from environment config and serves Fiber
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hypelens/hypelens/internal/config"
	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/imageproc"
	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/llm"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/ratelimit"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/server"
	"github.com/hypelens/hypelens/internal/vectorindex"
	"github.com/hypelens/hypelens/internal/weights"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer index.Close()

	store, err := metadata.NewStore(metadataPath(cfg))
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	embedder, err := embed.NewClient(&embed.ClientConfig{
		BaseURL:    cfg.EmbedServiceURL,
		Dimensions: cfg.VectorDim,
		Timeout:    cfg.EmbedTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	// Query-path services run on single-attempt clients; only the
	// ingestion pipeline keeps the retrying ones.
	var queryGenerator llm.Generator
	if cfg.HasLLM() {
		client, err := llm.NewClient(&llm.ClientConfig{
			APIKey:     cfg.OpenAIKey,
			ChatModel:  cfg.ChatModel,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Timeout:    cfg.LLMTimeout,
			Limiter:    ratelimit.New(cfg.RequestsPerMinute, cfg.RequestsPerDay),
		})
		if err != nil {
			return fmt.Errorf("creating LLM client: %w", err)
		}
		queryGenerator = client.WithoutRetries()
	} else {
		log.Println("No LLM API key configured, falling back to keyword heuristics")
	}

	images := imageproc.NewProcessor(embedder)
	queryEmbedder := embedder.WithoutRetries()
	queryImages := imageproc.NewProcessor(queryEmbedder)
	analyzer := weights.NewAnalyzer(weights.DefaultVocab(), queryGenerator)
	engine := search.NewEngine(index, queryEmbedder, analyzer, queryImages, cfg.DefaultLimit, cfg.ScoreThreshold)
	pipe := pipeline.New(index, store, embedder, images)
	parser := intent.NewParser(queryGenerator)

	app := server.New(server.Deps{
		Engine:   engine,
		Pipeline: pipe,
		Parser:   parser,
		Store:    store,
		Index:    index,
	})

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(cfg.ListenAddr)
	}()
	log.Printf("Hypelens API listening on %s", cfg.ListenAddr)

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received, draining connections...")
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}
	return nil
}

func openIndex(cfg *config.Config) (vectorindex.Index, error) {
	if cfg.IndexDriver == config.DriverPostgres {
		index, err := vectorindex.NewPostgresIndex(cfg.PostgresDSN, cfg.Collection, cfg.VectorDim)
		if err != nil {
			return nil, fmt.Errorf("opening postgres index: %w", err)
		}
		return index, nil
	}
	path := cfg.IndexPath
	if path == "" {
		path = "index.db"
	}
	index, err := vectorindex.NewSQLiteIndex(path, cfg.Collection, cfg.VectorDim)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite index: %w", err)
	}
	return index, nil
}

func metadataPath(cfg *config.Config) string {
	if cfg.IndexPath != "" && cfg.IndexDriver == config.DriverSQLite {
		return filepath.Join(filepath.Dir(cfg.IndexPath), "metadata.db")
	}
	return "metadata.db"
}
