package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ragqa/internal/chunker"
	"ragqa/internal/config"
	"ragqa/internal/domain"
	"ragqa/internal/embedding/hashing"
	"ragqa/internal/embedding/openai"
	"ragqa/internal/generator/gemini"
	"ragqa/internal/generator/ollama"
	"ragqa/internal/service"
	"ragqa/internal/vectorstore"
	"ragqa/internal/vectorstore/memory"
	"ragqa/internal/vectorstore/qdrant"
	"ragqa/internal/vectorstore/sqlite"
)

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing":
		return hashing.NewEmbedder(cfg.Embedder.Hashing.Dimension), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Timeout:   config.Seconds(o.TimeoutSecs),
			BatchSize: o.BatchSize,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newIndex(cfg *config.AppConfig) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "sqlite":
		st, err := sqlite.NewStore(cfg.VectorStore.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		return st, nil
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Timeout:    config.Seconds(q.TimeoutSecs),
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

// newGenerator returns a nil generator (and no error) when the configured backend
// has no credentials, so retrieval still works and answers report the problem.
func newGenerator(ctx context.Context, cfg *config.AppConfig) (domain.Generator, error) {
	switch cfg.Generator.Type {
	case "gemini":
		g := cfg.Generator.Gemini
		client, err := gemini.New(gemini.Config{
			BaseURL:   g.BaseURL,
			Model:     g.Model,
			APIKeyEnv: g.APIKeyEnv,
			Timeout:   config.Seconds(g.TimeoutSecs),
			Logger:    logger,
		})
		if errors.Is(err, domain.ErrGeneratorUnavailable) {
			logger.Warn("generator not configured", zap.Error(err))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	case "ollama":
		o := cfg.Generator.Ollama
		gen := ollama.NewGenerator(ollama.Config{
			BaseURL: o.BaseURL,
			Model:   o.Model,
			Timeout: config.Seconds(o.TimeoutSecs),
			Logger:  logger,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := gen.Ping(pingCtx); err != nil {
			logger.Warn("ollama ping failed", zap.String("base_url", o.BaseURL), zap.Error(err))
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}
}

// components holds everything a command needs; close releases the index.
type components struct {
	svc   *service.RAGService
	index vectorstore.Storage
}

func (c *components) close() {
	if err := c.index.Close(); err != nil {
		logger.Warn("closing index", zap.Error(err))
	}
}

// assemble builds the orchestrator. The generator is only constructed when withGenerator is set.
func assemble(ctx context.Context, withGenerator bool) (*components, error) {
	cfg := appCfg
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	var gen domain.Generator
	if withGenerator {
		if gen, err = newGenerator(ctx, cfg); err != nil {
			return nil, err
		}
	}
	idx, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	ch := chunker.NewBoundaryChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap, cfg.Chunker.Terminators)
	return &components{
		svc:   service.NewRAGService(ch, emb, idx, gen, logger),
		index: idx,
	}, nil
}
