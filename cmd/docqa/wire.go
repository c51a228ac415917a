package main

import (
	"context"
	"fmt"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/gemini"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	geminillm "docqa/internal/llm/gemini"
	openaillm "docqa/internal/llm/openai"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func newEmbedder(ctx context.Context, cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   secs(oc.TimeoutSecs),
			BatchSize: oc.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		gc := cfg.Embedder.Gemini
		emb, err := gemini.New(ctx, gemini.Config{
			APIKeyEnv: gc.APIKeyEnv,
			Model:     gc.EmbeddingModel,
			Dimension: gc.Dimension,
			BatchSize: gc.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder init failed: %w", err)
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

// newVectorStore returns the store and a closer for stores holding a handle.
func newVectorStore(cfg *config.AppConfig) (vectorstore.Storage, func() error, error) {
	noop := func() error { return nil }
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(), noop, nil
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		qc := cfg.VectorStore.Qdrant
		return qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Distance:   qc.Distance,
			Timeout:    secs(qc.TimeoutSecs),
		}), noop, nil
	case "sqlite":
		if cfg.VectorStore.SQLite == nil {
			return nil, nil, fmt.Errorf("sqlite config missing")
		}
		st, err := sqlite.NewStorage(cfg.VectorStore.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}

func newChatModel(ctx context.Context, cfg *config.AppConfig) (domain.ChatModel, error) {
	switch cfg.LLM.Type {
	case "openai", "":
		return openaillm.NewClient(openaillm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKeyEnv:   cfg.LLM.APIKeyEnv,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     secs(cfg.LLM.TimeoutSecs),
			MaxRetries:  cfg.LLM.MaxRetries,
		}), nil
	case "gemini":
		client, err := geminillm.New(ctx, geminillm.Config{
			APIKeyEnv:   cfg.LLM.APIKeyEnv,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini chat model init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}
}

func newSummarizer(cfg *config.AppConfig) (domain.Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
}

func newChunker(cfg *config.AppConfig) domain.Chunker {
	return chunker.NewRouter(cfg.Chunker)
}
