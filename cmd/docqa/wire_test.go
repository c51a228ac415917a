package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

func defaults(t *testing.T) *config.AppConfig {
	t.Helper()
	c, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	return c
}

func TestNewEmbedder(t *testing.T) {
	ctx := context.Background()
	c := defaults(t)
	emb, err := newEmbedder(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "tfidf", emb.Name())

	c.Embedder.Type = "openai"
	c.Embedder.OpenAI = &config.OpenAIEmbedderConfig{APIKeyEnv: "DOCQA_TEST_EMBED_KEY"}
	t.Setenv("DOCQA_TEST_EMBED_KEY", "")
	_, err = newEmbedder(ctx, c)
	assert.ErrorContains(t, err, "DOCQA_TEST_EMBED_KEY")

	t.Setenv("DOCQA_TEST_EMBED_KEY", "sk-test")
	emb, err = newEmbedder(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "openai", emb.Name())

	c.Embedder.Type = "gemini"
	c.Embedder.Gemini = nil
	_, err = newEmbedder(ctx, c)
	assert.ErrorContains(t, err, "config missing")

	c.Embedder.Type = "word2vec"
	_, err = newEmbedder(ctx, c)
	assert.ErrorContains(t, err, "unknown embedder")
}

func TestNewVectorStore(t *testing.T) {
	c := defaults(t)
	st, closeFn, err := newVectorStore(c)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, st)
	assert.NoError(t, closeFn())

	c.VectorStore.Type = "sqlite"
	c.VectorStore.SQLite = &config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "idx", "docqa.db")}
	st, closeFn, err = newVectorStore(c)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Storage{}, st)
	assert.NoError(t, closeFn())

	c.VectorStore.Type = "qdrant"
	c.VectorStore.Qdrant = &config.QdrantConfig{URL: "http://localhost:6333", Collection: "docs"}
	st, _, err = newVectorStore(c)
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Storage{}, st)

	c.VectorStore.Type = "faiss"
	_, _, err = newVectorStore(c)
	assert.ErrorContains(t, err, "unknown vector store")
}

func TestNewChatModel(t *testing.T) {
	ctx := context.Background()
	c := defaults(t)
	m, err := newChatModel(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", m.Name())

	c.LLM.Type = "gemini"
	c.LLM.APIKeyEnv = "DOCQA_TEST_GEMINI_KEY"
	t.Setenv("DOCQA_TEST_GEMINI_KEY", "")
	_, err = newChatModel(ctx, c)
	assert.Error(t, err)

	c.LLM.Type = "claude-cli"
	_, err = newChatModel(ctx, c)
	assert.ErrorContains(t, err, "unknown llm")
}

func TestNewSummarizer(t *testing.T) {
	c := defaults(t)
	_, err := newSummarizer(c)
	require.NoError(t, err)

	c.Summarizer.Type = "llm"
	_, err = newSummarizer(c)
	assert.ErrorContains(t, err, "unknown summarizer")
}
