package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestEmbed_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrNotPrepared)
}

func TestEmbed_RanksMatchingDocumentHighest(t *testing.T) {
	corpus := []string{
		"HttpServer 启动流程 需要 HttpServerConfig",
		"RedisClient 连接池 与 超时 控制",
		"Runtime 调度器 getNextIOScheduler",
	}
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vecs, err := e.Embed(context.Background(), append(corpus, "如何启动 HttpServer"))
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	q := vecs[3]
	assert.Greater(t, dot(q, vecs[0]), dot(q, vecs[1]))
	assert.Greater(t, dot(q, vecs[0]), dot(q, vecs[2]))
	assert.InDelta(t, 1.0, math.Sqrt(dot(vecs[0], vecs[0])), 1e-9)
	assert.Equal(t, e.Dimension(), len(q))
}

func TestEmbed_UnknownTextIsZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare([]string{"galay kernel"}))
	vecs, err := e.Embed(context.Background(), []string{"the"})
	require.NoError(t, err)
	assert.Zero(t, dot(vecs[0], vecs[0]))
}

func TestTokenize_MixedScripts(t *testing.T) {
	e := NewEmbedder()
	assert.Equal(t, []string{"httpserver", "启动", "动流", "流程"}, e.tokenize("the HttpServer 启动流程"))
	assert.Equal(t, []string{"库"}, e.tokenize("库"))
}

func TestPrepare_EmptyCorpus(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(nil))
}
