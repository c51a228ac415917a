package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestTokens_LatinAndHanBigrams(t *testing.T) {
	assert.Equal(t, []string{"http", "server", "路由", "由器"}, tokens("HTTP server 路由器"))
	assert.Equal(t, []string{"库"}, tokens("库"))
}

func TestLexicalSearch_RanksByOverlap(t *testing.T) {
	chunks := []domain.Chunk{
		{ChunkID: "a", Text: "The database pool."},
		{ChunkID: "b", Text: "HttpServer uses a router."},
		{ChunkID: "c", Text: "HttpServer router"},
	}
	res := lexicalSearch(chunks, "httpserver router", 2)
	require.Len(t, res, 2)
	assert.Equal(t, "c", res[0].Chunk.ChunkID)
	assert.Equal(t, "b", res[1].Chunk.ChunkID)
	assert.Greater(t, res[0].Score, res[1].Score)
}

func TestLexicalSearch_TiesKeepOrderAndDefaultK(t *testing.T) {
	var chunks []domain.Chunk
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		chunks = append(chunks, domain.Chunk{ChunkID: id, Text: "unrelated"})
	}
	res := lexicalSearch(chunks, "query", 0)
	require.Len(t, res, 5)
	assert.Equal(t, "a", res[0].Chunk.ChunkID)
	assert.Zero(t, res[0].Score)

	assert.Empty(t, lexicalSearch(nil, "query", 3))
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero([]float64{0, 0}))
	assert.True(t, isZero(nil))
	assert.False(t, isZero([]float64{0, 1e-12}))
}
