package vectorstore

import (
	"math"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// Storage persists vectors and supports similarity search.
type Storage = domain.VectorStore

// DefaultTopK applies when a caller asks for zero or fewer results.
const DefaultTopK = 5

const metaPrefix = "meta_"

// Cosine returns the cosine similarity of a and b, taking the inner product over their
// shared prefix. Remote embedders do not always return unit vectors. A zero vector scores 0.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	dot := 0.0
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// TopK returns the indexes of the k highest scores, best first.
// Ties keep insertion order so results are deterministic.
func TopK(scores []float64, k int) []int {
	if k <= 0 {
		k = DefaultTopK
	}
	idxs := make([]int, len(scores))
	for i := range scores {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return scores[idxs[i]] > scores[idxs[j]] })
	if k > len(idxs) {
		k = len(idxs)
	}
	return idxs[:k]
}

// ChunkPayload flattens a chunk into the key/value form stored next to a vector.
func ChunkPayload(ch domain.Chunk) map[string]any {
	p := map[string]any{
		"document_id": ch.DocumentID,
		"chunk_id":    ch.ChunkID,
		"index":       ch.Index,
		"text":        ch.Text,
	}
	for k, v := range ch.Metadata {
		p[metaPrefix+k] = v
	}
	return p
}

// ChunkFromPayload is the inverse of ChunkPayload. JSON numbers arrive as float64.
func ChunkFromPayload(p map[string]any) domain.Chunk {
	var ch domain.Chunk
	if v, ok := p["document_id"].(string); ok {
		ch.DocumentID = v
	}
	if v, ok := p["chunk_id"].(string); ok {
		ch.ChunkID = v
	}
	switch v := p["index"].(type) {
	case float64:
		ch.Index = int(v)
	case int:
		ch.Index = v
	}
	if v, ok := p["text"].(string); ok {
		ch.Text = v
	}
	for k, v := range p {
		s, ok := v.(string)
		key, isMeta := strings.CutPrefix(k, metaPrefix)
		if !ok || !isMeta || key == "" {
			continue
		}
		if ch.Metadata == nil {
			ch.Metadata = make(map[string]string)
		}
		ch.Metadata[key] = s
	}
	return ch
}
