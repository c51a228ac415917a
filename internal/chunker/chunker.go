// Package chunker cuts cleaned documents into retrieval chunks. Markdown is split on block
// boundaries with fences kept whole where they fit; C++ sources are split on top-level
// declarations.
package chunker

import (
	"strconv"
	"unicode/utf8"

	"docqa/internal/config"
	"docqa/internal/domain"
)

// Router dispatches a document to the chunker for its kind.
type Router struct {
	Markdown domain.Chunker
	Code     domain.Chunker
}

// NewRouter builds the markdown and code chunkers from config.
func NewRouter(cfg config.ChunkerConfig) *Router {
	return &Router{
		Markdown: NewMarkdownChunker(cfg.MarkdownChunkSize, cfg.MarkdownOverlap),
		Code:     NewCodeChunker(cfg.CodeChunkSize, cfg.CodeOverlap, !cfg.DisableTreeSitter),
	}
}

func (r *Router) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if doc.Kind == domain.KindCode {
		return r.Code.Chunk(doc)
	}
	return r.Markdown.Chunk(doc)
}

// makeChunks numbers texts and stamps every chunk with the document metadata.
func makeChunks(doc domain.Document, texts []string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(texts))
	for _, text := range texts {
		idx := len(chunks)
		meta := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		if doc.Kind != "" {
			meta[domain.MetaKind] = string(doc.Kind)
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			ChunkID:    doc.ID + ":" + strconv.Itoa(idx),
			Text:       text,
			Index:      idx,
			Metadata:   meta,
		})
	}
	return chunks
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
