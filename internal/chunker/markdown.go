package chunker

import (
	"strings"

	"docqa/internal/domain"
	"docqa/internal/markdown"
)

const (
	defaultMarkdownSize    = 1000
	defaultMarkdownOverlap = 200
)

// MarkdownChunker packs paragraphs and whole fenced blocks into chunks.
type MarkdownChunker struct {
	size    int
	overlap int
}

func NewMarkdownChunker(size, overlap int) *MarkdownChunker {
	if size <= 0 {
		size = defaultMarkdownSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(defaultMarkdownOverlap, size/5)
	}
	return &MarkdownChunker{size: size, overlap: overlap}
}

func (c *MarkdownChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	return makeChunks(doc, c.Split(doc.Content)), nil
}

// Split returns the chunk texts for cleaned markdown.
func (c *MarkdownChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return pack(c.units(text), "\n\n", c.size, c.overlap)
}

// units are the indivisible pieces: paragraphs, headings and fenced blocks.
func (c *MarkdownChunker) units(text string) []string {
	var out []string
	for _, seg := range markdown.SplitFences(text) {
		if seg.Fenced {
			out = append(out, c.fenceUnits(seg)...)
			continue
		}
		for _, para := range strings.Split(seg.Text(), "\n\n") {
			para = strings.TrimSpace(para)
			switch {
			case para == "":
			case runeLen(para) > c.size:
				out = append(out, splitParagraph(para, c.size)...)
			default:
				out = append(out, para)
			}
		}
	}
	return out
}

// fenceUnits keeps a fence whole when it fits, else cuts its body into line groups that are
// each re-fenced with the same language.
func (c *MarkdownChunker) fenceUnits(seg markdown.Segment) []string {
	whole := markdown.JoinSegments([]markdown.Segment{seg})
	if runeLen(whole) <= c.size {
		return []string{whole}
	}
	frame := runeLen(markdown.JoinSegments([]markdown.Segment{{Fenced: true, Lang: seg.Lang}})) + 1
	budget := max(c.size-frame, 1)

	var lines []string
	for _, l := range seg.Lines {
		if runeLen(l) > budget {
			lines = append(lines, hardSplit(l, budget)...)
			continue
		}
		lines = append(lines, l)
	}
	var out []string
	for _, group := range pack(lines, "\n", budget, 0) {
		out = append(out, markdown.JoinSegments([]markdown.Segment{{Fenced: true, Lang: seg.Lang, Lines: strings.Split(group, "\n")}}))
	}
	return out
}
