package chunker

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"docqa/internal/domain"
)

const (
	defaultCodeSize    = 1400
	defaultCodeOverlap = 120
)

// CodeChunker splits C/C++ sources on top-level declarations. Without tree-sitter, or when
// parsing fails, it falls back to blank-line and line boundaries.
type CodeChunker struct {
	size       int
	overlap    int
	treeSitter bool
}

func NewCodeChunker(size, overlap int, treeSitter bool) *CodeChunker {
	if size <= 0 {
		size = defaultCodeSize
	}
	if overlap < 0 || overlap >= size {
		overlap = min(defaultCodeOverlap, size/10)
	}
	return &CodeChunker{size: size, overlap: overlap, treeSitter: treeSitter}
}

func (c *CodeChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	texts, err := c.Split(doc.Content)
	if err != nil {
		return nil, err
	}
	return makeChunks(doc, texts), nil
}

// Split returns chunk texts for one source file.
func (c *CodeChunker) Split(src string) ([]string, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	var units []string
	if c.treeSitter {
		decls, err := topLevelDecls(src)
		if err != nil {
			return nil, err
		}
		units = decls
	}
	if len(units) == 0 {
		units = blankLineUnits(src)
	}
	var fitted []string
	for _, u := range units {
		if runeLen(u) > c.size {
			fitted = append(fitted, c.splitLines(u)...)
			continue
		}
		fitted = append(fitted, u)
	}
	return pack(fitted, "\n\n", c.size, c.overlap), nil
}

// topLevelDecls cuts the source at the start of each top-level declaration. Comments
// directly above a declaration stay attached to it, and no byte of the file is dropped.
func topLevelDecls(src string) ([]string, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	code := []byte(src)
	tree, err := parser.ParseCtx(context.Background(), nil, code)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	bounds := []uint32{0}
	prevComment := false
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if !prevComment && node.StartByte() > bounds[len(bounds)-1] {
			bounds = append(bounds, node.StartByte())
		}
		prevComment = node.Type() == "comment"
	}
	bounds = append(bounds, uint32(len(code)))

	var out []string
	for i := 0; i+1 < len(bounds); i++ {
		if unit := strings.Trim(string(code[bounds[i]:bounds[i+1]]), "\n"); strings.TrimSpace(unit) != "" {
			out = append(out, unit)
		}
	}
	return out, nil
}

func blankLineUnits(src string) []string {
	var out []string
	for _, block := range strings.Split(src, "\n\n") {
		if block = strings.Trim(block, "\n"); strings.TrimSpace(block) != "" {
			out = append(out, block)
		}
	}
	return out
}

// splitLines cuts an oversized declaration into line groups, keeping indentation.
func (c *CodeChunker) splitLines(u string) []string {
	var lines []string
	for _, l := range strings.Split(u, "\n") {
		if runeLen(l) > c.size {
			lines = append(lines, hardSplit(l, c.size)...)
			continue
		}
		lines = append(lines, l)
	}
	return pack(lines, "\n", c.size, 0)
}
