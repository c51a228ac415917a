package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// BlockKind names a renderer-facing block variant.
type BlockKind string

const (
	BlockHeading    BlockKind = "heading"
	BlockParagraph  BlockKind = "paragraph"
	BlockList       BlockKind = "list"
	BlockQuote      BlockKind = "blockquote"
	BlockCode       BlockKind = "code"
	BlockHorizontal BlockKind = "hr"
)

// Block is one structural unit of canonical text. Only the fields of its Kind are set.
// Numbers holds the marker written for each ordered item, so "1. / 1. / 1." survives.
type Block struct {
	Kind     BlockKind `json:"type"`
	Level    int       `json:"level,omitempty"`
	Text     string    `json:"text,omitempty"`
	Ordered  bool      `json:"ordered,omitempty"`
	Start    int       `json:"start,omitempty"`
	Items    []string  `json:"items,omitempty"`
	Numbers  []int     `json:"numbers,omitempty"`
	Language string    `json:"language,omitempty"`
	Code     string    `json:"code,omitempty"`
}

var (
	hrRe      = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})$`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	quoteRe   = regexp.MustCompile(`^>\s?(.*)$`)
	olRe      = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)
	ulRe      = regexp.MustCompile(`^[-*+]\s+(.+)$`)
)

type blockBuilder struct {
	blocks    []Block
	paragraph []string
	quote     []string
	list      *Block
	expected  int
	inCode    bool
	codeLang  string
	code      []string
}

// ToBlocks converts canonical text into an ordered block sequence in one linear scan.
// Malformed structure starts a new block instead of failing; a fence left open at the end
// still yields its code block.
func ToBlocks(text string) []Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	b := &blockBuilder{}
	for _, raw := range strings.Split(text, "\n") {
		b.line(strings.TrimRight(raw, " \t"))
	}
	if b.inCode {
		b.flushCode()
	} else {
		b.flushAll()
	}
	return b.blocks
}

func (b *blockBuilder) line(line string) {
	s := strings.TrimSpace(line)
	cand := fenceCandidate(s)
	if fenceLineRe.MatchString(cand) {
		switch {
		case !b.inCode:
			b.flushAll()
			b.inCode = true
			b.codeLang = fenceLang(cand)
			b.code = nil
			return
		case isFenceClose(cand):
			b.flushCode()
			return
		}
	}
	if b.inCode {
		b.code = append(b.code, line)
		return
	}
	if s == "" {
		b.flushAll()
		return
	}
	if hrRe.MatchString(s) {
		b.flushAll()
		b.blocks = append(b.blocks, Block{Kind: BlockHorizontal})
		return
	}
	if m := headingRe.FindStringSubmatch(s); m != nil {
		b.flushAll()
		b.blocks = append(b.blocks, Block{Kind: BlockHeading, Level: len(m[1]), Text: strings.TrimSpace(m[2])})
		return
	}
	if m := quoteRe.FindStringSubmatch(s); m != nil {
		b.flushParagraph()
		b.flushList()
		b.quote = append(b.quote, strings.TrimSpace(m[1]))
		return
	}
	if m := olRe.FindStringSubmatch(s); m != nil {
		b.flushParagraph()
		b.flushQuote()
		n, err := strconv.Atoi(m[1])
		if err != nil {
			b.paragraph = append(b.paragraph, s)
			return
		}
		b.orderedItem(n, strings.TrimSpace(m[2]))
		return
	}
	if m := ulRe.FindStringSubmatch(s); m != nil {
		b.flushParagraph()
		b.flushQuote()
		if b.list == nil || b.list.Ordered {
			b.flushList()
			b.list = &Block{Kind: BlockList}
		}
		b.list.Items = append(b.list.Items, strings.TrimSpace(m[1]))
		return
	}
	b.flushQuote()
	b.flushList()
	b.paragraph = append(b.paragraph, s)
}

// orderedItem continues the open ordered list when n is the next number or a restart at 1,
// and starts a new list otherwise.
func (b *blockBuilder) orderedItem(n int, text string) {
	if b.list == nil || !b.list.Ordered || (n != b.expected && n != 1) {
		b.flushList()
		b.list = &Block{Kind: BlockList, Ordered: true, Start: n}
		b.expected = n
	}
	b.list.Items = append(b.list.Items, text)
	b.list.Numbers = append(b.list.Numbers, n)
	b.expected++
}

func (b *blockBuilder) flushAll() {
	b.flushParagraph()
	b.flushQuote()
	b.flushList()
}

func (b *blockBuilder) flushParagraph() {
	if t := strings.TrimSpace(strings.Join(b.paragraph, "\n")); t != "" {
		b.blocks = append(b.blocks, Block{Kind: BlockParagraph, Text: t})
	}
	b.paragraph = nil
}

func (b *blockBuilder) flushQuote() {
	if t := strings.TrimSpace(strings.Join(b.quote, "\n")); t != "" {
		b.blocks = append(b.blocks, Block{Kind: BlockQuote, Text: t})
	}
	b.quote = nil
}

func (b *blockBuilder) flushList() {
	if b.list != nil && len(b.list.Items) > 0 {
		b.blocks = append(b.blocks, *b.list)
	}
	b.list = nil
	b.expected = 0
}

func (b *blockBuilder) flushCode() {
	code := strings.Trim(strings.Join(b.code, "\n"), "\n")
	if strings.TrimSpace(code) != "" {
		lang := b.codeLang
		if lang == "" {
			lang = "text"
		}
		b.blocks = append(b.blocks, Block{Kind: BlockCode, Language: lang, Code: code})
	}
	b.inCode = false
	b.codeLang = ""
	b.code = nil
}
