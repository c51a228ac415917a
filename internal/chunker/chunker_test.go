package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/config"
	"docqa/internal/domain"
)

func TestPack(t *testing.T) {
	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc"}, pack([]string{"aaaa", "bbbb", "cccc"}, " ", 9, 4))
	assert.Equal(t, []string{"x", "yyyyyyyyyyyy", "z"}, pack([]string{"x", "yyyyyyyyyyyy", "z"}, " ", 5, 0))
	assert.Nil(t, pack(nil, " ", 5, 0))
}

func TestHardSplit_PrefersSpaces(t *testing.T) {
	assert.Equal(t, []string{"alpha beta", "gamma"}, hardSplit("alpha beta gamma", 12))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, hardSplit("abcdefghij", 4))
}

func TestSplitSentences(t *testing.T) {
	assert.Equal(t, []string{"第一句。", "Call start().", "Then v1.2 stop!"}, splitSentences("第一句。Call start(). Then v1.2 stop!"))
}

func TestMarkdownChunker_SmallDocumentIsOneChunk(t *testing.T) {
	text := "# T\n\npara one.\n\n```cpp\nint x;\n```"
	assert.Equal(t, []string{text}, NewMarkdownChunker(1000, 200).Split(text))
}

func TestMarkdownChunker_OverlapCarriesParagraphs(t *testing.T) {
	text := "p1 aaaaaaaaaa\n\np2 bbbbbbbbbb\n\np3 cccccccccc"
	assert.Equal(t, []string{
		"p1 aaaaaaaaaa\n\np2 bbbbbbbbbb",
		"p2 bbbbbbbbbb\n\np3 cccccccccc",
	}, NewMarkdownChunker(30, 15).Split(text))
}

func TestMarkdownChunker_LongParagraphSplitsOnSentences(t *testing.T) {
	text := "第一句很长很长。第二句也很长很长。第三句。"
	assert.Equal(t, []string{"第一句很长很长。 第二句也很长很长。", "第三句。"}, NewMarkdownChunker(20, 0).Split(text))
}

func TestMarkdownChunker_LargeFenceIsRefenced(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "line_00"+string(rune('0'+i))+";")
	}
	text := "```cpp\n" + strings.Join(lines, "\n") + "\n```"

	chunks := NewMarkdownChunker(40, 0).Split(text)
	require.Len(t, chunks, 4)
	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch, "```cpp\n"), ch)
		assert.True(t, strings.HasSuffix(ch, "\n```"), ch)
		assert.LessOrEqual(t, runeLen(ch), 40)
	}
	assert.Equal(t, "```cpp\nline_009;\n```", chunks[3])
}

func TestMarkdownChunker_BlankInput(t *testing.T) {
	assert.Nil(t, NewMarkdownChunker(0, 0).Split(" \n\n "))
}

const header = `#include <string>

// Server entry.
class HttpServer {
public:
  void start();
};

int main() {
  return 0;
}
`

func TestCodeChunker_TopLevelDeclarations(t *testing.T) {
	units, err := topLevelDecls(header)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"#include <string>",
		"// Server entry.\nclass HttpServer {\npublic:\n  void start();\n};",
		"int main() {\n  return 0;\n}",
	}, units)
}

func TestCodeChunker_PacksDeclarations(t *testing.T) {
	chunks, err := NewCodeChunker(100, 0, true).Split(header)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"#include <string>\n\n// Server entry.\nclass HttpServer {\npublic:\n  void start();\n};",
		"int main() {\n  return 0;\n}",
	}, chunks)
}

func TestCodeChunker_FallbackWithoutTreeSitter(t *testing.T) {
	chunks, err := NewCodeChunker(1400, 120, false).Split(header)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimRight(header, "\n")}, chunks)
}

func TestCodeChunker_OversizedDeclarationSplitsOnLines(t *testing.T) {
	src := "void f() {\n" + strings.Repeat("  call();\n", 20) + "}\n"
	chunks, err := NewCodeChunker(50, 0, true).Split(src)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, runeLen(ch), 50)
	}
	assert.Equal(t, strings.TrimRight(src, "\n"), strings.Join(chunks, "\n"))
}

func TestRouter_StampsMetadata(t *testing.T) {
	r := NewRouter(config.ChunkerConfig{MarkdownChunkSize: 1000, MarkdownOverlap: 200, CodeChunkSize: 1400, CodeOverlap: 120})
	doc := domain.Document{
		ID: "abc", Kind: domain.KindCode, Content: header,
		Metadata: map[string]string{domain.MetaProject: "galay-http", domain.MetaSource: "include/server.h"},
	}
	chunks, err := r.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abc:0", chunks[0].ChunkID)
	assert.Equal(t, "code", chunks[0].Metadata[domain.MetaKind])
	assert.Equal(t, "galay-http", chunks[0].Metadata[domain.MetaProject])

	doc.Kind = domain.KindMarkdown
	doc.Content = "# Title\n\nBody."
	chunks, err = r.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "markdown", chunks[0].Metadata[domain.MetaKind])
	assert.Equal(t, "include/server.h", doc.Metadata[domain.MetaSource])
	_, touched := doc.Metadata[domain.MetaKind]
	assert.False(t, touched)
}
