package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func result(project, source string, score float64) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{Metadata: map[string]string{
			domain.MetaProject:  project,
			domain.MetaSource:   source,
			domain.MetaFileName: source[strings.LastIndex(source, "/")+1:],
		}},
		Score: score,
	}
}

const codeAnswer = "Create a runtime first.\n```cpp\ngalay::kernel::Runtime runtime;\n```\nThen start it."

func TestIsUsageQuery(t *testing.T) {
	assert.True(t, IsUsageQuery("How to start an HttpServer?"))
	assert.True(t, IsUsageQuery("给一个 Redis 示例"))
	assert.False(t, IsUsageQuery("What is galay-kernel?"))
}

func TestHasExampleSource(t *testing.T) {
	assert.True(t, HasExampleSource([]domain.SearchResult{result("galay-http", "examples/echo.cc", 0.9)}))
	assert.True(t, HasExampleSource([]domain.SearchResult{result("galay-kernel", "docs/快速开始.md", 0.9)}))
	assert.False(t, HasExampleSource([]domain.SearchResult{result("galay-http", "docs/api.md", 0.9)}))
	assert.False(t, HasExampleSource(nil))
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, Confidence(nil))
	assert.InDelta(t, 0.8, Confidence([]domain.SearchResult{{Score: 0.8}}), 1e-9)
	// 0.7*0.9 + 0.3*(0.9+0.6+0.3)/3
	assert.InDelta(t, 0.81, Confidence([]domain.SearchResult{{Score: 0.9}, {Score: 0.6}, {Score: 0.3}, {Score: 0.1}}), 1e-9)
	assert.InDelta(t, 1.0, Confidence([]domain.SearchResult{{Score: 1.4}}), 1e-9)
	assert.Zero(t, Confidence([]domain.SearchResult{{Score: -0.3}}))
}

func TestDowngradeWithoutExamples(t *testing.T) {
	docs := []domain.SearchResult{result("galay-http", "docs/api.md", 0.9)}
	out := DowngradeWithoutExamples(codeAnswer, "how to create a runtime", docs)
	assert.NotContains(t, out, "```")
	assert.True(t, strings.HasPrefix(out, "Create a runtime first.\nThen start it."))
	assert.True(t, strings.HasSuffix(out, downgradeNote))
	assert.Equal(t, out, DowngradeWithoutExamples(out, "how to create a runtime", docs))

	onlyCode := DowngradeWithoutExamples("```cpp\nint x;\n```", "how to declare", docs)
	assert.True(t, strings.HasPrefix(onlyCode, downgradeBody))

	examples := []domain.SearchResult{result("galay-http", "examples/echo.cc", 0.9)}
	assert.Equal(t, codeAnswer, DowngradeWithoutExamples(codeAnswer, "how to create a runtime", examples))
	assert.Equal(t, codeAnswer, DowngradeWithoutExamples(codeAnswer, "what is a runtime", docs))
}

func TestGateCode(t *testing.T) {
	weak := []domain.SearchResult{result("galay-http", "examples/echo.cc", 0.2)}
	out := GateCode(codeAnswer, "how to create a runtime", weak, DefaultConfidenceThreshold)
	assert.NotContains(t, out, "```")
	assert.Contains(t, out, "evidence confidence 0.20 is below the 0.45 threshold")

	strong := []domain.SearchResult{result("galay-http", "examples/echo.cc", 0.9)}
	assert.Equal(t, codeAnswer, GateCode(codeAnswer, "how to create a runtime", strong, DefaultConfidenceThreshold))
	assert.Equal(t, codeAnswer, GateCode(codeAnswer, "what is a runtime", weak, DefaultConfidenceThreshold))
}

func TestSources_Dedup(t *testing.T) {
	got := Sources([]domain.SearchResult{
		result("galay-http", "docs/api.md", 0.9),
		result("galay-http", "docs/api.md", 0.8),
		result("galay-rpc", "docs/api.md", 0.7),
		{Score: 0.1},
	})
	assert.Equal(t, []domain.Source{
		{Project: "galay-http", File: "docs/api.md", FileName: "api.md"},
		{Project: "galay-rpc", File: "docs/api.md", FileName: "api.md"},
		{Project: "unknown", File: "unknown", FileName: "unknown"},
	}, got)
}

func TestEnsureCitations(t *testing.T) {
	docs := []domain.SearchResult{
		result("galay-http", "docs/server.md", 0.9),
		result("galay-kernel", "docs/runtime.md", 0.8),
	}
	out := EnsureCitations("Use HttpServerConfig.", docs, DefaultMaxCitations)
	assert.Equal(t, "Use HttpServerConfig.\n\nSources:\n1. `galay-http/docs/server.md`\n2. `galay-kernel/docs/runtime.md`", out)
	assert.Equal(t, out, EnsureCitations(out, docs, DefaultMaxCitations))

	cited := "See runtime.md for details."
	assert.Equal(t, cited, EnsureCitations(cited, docs, DefaultMaxCitations))
	assert.Equal(t, "x", EnsureCitations("x", nil, DefaultMaxCitations))

	var many []domain.SearchResult
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		many = append(many, result("p", "docs/"+name+".md", 0.5))
	}
	capped := EnsureCitations("answer", many, DefaultMaxCitations)
	assert.Contains(t, capped, "6. `p/docs/f.md`")
	assert.NotContains(t, capped, "7.")
}

func TestPolicy_Guard(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, EmptyAnswer, p.Guard("", "what is galay", nil))

	docs := []domain.SearchResult{result("galay-http", "examples/echo.cc", 0.9)}
	out := p.Guard(codeAnswer, "how to create a runtime", docs)
	assert.Contains(t, out, "```cpp")
	assert.True(t, strings.HasSuffix(out, "Sources:\n1. `galay-http/examples/echo.cc`"))
}
