package answer

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/markdown"
)

const (
	// DefaultConfidenceThreshold is the evidence confidence below which usage answers lose
	// their code blocks.
	DefaultConfidenceThreshold = 0.45
	// DefaultMaxCitations caps the appended source list.
	DefaultMaxCitations = 6

	// EmptyAnswer replaces an answer that is blank after every guard ran.
	EmptyAnswer = "Sorry, the model returned an empty answer. Please try again."
	// NoContextAnswer is returned when retrieval finds nothing.
	NoContextAnswer = "Sorry, nothing in the indexed documentation matches this question. Try rephrasing it."

	sourcesHeading = "Sources"

	downgradeNote = "> Note: code blocks were omitted because no example, demo or test source was retrieved for this question. Name the repository, for example `galay-http`, or ask for an answer based on the API docs only."
	downgradeBody = "No example, demo or test source matched this question, so no runnable code is given.\n\n" +
		"1. Name the repository and module so the examples can be searched.\n" +
		"2. Until then, follow the project README and API documentation."
	gateBody = "The retrieved evidence is too weak to give a code example."
)

var (
	usageCues = []string{
		"how to", "how do", "how can", "example", "sample", "usage", "demo", "snippet", "write a", "implement",
		"如何", "怎么", "怎样", "示例", "例子", "用法", "使用", "代码", "写一个", "实现",
	}
	exampleSourceCues = []string{
		"example", "demo", "test", "sample", "quickstart", "quick-start", "quick_start", "getting-started",
		"快速开始", "示例",
	}
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// IsUsageQuery reports whether the question asks how to use something, which is when code
// examples are expected.
func IsUsageQuery(question string) bool {
	q := strings.ToLower(question)
	for _, cue := range usageCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

// HasExampleSource reports whether any retrieved chunk comes from an example, demo, test or
// quick-start file.
func HasExampleSource(results []domain.SearchResult) bool {
	for _, r := range results {
		src := strings.ToLower(r.Chunk.Metadata[domain.MetaSource])
		for _, cue := range exampleSourceCues {
			if strings.Contains(src, cue) {
				return true
			}
		}
	}
	return false
}

// Confidence blends the top score with the mean of the top three, each clamped to [0,1].
// Results are expected in rank order.
func Confidence(results []domain.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	top := clamp01(results[0].Score)
	n := min(len(results), 3)
	sum := 0.0
	for _, r := range results[:n] {
		sum += clamp01(r.Score)
	}
	return clamp01(0.7*top + 0.3*sum/float64(n))
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// DowngradeWithoutExamples drops code blocks from a usage answer when no example source
// backs it.
func DowngradeWithoutExamples(text, question string, results []domain.SearchResult) string {
	if text == "" || !IsUsageQuery(question) || HasExampleSource(results) {
		return text
	}
	return withoutCode(text, downgradeBody, downgradeNote)
}

// GateCode drops code blocks from a usage answer when evidence confidence is below threshold.
func GateCode(text, question string, results []domain.SearchResult, threshold float64) string {
	if text == "" || !IsUsageQuery(question) {
		return text
	}
	c := Confidence(results)
	if c >= threshold {
		return text
	}
	note := fmt.Sprintf("> Note: evidence confidence %.2f is below the %.2f threshold, so code blocks were omitted. Ask a more specific question or name the repository.", c, threshold)
	return withoutCode(text, gateBody, note)
}

// withoutCode removes every fenced block, substitutes fallback when nothing is left and
// appends note once.
func withoutCode(text, fallback, note string) string {
	var prose []string
	for _, seg := range markdown.SplitFences(text) {
		if !seg.Fenced {
			prose = append(prose, seg.Lines...)
		}
	}
	out := strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(prose, "\n"), "\n\n"))
	if out == "" {
		out = fallback
	}
	if !strings.Contains(out, note) {
		out += "\n\n" + note
	}
	return out
}

// Sources returns the distinct project/file pairs of the results, in rank order.
func Sources(results []domain.SearchResult) []domain.Source {
	var out []domain.Source
	seen := make(map[string]bool)
	for _, r := range results {
		meta := r.Chunk.Metadata
		project := orUnknown(meta[domain.MetaProject])
		file := orUnknown(meta[domain.MetaSource])
		key := project + ":" + file
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.Source{Project: project, File: file, FileName: orUnknown(meta[domain.MetaFileName])})
	}
	return out
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

// EnsureCitations appends a numbered source list unless the answer already has one or
// mentions a retrieved file by path or name.
func EnsureCitations(text string, results []domain.SearchResult, limit int) string {
	if text == "" || len(results) == 0 || strings.Contains(text, sourcesHeading+":") {
		return text
	}
	var refs []domain.Source
	for _, s := range Sources(results) {
		if s.File != "unknown" {
			refs = append(refs, s)
		}
	}
	if len(refs) == 0 {
		return text
	}
	lower := strings.ToLower(text)
	for _, s := range refs {
		file := strings.ToLower(s.File)
		if strings.Contains(lower, file) || strings.Contains(lower, path.Base(file)) {
			return text
		}
	}
	if limit <= 0 {
		limit = DefaultMaxCitations
	}
	lines := []string{sourcesHeading + ":"}
	for i, s := range refs[:min(len(refs), limit)] {
		lines = append(lines, fmt.Sprintf("%d. `%s/%s`", i+1, s.Project, s.File))
	}
	return strings.TrimRight(text, "\n") + "\n\n" + strings.Join(lines, "\n")
}

// Policy holds the guard thresholds.
type Policy struct {
	ConfidenceThreshold float64
	MaxCitations        int
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{ConfidenceThreshold: DefaultConfidenceThreshold, MaxCitations: DefaultMaxCitations}
}

// Guard runs the example downgrade, the confidence gate and the citation step in that order
// over canonical text. A blank result becomes EmptyAnswer.
func (p Policy) Guard(text, question string, results []domain.SearchResult) string {
	text = DowngradeWithoutExamples(text, question, results)
	text = GateCode(text, question, results, p.ConfidenceThreshold)
	text = EnsureCitations(text, results, p.MaxCitations)
	if strings.TrimSpace(text) == "" {
		return EmptyAnswer
	}
	return text
}
