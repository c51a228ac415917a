package markdown

import (
	"regexp"
	"strings"
)

const fenceToken = "```"

var (
	fenceLineRe  = regexp.MustCompile("^```([A-Za-z0-9_+-]*)\\s*$")
	fenceCloseRe = regexp.MustCompile("^```\\s*$")
	fenceQuoteRe = regexp.MustCompile(`^["'“”]+|["'“”]+$`)
)

// langHints maps bare language names written on their own line to the fence tag they imply.
var langHints = map[string]string{
	"cpp":       "cpp",
	"c++":       "cpp",
	"cc":        "cpp",
	"cxx":       "cpp",
	"hpp":       "cpp",
	"h":         "cpp",
	"bash":      "bash",
	"shell":     "bash",
	"sh":        "bash",
	"zsh":       "bash",
	"cmake":     "cmake",
	"text":      "text",
	"plaintext": "text",
}

// Language families used by the sanitizer and the rewriter.
var (
	CppLangs     = map[string]bool{"cpp": true, "c++": true, "cc": true, "cxx": true, "hpp": true, "h": true}
	ShellLangs   = map[string]bool{"bash": true, "shell": true, "sh": true, "zsh": true}
	CommandLangs = map[string]bool{"bash": true, "shell": true, "sh": true, "zsh": true, "cmake": true, "text": true, "plaintext": true}
)

// fenceCandidate strips whitespace and stray quotes that models wrap around fence lines.
func fenceCandidate(line string) string {
	return fenceQuoteRe.ReplaceAllString(strings.TrimSpace(line), "")
}

// IsFenceLine reports whether the line is a fence token with an optional language tag.
func IsFenceLine(line string) bool {
	return fenceLineRe.MatchString(fenceCandidate(line))
}

// isFenceClose reports whether the candidate is a bare fence token.
func isFenceClose(candidate string) bool {
	return fenceCloseRe.MatchString(candidate)
}

// fenceLang returns the lower-cased tag of a fence candidate, or "" for a bare fence.
func fenceLang(candidate string) string {
	m := fenceLineRe.FindStringSubmatch(candidate)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func openFence(lang string) string { return fenceToken + lang }

// languageHint returns the fence tag implied by a line that only names a language.
func languageHint(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.TrimLeft(s, "-*+ \t")
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, ":"), "：")
	s = strings.TrimSpace(s)
	for _, p := range []string{"language:", "language：", "language :"} {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
		}
	}
	return langHints[s]
}

// Segment is a run of lines that is either prose or the body of one fenced block.
type Segment struct {
	Fenced bool
	Lang   string
	Lines  []string
}

// Text joins the segment lines.
func (s Segment) Text() string { return strings.Join(s.Lines, "\n") }

// SplitFences cuts text into prose and fenced segments. Only a bare fence token closes an
// open fence; tagged fence lines inside a fence are kept as body lines. A fence left open at
// the end of input is treated as closed.
func SplitFences(text string) []Segment {
	var (
		out     []Segment
		current Segment
		inFence bool
	)
	flush := func() {
		if current.Fenced || len(current.Lines) > 0 {
			out = append(out, current)
		}
		current = Segment{}
	}
	for _, line := range strings.Split(text, "\n") {
		cand := fenceCandidate(line)
		if fenceLineRe.MatchString(cand) {
			if !inFence {
				flush()
				current = Segment{Fenced: true, Lang: fenceLang(cand)}
				inFence = true
				continue
			}
			if isFenceClose(cand) {
				flush()
				inFence = false
				continue
			}
		}
		current.Lines = append(current.Lines, line)
	}
	flush()
	return out
}

// JoinSegments renders segments back to text with balanced fences.
func JoinSegments(segs []Segment) string {
	var lines []string
	for _, s := range segs {
		if !s.Fenced {
			lines = append(lines, s.Lines...)
			continue
		}
		lines = append(lines, openFence(s.Lang))
		lines = append(lines, s.Lines...)
		lines = append(lines, fenceToken)
	}
	return strings.Join(lines, "\n")
}
