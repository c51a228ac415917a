package markdown

import (
	"regexp"
	"strings"
)

// Kind tells Clean how much structure it may touch.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindCode     Kind = "code"
)

// maxPasses bounds the fixed-point loop in Normalize. Demoted fence bodies need one more
// reflow, so real inputs settle within two or three passes.
const maxPasses = 6

var codeBlankRunRe = regexp.MustCompile(`\n{4,}`)

// Normalize runs reflow, fence canonicalization and fence sanitizing until the text stops
// changing. The result is fence-balanced and contains no empty fences.
func Normalize(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	out := text
	for i := 0; i < maxPasses; i++ {
		next := normalizeOnce(out, opts)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(text string, opts Options) string {
	text = Reflow(text, opts)
	text = Canonicalize(text)
	text = Sanitize(text)
	text = trailSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Clean prepares a document for chunking. Markdown goes through the index-mode normalizer;
// source code only gets whitespace cleanup.
func Clean(raw string, kind Kind) string {
	if raw == "" {
		return ""
	}
	if kind == KindMarkdown {
		return Normalize(raw, Options{Target: TargetIndex, StripDecorative: true})
	}
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = zeroWidthRe.ReplaceAllString(text, "")
	text = trailSpaceRe.ReplaceAllString(text, "\n")
	text = codeBlankRunRe.ReplaceAllString(text, "\n\n\n")
	return strings.TrimSpace(text)
}
