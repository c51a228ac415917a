package chunker

import (
	"regexp"
	"strings"
)

// sentenceRe matches one sentence: text up to and including a run of terminators.
// A period only ends a sentence before whitespace, so "v1.2" and "std::vector.size()" stay whole.
var sentenceRe = regexp.MustCompile(`(?s).*?(?:[。！？!?；]+|\.(?:\s|$)|\n|$)`)

// splitSentences breaks a paragraph into trimmed sentences.
func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitParagraph packs the sentences of an over-long paragraph into pieces of at most size
// runes. A single sentence longer than size is cut at spaces.
func splitParagraph(text string, size int) []string {
	var units []string
	for _, s := range splitSentences(text) {
		if runeLen(s) > size {
			units = append(units, hardSplit(s, size)...)
			continue
		}
		units = append(units, s)
	}
	return pack(units, " ", size, 0)
}
