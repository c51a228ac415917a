// Package answer turns raw model output into canonical text and renderer blocks, and applies
// the evidence guards that decide whether code examples may be shown.
package answer

import (
	"fmt"
	"strings"

	"docqa/internal/markdown"
	"docqa/internal/rewrite"
)

// maxRounds bounds the normalize/rewrite loop. Rewritten code is already canonical, so
// real answers settle in two rounds.
const maxRounds = 4

var answerOpts = markdown.Options{Target: markdown.TargetAnswer, StripDecorative: true}

// Normalize canonicalizes a raw answer, corrects known API misuse in its code examples and
// appends one quoted note per correction. With finalize set, a C++ example is also offered in
// the other inclusion style. The result is a fixed point: normalizing it again changes nothing
// and reports no notes.
func Normalize(raw string, finalize bool) rewrite.Result {
	if strings.TrimSpace(raw) == "" {
		return rewrite.Result{}
	}
	var notes rewrite.NoteSet
	text := raw
	for i := 0; i < maxRounds; i++ {
		res := rewrite.Apply(markdown.Normalize(text, answerOpts), rewrite.Options{FinalizeExamples: finalize})
		for _, n := range res.Notes {
			notes.Add(n)
		}
		if res.Text == text {
			break
		}
		text = res.Text
	}
	text = appendNotes(text, notes.List())
	return rewrite.Result{Text: markdown.Normalize(text, answerOpts), Notes: notes.List()}
}

// appendNotes adds each note not already present as a quoted line at the end of the text.
func appendNotes(text string, notes []string) string {
	var quoted []string
	for _, n := range notes {
		if strings.Contains(text, n) {
			continue
		}
		quoted = append(quoted, "> "+n)
	}
	if len(quoted) == 0 {
		return text
	}
	return strings.TrimRight(text, "\n") + "\n\n" + strings.Join(quoted, "\n")
}

// Blocks converts canonical text into renderer blocks. It never fails: if extraction breaks,
// the whole text comes back as one paragraph.
func Blocks(canonical string) []markdown.Block {
	blocks, _ := BuildBlocks(canonical)
	return blocks
}

// BuildBlocks is Blocks with the extraction failure reported, for callers that log it.
func BuildBlocks(canonical string) (blocks []markdown.Block, err error) {
	if strings.TrimSpace(canonical) == "" {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			blocks = []markdown.Block{{Kind: markdown.BlockParagraph, Text: canonical}}
			err = fmt.Errorf("build blocks: %v", r)
		}
	}()
	return markdown.ToBlocks(canonical), nil
}
