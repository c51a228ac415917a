// Package rewrite corrects known-incorrect API idioms inside fenced code examples and records
// one explanatory note per rule that fired.
package rewrite

import (
	"strings"

	"docqa/internal/markdown"
)

// RulesVersion identifies the rule set. Bump it whenever a rule or its note changes.
const RulesVersion = "2025.3"

// Family is the group of fence languages a rule inspects.
type Family int

const (
	FamilyCpp Family = iota
	FamilyShell
)

// Rule rewrites one idiom. Apply returns the code unchanged and false when nothing matched
// or the match was ambiguous. Applying a rule to its own output is a no-op.
type Rule struct {
	Name   string
	Note   string
	Family Family
	Apply  func(code string) (string, bool)
}

// Options controls the optional passes.
type Options struct {
	// FinalizeExamples enables dialect synthesis. Streaming previews leave it off.
	FinalizeExamples bool
}

// Result is the rewritten text plus the notes of the rules that fired, in rule order.
type Result struct {
	Text  string
	Notes []string
}

// NoteSet is an insertion-ordered set of notes.
type NoteSet struct {
	seen  map[string]struct{}
	order []string
}

// Add records note and reports whether it was new. Empty notes are ignored.
func (n *NoteSet) Add(note string) bool {
	if note == "" {
		return false
	}
	if n.seen == nil {
		n.seen = make(map[string]struct{})
	}
	if _, ok := n.seen[note]; ok {
		return false
	}
	n.seen[note] = struct{}{}
	n.order = append(n.order, note)
	return true
}

// List returns the notes in the order they were added.
func (n *NoteSet) List() []string {
	return append([]string(nil), n.order...)
}

// Len returns the number of distinct notes.
func (n *NoteSet) Len() int { return len(n.order) }

// Apply runs the rules over every fenced block of canonical text, then dialect synthesis when
// enabled, then the formatting pass. Prose is never touched.
func Apply(text string, opts Options) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Text: text}
	}
	segs := markdown.SplitFences(text)
	var notes NoteSet

	for _, rule := range Rules {
		for i := range segs {
			seg := &segs[i]
			if !seg.Fenced || !inFamily(rule.Family, seg.Lang, seg.Text()) {
				continue
			}
			code := seg.Text()
			out, ok := rule.Apply(code)
			if !ok || out == code {
				continue
			}
			seg.Lines = strings.Split(out, "\n")
			notes.Add(rule.Note)
		}
	}

	if opts.FinalizeExamples {
		if extra, ok := synthesizeDialect(segs); ok {
			segs = append(segs, extra...)
			notes.Add(dialectNote)
		}
	}

	segs = formatBlocks(segs)
	return Result{Text: markdown.JoinSegments(segs), Notes: notes.List()}
}

func inFamily(f Family, lang, code string) bool {
	switch f {
	case FamilyCpp:
		return isCppBlock(lang, code)
	case FamilyShell:
		return markdown.ShellLangs[lang]
	}
	return false
}

// isCppBlock reports whether a fenced block is C++: tagged so, or untagged with a C++ body.
func isCppBlock(lang, code string) bool {
	if markdown.CppLangs[lang] {
		return true
	}
	return lang == "" && looksLikeCppSnippet(code)
}
