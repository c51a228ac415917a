package markdown

import "strings"

// Sanitize moves explanatory prose that leaked into the top of fenced blocks back out,
// trims blank edges, demotes blocks holding no code to prose and drops empty blocks.
func Sanitize(text string) string {
	var out []string
	for _, seg := range SplitFences(text) {
		if !seg.Fenced {
			out = append(out, seg.Lines...)
			continue
		}
		out = append(out, sanitizeBlock(seg.Lines, seg.Lang)...)
	}
	return strings.Join(out, "\n")
}

func sanitizeBlock(lines []string, lang string) []string {
	var prose []string
	idx := 0
	for idx < len(lines) {
		cur := strings.TrimSpace(lines[idx])
		if cur == "" {
			idx++
			continue
		}
		if cmd, lead, ok := splitCommandProse(cur); ok {
			out := append(prose, emitBlock([]string{cmd}, lang)...)
			out = append(out, lead)
			return append(out, sanitizeBlock(lines[idx+1:], lang)...)
		}
		if isCodeLineFor(cur, lang) {
			break
		}
		if isExplanatory(cur) {
			prose = append(prose, cur)
			idx++
			continue
		}
		break
	}
	return append(prose, emitBlock(lines[idx:], lang)...)
}

// emitBlock renders a fenced block, or its lines as prose when none of them is code.
func emitBlock(lines []string, lang string) []string {
	code := trimBlankEdges(lines)
	if len(code) == 0 {
		return nil
	}
	for _, l := range code {
		if strings.TrimSpace(l) != "" && isCodeLineFor(l, lang) {
			out := make([]string, 0, len(code)+2)
			out = append(out, openFence(lang))
			out = append(out, code...)
			return append(out, fenceToken)
		}
	}
	var prose []string
	for _, l := range code {
		if s := strings.TrimSpace(l); s != "" {
			prose = append(prose, s)
		}
	}
	return prose
}

func trimBlankEdges(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.TrimRight(l, " \t"))
	}
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}
