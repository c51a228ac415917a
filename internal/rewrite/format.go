package rewrite

import (
	"regexp"
	"strings"

	"docqa/internal/markdown"
)

var (
	cppWordRe     = regexp.MustCompile(`\b(?:int|void|auto|class|struct|namespace|template)\b`)
	cppImportRe   = regexp.MustCompile(`(?m)^\s*import\s+[A-Za-z_][A-Za-z0-9_.]*\s*;`)
	shellPrefixRe = regexp.MustCompile(`^(?i:bash|shell|sh|zsh)\s+(\S.*)$`)
)

// leftoverTokens lists the language names a command block may start with by mistake, keyed by
// the block's own language.
var leftoverTokens = map[string][]string{
	"bash":      {"bash", "shell", "sh", "zsh"},
	"shell":     {"bash", "shell", "sh", "zsh"},
	"sh":        {"bash", "shell", "sh", "zsh"},
	"zsh":       {"bash", "shell", "sh", "zsh"},
	"cmake":     {"cmake"},
	"text":      {"text", "plaintext"},
	"plaintext": {"text", "plaintext"},
}

// formatBlocks re-indents C++ blocks and flattens command blocks. Blocks left empty are dropped.
func formatBlocks(segs []markdown.Segment) []markdown.Segment {
	out := make([]markdown.Segment, 0, len(segs))
	for _, s := range segs {
		if !s.Fenced {
			out = append(out, s)
			continue
		}
		code := s.Text()
		switch {
		case isCppBlock(s.Lang, code):
			if s.Lang == "" {
				s.Lang = "cpp"
			}
			code = reindent(code)
		case markdown.CommandLangs[s.Lang]:
			code = flattenCommands(code, s.Lang)
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		s.Lines = strings.Split(code, "\n")
		out = append(out, s)
	}
	return out
}

// reindent derives 4-space nesting from brace depth. Preprocessor lines stay flush left.
func reindent(code string) string {
	lines := trimBlankEdges(strings.Split(strings.ReplaceAll(code, "\t", "    "), "\n"))
	out := make([]string, 0, len(lines))
	depth := 0
	for _, raw := range lines {
		s := strings.TrimSpace(raw)
		if s == "" {
			out = append(out, "")
			continue
		}
		level := depth
		if strings.HasPrefix(s, "}") && level > 0 {
			level--
		}
		indent := strings.Repeat("    ", level)
		if strings.HasPrefix(s, "#") {
			indent = ""
		}
		out = append(out, indent+s)
		depth += strings.Count(s, "{") - strings.Count(s, "}")
		if depth < 0 {
			depth = 0
		}
	}
	return strings.Join(out, "\n")
}

func flattenCommands(code, lang string) string {
	lines := trimBlankEdges(strings.Split(code, "\n"))
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		switch {
		case contains(leftoverTokens[lang], strings.ToLower(first)):
			lines = trimBlankEdges(lines[1:])
		case markdown.ShellLangs[lang]:
			if m := shellPrefixRe.FindStringSubmatch(first); m != nil && markdown.LooksLikeShellCommand(m[1]) {
				lines[0] = m[1]
			}
		}
	}
	// Indentation in text blocks is content.
	if markdown.ShellLangs[lang] || lang == "cmake" {
		for i, l := range lines {
			lines[i] = strings.TrimLeft(l, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

// looksLikeCppSnippet inspects the first lines of an untagged block.
func looksLikeCppSnippet(code string) bool {
	var sample []string
	for _, l := range strings.Split(code, "\n") {
		if s := strings.TrimSpace(l); s != "" {
			sample = append(sample, s)
			if len(sample) == 16 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return false
	}
	text := strings.Join(sample, "\n")
	switch {
	case strings.Contains(text, "#include"), cppImportRe.MatchString(text):
		return true
	case strings.Contains(text, "co_await"), strings.Contains(text, "co_return"):
		return true
	case cppWordRe.MatchString(text):
		return true
	}
	return strings.Contains(text, "{") && strings.Contains(text, "}")
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
