package markdown

import (
	"regexp"
	"strings"
)

type fenceState int

const (
	stateProse fenceState = iota
	stateDeclared
	stateSynthetic
)

var (
	inlineStartRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:cpp|c\+\+)?\s*#include\s*[<"]`),
		regexp.MustCompile(`\bint\s+main\s*\(`),
		regexp.MustCompile(`(?i)\bcmake_minimum_required\s*\(`),
	}
	inlineShellRe = regexp.MustCompile("(?:^|[^A-Za-z0-9_./+`-])((?:\\$\\s*)?(?:" + shellVerbs + `|\./\S+))(?:\s|$)`)
	markerOnlyRe  = regexp.MustCompile(`^(?:[-*+]|\d+\.)$`)

	gitThenCdRe    = regexp.MustCompile(`(?i)(\.git)(cd\s+)`)
	substThenCmdRe = regexp.MustCompile(`(?i)(\$\([^)]+\))((?:sudo|make|cmake|cd|git|nc|telnet)\b|\./)`)
	beforeSudoRe   = regexp.MustCompile(`(?i)(\S)(sudo\s+make\b)`)
	cdThenCmakeRe  = regexp.MustCompile(`(?i)(\bcd\s+\S*?)\s*(cmake\s+\.\.)`)
	gluedCmakeRe   = regexp.MustCompile(`([^\s&|;])\s+(cmake\s+(?:--build|-S)\s)`)
	andAndRe       = regexp.MustCompile(`&&\s*(\S)`)
	includeRunRe   = regexp.MustCompile(`(?i)(#include\s*<[^>]+>)[ \t]*(#include|int\s+main\s*\(|template\s*<|class\s+\w+|struct\s+\w+)`)
	stmtRunRe      = regexp.MustCompile(`([;{}])[ \t]*(#include|int\s+main\s*\(|template\s*<|class\s+\w+|struct\s+\w+|return\b)`)
	cppHintPrefix  = regexp.MustCompile(`(?i)^(?:cpp|c\+\+)\s*(#include\b)`)
	shHintPrefix   = regexp.MustCompile(`(?i)^(?:bash|shell)\s+(\S)`)
)

// canonicalizer walks lines once and owns the fence state.
type canonicalizer struct {
	out   []string
	state fenceState
	hint  string
}

// Canonicalize wraps every code region in a balanced, language-tagged fence. Declared fences
// pass through; undeclared code-shaped lines are fenced with an inferred language. Output
// never ends inside a fence.
func Canonicalize(text string) string {
	c := &canonicalizer{}
	for _, raw := range strings.Split(text, "\n") {
		c.line(raw)
	}
	c.closeSynthetic()
	if c.state == stateDeclared {
		c.out = append(c.out, fenceToken)
		c.state = stateProse
	}
	c.flushHint()
	return strings.Join(c.out, "\n")
}

func (c *canonicalizer) line(raw string) {
	line := strings.TrimRight(raw, " \t")
	s := strings.TrimSpace(line)
	cand := fenceCandidate(s)

	if fenceLineRe.MatchString(cand) {
		c.fence(line, cand)
		return
	}
	if c.state == stateDeclared {
		c.out = append(c.out, line)
		return
	}
	if s == "" {
		c.closeSynthetic()
		c.flushHint()
		c.out = append(c.out, "")
		return
	}
	if h := languageHint(s); h != "" {
		c.closeSynthetic()
		c.flushHint()
		c.hint = h
		return
	}
	if start := inlineCodeStart(s); start > 0 {
		plain := strings.TrimSpace(s[:start])
		code := strings.TrimSpace(s[start:])
		if plain != "" && !markerOnlyRe.MatchString(plain) {
			c.prose(plain)
		}
		c.code(code)
		return
	}
	if LooksLikeCode(s) {
		c.code(s)
		return
	}
	c.prose(s)
}

func (c *canonicalizer) fence(line, cand string) {
	switch c.state {
	case stateSynthetic:
		c.closeSynthetic()
		c.hint = ""
		if isFenceClose(cand) {
			return
		}
		c.out = append(c.out, openFence(fenceLang(cand)))
		c.state = stateDeclared
	case stateProse:
		lang := fenceLang(cand)
		if lang == "" {
			lang = c.hint
		}
		c.hint = ""
		c.out = append(c.out, openFence(lang))
		c.state = stateDeclared
	case stateDeclared:
		if isFenceClose(cand) {
			c.out = append(c.out, fenceToken)
			c.state = stateProse
			return
		}
		c.out = append(c.out, line)
	}
}

func (c *canonicalizer) prose(s string) {
	c.closeSynthetic()
	c.flushHint()
	c.out = append(c.out, s)
}

func (c *canonicalizer) code(s string) {
	if c.state != stateSynthetic {
		lang := c.hint
		if lang == "" {
			lang = GuessLanguage(s)
		}
		c.out = append(c.out, openFence(lang))
		c.state = stateSynthetic
	}
	c.hint = ""
	for _, part := range splitCompactLine(s) {
		c.out = append(c.out, stripHintPrefix(part))
	}
}

func (c *canonicalizer) closeSynthetic() {
	if c.state == stateSynthetic {
		c.out = append(c.out, fenceToken)
		c.state = stateProse
	}
}

// flushHint keeps a language name that never met code as an ordinary prose line.
func (c *canonicalizer) flushHint() {
	if c.hint != "" {
		c.out = append(c.out, c.hint)
		c.hint = ""
	}
}

// inlineCodeStart returns the byte offset where a code fragment begins after leading prose,
// or -1 when the line is wholly prose or wholly code.
func inlineCodeStart(line string) int {
	if line == "" || LooksLikeCode(line) {
		return -1
	}
	best := -1
	for _, re := range inlineStartRes {
		if loc := re.FindStringIndex(line); loc != nil && loc[0] > 0 {
			if best < 0 || loc[0] < best {
				best = loc[0]
			}
		}
	}
	for _, m := range inlineShellRe.FindAllStringSubmatchIndex(line, -1) {
		start := m[2]
		if start <= 0 || (best >= 0 && start >= best) {
			continue
		}
		cand := strings.TrimSpace(line[start:])
		if strings.Contains(cand, "`") || !LooksLikeShellCommand(cand) {
			continue
		}
		best = start
		break
	}
	return best
}

// splitCompactLine breaks a single line holding several commands or statements into one
// per line.
func splitCompactLine(line string) []string {
	s := strings.TrimSpace(line)
	if s == "" {
		return []string{""}
	}
	if LooksLikeShellCommand(s) {
		s = gitThenCdRe.ReplaceAllString(s, "$1\n$2")
		s = substThenCmdRe.ReplaceAllString(s, "$1\n$2")
		s = beforeSudoRe.ReplaceAllString(s, "$1\n$2")
		s = cdThenCmakeRe.ReplaceAllString(s, "$1\n$2")
		s = gluedCmakeRe.ReplaceAllString(s, "$1\n$2")
		s = andAndRe.ReplaceAllString(s, "&&\n$1")
	} else {
		s = replaceUntilStable(includeRunRe, s, "$1\n$2")
		s = replaceUntilStable(stmtRunRe, s, "$1\n$2")
	}
	var parts []string
	for _, p := range strings.Split(s, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// replaceUntilStable reapplies re because a match consumes the token the next match starts with.
// Patterns must not match across a line break, or a split pair would keep matching.
func replaceUntilStable(re *regexp.Regexp, s, repl string) string {
	for i := 0; i < 16; i++ {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func stripHintPrefix(line string) string {
	line = cppHintPrefix.ReplaceAllString(line, "$1")
	if m := shHintPrefix.FindStringSubmatchIndex(line); m != nil && LooksLikeShellCommand(line[m[2]:]) {
		return line[m[2]:]
	}
	return line
}
