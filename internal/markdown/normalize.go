package markdown

import (
	"regexp"
	"strings"
)

// Target selects which structural rewrites the normalizer applies.
type Target int

const (
	// TargetIndex prepares documentation for chunking and embedding.
	TargetIndex Target = iota
	// TargetAnswer additionally promotes known section labels to headings.
	TargetAnswer
)

// Options configures Reflow and Normalize.
type Options struct {
	Target          Target
	StripDecorative bool
}

var (
	zeroWidthRe  = regexp.MustCompile("[\u200b-\u200f\ufeff]+")
	decorativeRe = regexp.MustCompile(`[✅☑✔✳✴★☆⭐🔥🌟✨💡🔧⚙🛠📈📌📍🚀🎯▶►■□▪▫◆◇•·]+`)

	gluedFenceRe    = regexp.MustCompile("([^\\n\\s\"'“”])[ \\t]*[\"'“”]?[ \\t]*```([A-Za-z0-9_+-]*)")
	taggedFenceRe   = regexp.MustCompile("(?m)^```([A-Za-z0-9_+-]+)[ \\t]+(\\S)")
	quotedOpenRe    = regexp.MustCompile("(?m)^[\"'“”]+(```[A-Za-z0-9_+-]*)[ \\t]*$")
	quotedCloseRe   = regexp.MustCompile("(?m)^(```[A-Za-z0-9_+-]*)[\"'“”]+[ \\t]*$")
	quoteBeforeFnRe = regexp.MustCompile("([:：])[ \\t]*[\"'“”][ \\t]*(\\n```[A-Za-z0-9_+-]*[ \\t]*\\n)")

	hrLineRe        = regexp.MustCompile(`(?m)^[ \t]*(?:[-*_][ \t]*){3,}$`)
	headingGluePRe  = regexp.MustCompile(`([。！？；：）])[ \t]*(#{1,6} )`)
	headingGlueWRe  = regexp.MustCompile(`([^\n#\s])[ \t]*(#{2,6} )`)
	ordinalGlueRe   = regexp.MustCompile(`([。！？；：]|[!?;:][ \t])[ \t]*([1-9]\d?)\.([^\d\s.])`)
	ordinalStartRe  = regexp.MustCompile(`(?m)^([1-9]\d?)\.([^\d\s.])`)
	ordinalSplitRe  = regexp.MustCompile(`([。！？；：]|[!?;:][ \t])[ \t]*(\d+\. )`)
	bulletSplitRe   = regexp.MustCompile(`([。！？；：]|[!?;:][ \t])[ \t]*([-*] )`)
	hanBulletRe     = regexp.MustCompile(`(\p{Han}|）)-[ \t]+`)
	loneHeadingRe   = regexp.MustCompile(`(?m)^(#{1,6})[ \t]*\n(\S)`)
	quoteOnlyLineRe = regexp.MustCompile(`(?m)^[ \t]*["'“”]+[ \t]*$`)
	markerPrefixRe  = regexp.MustCompile(`^\s*(?:\d+\.|[-*+])\s+(.*)$`)
	punctVerbRe     = regexp.MustCompile(`([:：。；;])[ \t]*((?:\$\s*)?(?:` + shellVerbs + `|\./\S+))(?:\s|$)`)
	mixedProseRe    = regexp.MustCompile(`\s+((?:使用|然后|接着|再|并|并且|说明|示例|构建|运行|验证)[^。\n]*[：:])\s*$`)
	sectionRe       = regexp.MustCompile(`^(?:\d+\.\s*)?(环境要求|安装步骤|最小示例|运行与验证|编译运行命令|编译与运行|运行命令|Requirements|Installation|Install steps|Minimal example|Build and run|Run and verify)\s*(?:[：:]\s*(.*))?$`)

	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	lineEdgeRe   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
	trailSpaceRe = regexp.MustCompile(`[ \t]+\n`)
)

// Reflow unifies line endings, strips invisible and ornamental characters, repairs glued
// fence tokens and inserts missing structural line breaks in prose. Fenced bodies are
// never reflowed.
func Reflow(text string, opts Options) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = zeroWidthRe.ReplaceAllString(text, "")
	if opts.StripDecorative {
		text = decorativeRe.ReplaceAllString(text, "")
	}
	text = repairInlineFences(text)
	return mapProse(text, func(seg string) string { return reflowProse(seg, opts.Target) })
}

// StripDecorative removes invisible characters and ornamental glyphs.
func StripDecorative(text string) string {
	return decorativeRe.ReplaceAllString(zeroWidthRe.ReplaceAllString(text, ""), "")
}

func repairInlineFences(text string) string {
	text = gluedFenceRe.ReplaceAllString(text, "$1\n```$2")
	text = taggedFenceRe.ReplaceAllString(text, "```$1\n$2")
	text = quotedOpenRe.ReplaceAllString(text, "$1")
	text = quotedCloseRe.ReplaceAllString(text, "$1")
	text = quoteBeforeFnRe.ReplaceAllString(text, "$1$2")
	return text
}

// mapProse applies fn to every run of lines outside fences.
func mapProse(text string, fn func(string) string) string {
	var (
		out     []string
		plain   []string
		inFence bool
	)
	flush := func() {
		if len(plain) == 0 {
			return
		}
		seg := fn(strings.Join(plain, "\n"))
		plain = plain[:0]
		if seg != "" {
			out = append(out, strings.Split(seg, "\n")...)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		cand := fenceCandidate(line)
		if fenceLineRe.MatchString(cand) {
			if !inFence {
				flush()
				out = append(out, cand)
				inFence = true
				continue
			}
			if isFenceClose(cand) {
				out = append(out, cand)
				inFence = false
				continue
			}
		}
		if inFence {
			out = append(out, line)
			continue
		}
		plain = append(plain, line)
	}
	flush()
	return strings.Join(out, "\n")
}

func reflowProse(seg string, target Target) string {
	text := hrLineRe.ReplaceAllString(seg, "")
	text = headingGluePRe.ReplaceAllString(text, "$1\n$2")
	text = headingGlueWRe.ReplaceAllString(text, "$1\n$2")
	text = ordinalGlueRe.ReplaceAllString(text, "$1\n$2. $3")
	text = ordinalStartRe.ReplaceAllString(text, "$1. $2")
	text = ordinalSplitRe.ReplaceAllString(text, "$1\n$2")
	text = bulletSplitRe.ReplaceAllString(text, "$1\n$2")
	text = hanBulletRe.ReplaceAllString(text, "$1\n- ")
	text = loneHeadingRe.ReplaceAllString(text, "$1 $2")
	text = quoteOnlyLineRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, reflowLine(line, target)...)
	}
	text = strings.Join(out, "\n")

	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEdgeRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.Trim(text, "\n")
}

// reflowLine applies the line-local rules: bare command items lose their list marker,
// commands glued after punctuation move to their own line, section labels become headings
// and trailing prose after a command is split off.
func reflowLine(line string, target Target) []string {
	s := strings.TrimSpace(line)
	if s == "" {
		return []string{""}
	}
	if m := markerPrefixRe.FindStringSubmatch(s); m != nil && LooksLikeShellCommand(m[1]) {
		return []string{m[1]}
	}
	if target == TargetAnswer {
		if m := sectionRe.FindStringSubmatch(s); m != nil {
			out := []string{"## " + m[1]}
			if tail := strings.TrimSpace(m[2]); tail != "" {
				out = append(out, reflowLine(tail, target)...)
			}
			return out
		}
	}
	if head, cmd, ok := splitAfterPunct(s); ok {
		return append([]string{head}, reflowLine(cmd, target)...)
	}
	if cmd, prose, ok := splitCommandProse(s); ok {
		return []string{cmd, prose}
	}
	return []string{s}
}

func splitAfterPunct(s string) (string, string, bool) {
	if LooksLikeShellCommand(s) {
		return "", "", false
	}
	for _, m := range punctVerbRe.FindAllStringSubmatchIndex(s, -1) {
		start := m[4]
		if start <= 0 {
			continue
		}
		rest := strings.TrimSpace(s[start:])
		if strings.Contains(rest, "`") {
			continue
		}
		if LooksLikeShellCommand(rest) {
			return strings.TrimSpace(s[:start]), rest, true
		}
		if _, _, ok := splitCommandProse(rest); ok {
			return strings.TrimSpace(s[:start]), rest, true
		}
	}
	return "", "", false
}

// splitCommandProse splits "cmd args 使用 CMake 构建：" into the command and the prose lead-in.
func splitCommandProse(line string) (string, string, bool) {
	s := strings.TrimSpace(line)
	m := shellLineRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	tail := strings.TrimSpace(m[2])
	if tail == "" || !hasWideScript(tail) {
		return "", "", false
	}
	loc := mixedProseRe.FindStringSubmatchIndex(tail)
	if loc == nil {
		return "", "", false
	}
	prose := strings.TrimSpace(tail[loc[2]:loc[3]])
	cmdTail := strings.TrimSpace(tail[:loc[0]])
	prefix := ""
	if strings.HasPrefix(s, "$") {
		prefix = "$ "
	}
	cmd := strings.TrimSpace(prefix + m[1] + " " + cmdTail)
	if !LooksLikeShellCommand(cmd) {
		return "", "", false
	}
	return cmd, prose, true
}
