package markdown

import (
	"regexp"
	"strings"
)

const shellVerbs = `git|docker|kubectl|curl|wget|npm|pnpm|yarn|pip3|pip|python3|python|cmake|make|` +
	`mkdir|cd|ls|pwd|echo|export|sudo|apt-get|apt|brew|dnf|yum|nc|telnet|cat|grep|sed|awk|` +
	`find|cp|mv|rm|chmod|chown|tar|unzip|zip|source|` +
	`g\+\+|gcc|clang\+\+|clang|go|cargo|javac|java`

var (
	wideScriptRe = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}]`)

	shellLineRe   = regexp.MustCompile(`^(?:\$\s*)?(` + shellVerbs + `|\./\S+)(?:\s(.*))?$`)
	cmakeLineRe   = regexp.MustCompile(`(?i)^(cmake_minimum_required|project|add_executable|add_library|target_link_libraries|target_include_directories|find_package|install)\s*\(`)
	includeLineRe = regexp.MustCompile(`(?i)^(?:cpp|c\+\+)?\s*#\s*include\s*[<"]`)
	intMainRe     = regexp.MustCompile(`\bint\s+main\s*\(`)

	shellTailStartRe = regexp.MustCompile(`^[A-Za-z0-9_./:@=~$"'-]`)
	versionTailRe    = regexp.MustCompile(`^\d+(?:\.\d+)*\+?$`)
	compilerTailRe   = regexp.MustCompile(`(?i)(?:^|\s)(-[-\w=:.+]+|\S+\.(?:c|cc|cpp|cxx|h|hpp|o|so|a))(?:\s|$)`)
	shellishRe       = regexp.MustCompile(`[-/=:@$~*_|&<>"'0-9]|\.\S`)
	sentenceEndRe    = regexp.MustCompile(`(?:[!?]|[A-Za-z]\.)$`)
	trailingColonRe  = regexp.MustCompile(`[:：]\s*$`)

	templateDeclRe  = regexp.MustCompile(`^(template\s*<|namespace\s+\w+\s*\{?\s*$)`)
	typeDeclRe      = regexp.MustCompile(`^(class|struct)\s+\w+(\s+final)?(\s*:\s*(public|private|protected)?\s*[\w:<>, ]+)?\s*[{;]?\s*$`)
	typedDeclRe     = regexp.MustCompile(`^\s*(int|void|bool|auto|size_t)\s+\w+.*[;{]\s*$`)
	coKeywordRe     = regexp.MustCompile(`\bco_(return|await|yield)\b`)
	returnStmtRe    = regexp.MustCompile(`^\s*return\b.*[;}]\s*$`)
	arrowCallRe     = regexp.MustCompile(`->\s*\w+\(`)
	braceOnlyRe     = regexp.MustCompile(`^[{}]+[;,]?$`)
	closeOnlyRe     = regexp.MustCompile(`^[)\]}]+[;,]?$`)
	cppCommentRe    = regexp.MustCompile(`^(//|/\*|\*|\*/)`)
	cmakeCallRe     = regexp.MustCompile(`^[A-Za-z_]+\s*\(`)
	explainCueRe    = regexp.MustCompile(`(说明|步骤|示例|构建|运行|验证|如下|例如|命令)`)
	explainEndRe    = regexp.MustCompile(`[：:。；;!?！？]$`)
	englishCodeChar = regexp.MustCompile(`[;{}()=<>]`)
)

// ambiguousVerbs are shell commands that double as everyday English words. Lines starting
// with them need shell-looking arguments before they count as commands.
var ambiguousVerbs = map[string]bool{
	"make": true, "find": true, "go": true, "cat": true, "cd": true, "echo": true, "ls": true,
	"cp": true, "mv": true, "rm": true, "java": true, "python": true, "python3": true, "zip": true,
	"export": true, "sed": true, "awk": true, "grep": true, "pwd": true, "nc": true, "yarn": true,
	"brew": true, "apt": true, "tar": true, "source": true,
}

var proseArgs = map[string]bool{
	"sure": true, "it": true, "this": true, "that": true, "the": true, "a": true, "an": true,
	"to": true, "up": true, "sense": true, "use": true, "of": true, "out": true, "more": true,
	"some": true, "them": true, "you": true, "me": true, "us": true, "one": true, "way": true,
	"into": true, "back": true, "and": true, "or": true, "is": true, "for": true, "with": true,
}

var compilers = map[string]bool{"gcc": true, "g++": true, "clang": true, "clang++": true}

func hasWideScript(s string) bool { return wideScriptRe.MatchString(s) }

// LooksLikeShellCommand reports whether a single line reads as a shell invocation.
func LooksLikeShellCommand(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || hasWideScript(s) || trailingColonRe.MatchString(s) {
		return false
	}
	m := shellLineRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	cmd, tail := m[1], strings.TrimSpace(m[2])
	if strings.HasPrefix(cmd, "./") {
		return true
	}
	if tail == "" {
		return cmd == "make" || cmd == "cmake" || cmd == "ls" || cmd == "pwd"
	}
	if !shellTailStartRe.MatchString(tail) || versionTailRe.MatchString(tail) {
		return false
	}
	if compilers[cmd] && !compilerTailRe.MatchString(tail) {
		return false
	}
	if ambiguousVerbs[cmd] {
		return shellArgs(tail)
	}
	return true
}

func shellArgs(tail string) bool {
	if sentenceEndRe.MatchString(tail) {
		return false
	}
	fields := strings.Fields(tail)
	if len(fields) == 1 {
		return !proseArgs[strings.ToLower(fields[0])]
	}
	return shellishRe.MatchString(tail)
}

// classifier is one row of the code-shape decision table.
type classifier struct {
	name string
	test func(line string, wide bool) bool
}

// codeClassifiers is evaluated in order; the first match wins.
var codeClassifiers = []classifier{
	{"include", func(s string, _ bool) bool { return includeLineRe.MatchString(s) }},
	{"template-or-namespace", func(s string, wide bool) bool { return !wide && templateDeclRe.MatchString(s) }},
	{"type-declaration", func(s string, wide bool) bool { return !wide && typeDeclRe.MatchString(s) }},
	{"cmake-call", func(s string, _ bool) bool { return cmakeLineRe.MatchString(s) }},
	{"shell-command", func(s string, _ bool) bool { return LooksLikeShellCommand(s) }},
	{"typed-declaration", func(s string, _ bool) bool { return typedDeclRe.MatchString(s) }},
	{"coroutine-keyword", func(s string, wide bool) bool { return !wide && coKeywordRe.MatchString(s) }},
	{"return-statement", func(s string, wide bool) bool { return !wide && returnStmtRe.MatchString(s) }},
	{"arrow-call", func(s string, wide bool) bool { return !wide && arrowCallRe.MatchString(s) }},
	{"brace-only", func(s string, _ bool) bool { return braceOnlyRe.MatchString(s) }},
	{"close-only", func(s string, _ bool) bool { return closeOnlyRe.MatchString(s) }},
	{"statement", func(s string, wide bool) bool { return !wide && strings.HasSuffix(s, ";") && len(s) >= 12 }},
	{"brace-and-call", func(s string, wide bool) bool {
		return !wide && strings.ContainsAny(s, "{}") && strings.Contains(s, "(")
	}},
}

// matchClassifier returns the name of the first classifier that accepts the line.
func matchClassifier(line string) string {
	s := strings.TrimSpace(line)
	if s == "" {
		return ""
	}
	wide := hasWideScript(s)
	for _, c := range codeClassifiers {
		if c.test(s, wide) {
			return c.name
		}
	}
	return ""
}

// LooksLikeCode reports whether a prose line is shaped like source code or a command.
func LooksLikeCode(line string) bool {
	return matchClassifier(line) != ""
}

// GuessLanguage picks a fence tag for a code-shaped line.
func GuessLanguage(line string) string {
	s := strings.TrimSpace(line)
	switch {
	case s == "":
		return "text"
	case includeLineRe.MatchString(s) || intMainRe.MatchString(s):
		return "cpp"
	case cmakeLineRe.MatchString(s):
		return "cmake"
	case LooksLikeShellCommand(s):
		return "bash"
	case LooksLikeCode(s):
		return "cpp"
	}
	return "text"
}

// isCodeLineFor reports whether a line inside a fence tagged lang is code for that language.
// Languages without a dedicated classifier accept anything that is not wide-script prose.
func isCodeLineFor(line, lang string) bool {
	s := strings.TrimSpace(line)
	if s == "" {
		return true
	}
	switch {
	case ShellLangs[lang]:
		return strings.HasPrefix(s, "#") || LooksLikeShellCommand(s)
	case lang == "cmake":
		return strings.HasPrefix(s, "#") || cmakeLineRe.MatchString(s) || cmakeCallRe.MatchString(s)
	case CppLangs[lang]:
		return cppCommentRe.MatchString(s) || LooksLikeCode(s)
	case lang == "" || lang == "text" || lang == "plaintext":
		return LooksLikeCode(s)
	}
	return !isExplanatory(s)
}

// isExplanatory reports whether a line reads as a sentence addressed to the reader.
func isExplanatory(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || LooksLikeCode(s) {
		return false
	}
	if hasWideScript(s) {
		return explainEndRe.MatchString(s) || explainCueRe.MatchString(s)
	}
	if s[0] < 'A' || s[0] > 'Z' || englishCodeChar.MatchString(s) {
		return false
	}
	if strings.Count(s, " ") < 3 {
		return false
	}
	return strings.HasSuffix(s, ":") || strings.HasSuffix(s, ".")
}
