package rewrite

import (
	"regexp"
	"strings"
)

// maxLambdaLines bounds the scan for the end of a multi-line lambda.
const maxLambdaLines = 240

var (
	lambdaOpenRe   = regexp.MustCompile(`^([ \t]*)auto[ \t]+([A-Za-z_]\w*)[ \t]*=[ \t]*\[[ \t]*\][ \t]*\(([^)]*)\)[ \t]*(?:->[^{]+)?\{[ \t]*$`)
	lambdaInlineRe = regexp.MustCompile(`^([ \t]*)auto[ \t]+([A-Za-z_]\w*)[ \t]*=[ \t]*\[[ \t]*\][ \t]*\(([^)]*)\)[ \t]*(?:->[^{]+)?\{(.*)\}[ \t]*;[ \t]*$`)
	lambdaCloseRe  = regexp.MustCompile(`^[ \t]*\}[ \t]*;[ \t]*$`)
	coOperatorRe   = regexp.MustCompile(`\bco_(?:await|return|yield)\b`)
)

// rewriteCoroutineLambdas turns capture-less coroutine lambdas into named callable structs.
// Lambdas without a coroutine operator, or whose end cannot be found, are left alone.
func rewriteCoroutineLambdas(code string) (string, bool) {
	if !coOperatorRe.MatchString(code) {
		return code, false
	}
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines)+4)
	changed := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := lambdaInlineRe.FindStringSubmatch(line); m != nil && coOperatorRe.MatchString(m[4]) {
			body := strings.TrimSpace(m[4])
			out = append(out, runnerStruct(m[1], m[2], m[3], []string{m[1] + "        " + body})...)
			changed = true
			continue
		}
		m := lambdaOpenRe.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		end := lambdaEnd(lines, i)
		if end < 0 {
			out = append(out, line)
			continue
		}
		out = append(out, runnerStruct(m[1], m[2], m[3], lines[i+1:end])...)
		changed = true
		i = end
	}
	if !changed {
		return code, false
	}
	return strings.Join(out, "\n"), true
}

// lambdaEnd returns the index of the "};" that closes the lambda opened on line start, or -1
// when the braces never balance on such a line or the body has no coroutine operator.
func lambdaEnd(lines []string, start int) int {
	depth := strings.Count(lines[start], "{") - strings.Count(lines[start], "}")
	hasCo := false
	limit := start + maxLambdaLines
	if limit > len(lines) {
		limit = len(lines)
	}
	for j := start + 1; j < limit; j++ {
		l := lines[j]
		if coOperatorRe.MatchString(l) {
			hasCo = true
		}
		depth += strings.Count(l, "{") - strings.Count(l, "}")
		if depth > 0 {
			continue
		}
		if depth == 0 && lambdaCloseRe.MatchString(l) && hasCo {
			return j
		}
		return -1
	}
	return -1
}

func runnerStruct(indent, name, params string, body []string) []string {
	out := []string{
		indent + "struct " + name + "_coroutine_runner {",
		indent + "    Coroutine operator()(" + strings.TrimSpace(params) + ") {",
	}
	out = append(out, body...)
	return append(out, indent+"    }", indent+"} "+name+";")
}
