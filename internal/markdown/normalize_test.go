package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var answerOpts = Options{Target: TargetAnswer, StripDecorative: true}

func TestNormalize_SectionListAndCommands(t *testing.T) {
	in := "1. 环境要求：\n- GCC 11+\ncmake -S . -B build\ncmake --build build -j\n"
	want := "## 环境要求\n- GCC 11+\n```bash\ncmake -S . -B build\ncmake --build build -j\n```"
	assert.Equal(t, want, Normalize(in, answerOpts))
}

func TestNormalize_IndexModeKeepsSectionLabels(t *testing.T) {
	out := Normalize("环境要求：\n- GCC 11+", Options{Target: TargetIndex, StripDecorative: true})
	assert.Equal(t, "环境要求：\n- GCC 11+", out)
}

func TestNormalize_CommandFollowedByProseLeadIn(t *testing.T) {
	in := "2. 安装步骤：git clone https://github.com/galay/galay.git 使用 CMake 构建：\ncmake -S . -B build\ncmake --build build -j"
	want := strings.Join([]string{
		"## 安装步骤",
		"```bash",
		"git clone https://github.com/galay/galay.git",
		"```",
		"使用 CMake 构建：",
		"```bash",
		"cmake -S . -B build",
		"cmake --build build -j",
		"```",
	}, "\n")
	assert.Equal(t, want, Normalize(in, answerOpts))
}

func TestNormalize_QuotedFences(t *testing.T) {
	in := "\"```bash\npython3 -m venv .venv\nsource .venv/bin/activate\npip install -r requirements.txt\n```\""
	out := Normalize(in, answerOpts)
	assert.Contains(t, out, "```bash\npython3 -m venv .venv")
	assert.NotContains(t, out, "\"```")
	assert.NotContains(t, out, "```\"")
}

func TestNormalize_RepeatedOrdinalsAreNotRenumbered(t *testing.T) {
	assert.Equal(t, "1. a\n1. b\n1. c", Normalize("1. a\n1. b\n1. c\n", answerOpts))
}

func TestNormalize_DecorativeGlyphs(t *testing.T) {
	out := Normalize("✅ 完成​", Options{Target: TargetAnswer})
	assert.Equal(t, "✅ 完成", out)

	out = Normalize("✅ 完成", answerOpts)
	assert.Equal(t, "完成", out)
}

func TestNormalize_GluedStructure(t *testing.T) {
	out := Normalize("准备工作如下：1.安装依赖。2.编译项目", answerOpts)
	assert.Equal(t, "准备工作如下：\n1. 安装依赖。\n2. 编译项目", out)

	out = Normalize("介绍完毕。## 下一步", answerOpts)
	assert.Equal(t, "介绍完毕。\n## 下一步", out)

	out = Normalize("依赖如下：- CMake\n- Ninja", answerOpts)
	assert.Equal(t, "依赖如下：\n- CMake\n- Ninja", out)
}

func TestNormalize_InlineFenceTokens(t *testing.T) {
	out := Normalize("示例如下：```cpp int main(){}```", answerOpts)
	assert.Equal(t, "示例如下：\n```cpp\nint main(){}\n```", out)
}

func TestNormalize_ProseThenInlineInclude(t *testing.T) {
	out := Normalize("示例：#include <iostream> int main(){ return 0; }", answerOpts)
	want := "示例：\n```cpp\n#include <iostream>\nint main(){\nreturn 0; }\n```"
	assert.Equal(t, want, out)
}

func TestNormalize_HorizontalRulesCollapse(t *testing.T) {
	assert.Equal(t, "上文\n\n下文", Normalize("上文\n---\n下文", answerOpts))
}

func TestNormalize_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Normalize("", answerOpts))
	assert.Equal(t, "", Normalize("  \n\n", answerOpts))
}

func TestNormalize_DropsEmptyAndProseOnlyFences(t *testing.T) {
	assert.Equal(t, "前言", Normalize("前言\n```bash\n\n```", answerOpts))
	assert.Equal(t, "这里只是一段说明。", Normalize("```text\n这里只是一段说明。\n```", answerOpts))
}

func TestNormalize_MovesLeadingExplanationOutOfFence(t *testing.T) {
	in := "```bash\n下面是构建命令：\ncmake -S . -B build\n```"
	assert.Equal(t, "下面是构建命令：\n```bash\ncmake -S . -B build\n```", Normalize(in, answerOpts))
}

func TestNormalize_ClosesDanglingFence(t *testing.T) {
	out := Normalize("```cpp\nint x = 1;", answerOpts)
	assert.Equal(t, "```cpp\nint x = 1;\n```", out)
}

func TestNormalize_LanguageHintLine(t *testing.T) {
	out := Normalize("bash\ncd build && make", answerOpts)
	assert.Equal(t, "```bash\ncd build &&\nmake\n```", out)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	for _, in := range normalizeCorpus {
		once := Normalize(in, answerOpts)
		require.Equal(t, once, Normalize(once, answerOpts), "input: %q", in)
	}
}

func TestNormalize_FencesStayBalanced(t *testing.T) {
	for _, in := range normalizeCorpus {
		out := Normalize(in, answerOpts)
		open := 0
		for _, seg := range SplitFences(out) {
			if seg.Fenced {
				open++
				assert.NotEmpty(t, strings.TrimSpace(seg.Text()), "empty fence in %q", out)
			}
		}
		assert.Equal(t, open*2, countFenceLines(out), "input: %q", in)
	}
}

func countFenceLines(text string) int {
	n := 0
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		cand := fenceCandidate(line)
		if !fenceLineRe.MatchString(cand) {
			continue
		}
		if !inFence {
			inFence = true
			n++
			continue
		}
		if isFenceClose(cand) {
			inFence = false
			n++
		}
	}
	return n
}

var normalizeCorpus = []string{
	"1. 环境要求：\n- GCC 11+\ncmake -S . -B build\ncmake --build build -j\n",
	"2. 安装步骤：git clone https://github.com/galay/galay.git 使用 CMake 构建：\ncmake -S . -B build",
	"\"```bash\npip install -r requirements.txt\n```\"",
	"1. a\n1. b\n1. c\n",
	"```cpp\nint main() {\n```python\nprint(1)\n```\n",
	"```bash\n\n```\n正文",
	"说明：cd build && cmake .. && make -j4",
	"示例：#include <iostream>#include <vector>int main(){ return 0; }",
	"bash\n\n正文",
	"## 标题\n\n> 引用\n\n---\n\n- a\n- b",
	"Requirements: a C++20 compiler.\nRun the following commands to build:\ncmake -S . -B build",
	"```text\n下面是说明。\n```\n```bash\nmake\n",
	"介绍完毕。## 下一步 1.安装",
	"cmake -S . -B build cmake --build build -j",
	"```\nauto t = [](){ co_await x(); };\n```",
}

func TestSplitFences_NestedTaggedLineIsBody(t *testing.T) {
	segs := SplitFences("a\n```md\n```go\nx\n```\nb")
	require.Len(t, segs, 3)
	assert.Equal(t, []string{"```go", "x"}, segs[1].Lines)
	assert.Equal(t, "md", segs[1].Lang)
	assert.Equal(t, "a\n```md\n```go\nx\n```\nb", JoinSegments(segs))
}

func TestClean_CodeKindOnlyTouchesWhitespace(t *testing.T) {
	in := "int main() {  \r\n\n\n\n\n  return 0;\n}\n"
	assert.Equal(t, "int main() {\n\n\n  return 0;\n}", Clean(in, KindCode))
}

func TestClean_MarkdownUsesIndexMode(t *testing.T) {
	out := Clean("## 安装\n运行命令：\ncmake --build build\n", KindMarkdown)
	assert.Equal(t, "## 安装\n运行命令：\n```bash\ncmake --build build\n```", out)
}
