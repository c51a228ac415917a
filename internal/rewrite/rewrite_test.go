package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fence(lang string, lines ...string) string {
	return "```" + lang + "\n" + strings.Join(lines, "\n") + "\n```"
}

func noteFor(t *testing.T, name string) string {
	t.Helper()
	for _, r := range Rules {
		if r.Name == name {
			return r.Note
		}
	}
	t.Fatalf("no rule %q", name)
	return ""
}

func TestApply_InlineCoroutineLambda(t *testing.T) {
	res := Apply(fence("cpp", "auto t = [](){ co_await x(); };"), Options{FinalizeExamples: true})
	want := fence("cpp",
		"struct t_coroutine_runner {",
		"    Coroutine operator()() {",
		"        co_await x();",
		"    }",
		"} t;",
	)
	assert.Equal(t, want, res.Text)
	require.Len(t, res.Notes, 1)
	assert.Equal(t, noteFor(t, "coroutine-lambda"), res.Notes[0])
}

func TestApply_MultiLineLambdaWithTaskReturn(t *testing.T) {
	in := fence("cpp",
		"auto handler = [](int fd) -> Task<void> {",
		"    co_await read(fd);",
		"};",
	)
	res := Apply(in, Options{})
	want := fence("cpp",
		"struct handler_coroutine_runner {",
		"    Coroutine operator()(int fd) {",
		"        co_await read(fd);",
		"    }",
		"} handler;",
	)
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{noteFor(t, "task-return-type"), noteFor(t, "coroutine-lambda")}, res.Notes)
}

func TestApply_PlainLambdaIsKept(t *testing.T) {
	in := fence("cpp", "auto f = [](){ return 1; };")
	res := Apply(in, Options{})
	assert.Equal(t, in, res.Text)
	assert.Empty(t, res.Notes)
}

func TestApply_NestedTaskTemplateIsSkipped(t *testing.T) {
	in := fence("cpp", "auto load() -> Task<std::vector<int>>;")
	res := Apply(in, Options{})
	assert.Equal(t, in, res.Text)
	assert.Empty(t, res.Notes)
}

func TestApply_IncludeExampleGetsImportVariant(t *testing.T) {
	in := fence("cpp", "#include <galay-http/kernel/http/HttpServer.h>", "int main(){}")
	res := Apply(in, Options{FinalizeExamples: true})
	want := in + "\n\n" + importHeading + "\n\n" + fence("cpp", "import galay.http;", "", "int main(){}")
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{dialectNote}, res.Notes)

	preview := Apply(in, Options{})
	assert.Equal(t, in, preview.Text)
	assert.Empty(t, preview.Notes)
}

func TestApply_ImportExampleGetsIncludeVariant(t *testing.T) {
	in := fence("cpp", "import galay.kernel;", "", "int main() {", "    return 0;", "}")
	res := Apply(in, Options{FinalizeExamples: true})
	want := in + "\n\n" + includeHeading + "\n\n" + fence("cpp",
		`#include "galay-kernel/kernel/Runtime.h"`, "", "int main() {", "    return 0;", "}")
	assert.Equal(t, want, res.Text)
}

func TestApply_BothDialectsPresent(t *testing.T) {
	in := fence("cpp", "#include <galay-kernel/kernel/Runtime.h>") + "\n\n" + fence("cpp", "import galay.kernel;")
	res := Apply(in, Options{FinalizeExamples: true})
	assert.Equal(t, in, res.Text)
	assert.Empty(t, res.Notes)
}

func TestApply_RuntimeSingleton(t *testing.T) {
	res := Apply(fence("cpp", "auto& rt = Runtime::getInstance();", "rt->start();"), Options{})
	assert.Equal(t, fence("cpp", "galay::kernel::Runtime rt;", "rt.start();"), res.Text)
	assert.Equal(t, []string{noteFor(t, "runtime-singleton")}, res.Notes)

	res = Apply(fence("cpp", "Runtime::getInstance().start();"), Options{})
	assert.Equal(t, fence("cpp", "galay::kernel::Runtime runtime;", "runtime.start();"), res.Text)

	// Other pointers whose names end in the runtime name keep their arrows.
	res = Apply(fence("cpp",
		"auto& rt = Runtime::getInstance();",
		"rt->start();",
		"auto* port = getPort();",
		"port->open();",
	), Options{})
	assert.Equal(t, fence("cpp",
		"galay::kernel::Runtime rt;",
		"rt.start();",
		"auto* port = getPort();",
		"port->open();",
	), res.Text)
}

func TestApply_IoContextSingleton(t *testing.T) {
	res := Apply(fence("cpp", "auto sched = IoContext::GetInstance();"), Options{})
	want := fence("cpp", "galay::kernel::Runtime runtime;", "auto sched = runtime.getNextIOScheduler();")
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{noteFor(t, "io-context-singleton")}, res.Notes)
}

func TestApply_HTTPServer(t *testing.T) {
	in := fence("cpp",
		"HttpServer server;",
		`server.get("/", handler);`,
		"server.start(8080);",
	)
	want := fence("cpp",
		"HttpRouter router;",
		"HttpServerConfig config;",
		"HttpServer server(config);",
		`router.addHandler<HttpMethod::GET>("/", handler);`,
		"server.start(std::move(router));",
	)
	res := Apply(in, Options{})
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{noteFor(t, "http-server-config")}, res.Notes)
}

func TestApply_HTTPServerKeepsExistingConfig(t *testing.T) {
	in := fence("cpp",
		"HttpServerConfig cfg;",
		"HttpServer server(scheduler, 8080);",
	)
	want := fence("cpp",
		"HttpRouter router;",
		"HttpServerConfig cfg;",
		"HttpServer server(cfg);",
	)
	assert.Equal(t, want, Apply(in, Options{}).Text)
}

func TestApply_RPCServer(t *testing.T) {
	res := Apply(fence("cpp", "RpcServer server(8080);", "server.start(8080);"), Options{})
	want := fence("cpp", "RpcServerConfig config;", "RpcServer server(config);", "server.start();")
	assert.Equal(t, want, res.Text)

	res = Apply(fence("cpp", "RpcServer server(config);"), Options{})
	assert.Equal(t, fence("cpp", "RpcServerConfig config;", "RpcServer server(config);"), res.Text)
}

func TestApply_SchedulerClients(t *testing.T) {
	in := fence("cpp",
		"auto scheduler = runtime.getNextIOScheduler();",
		"RedisClient client;",
		"RedisClient m_client;",
	)
	want := fence("cpp",
		"auto scheduler = runtime.getNextIOScheduler();",
		"RedisClient client(scheduler);",
		"RedisClient m_client;",
	)
	res := Apply(in, Options{})
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{noteFor(t, "scheduler-client-ctor")}, res.Notes)
}

func TestApply_UtilsCloneInserted(t *testing.T) {
	in := fence("bash",
		"git clone https://github.com/gzj-creator/galay-kernel.git",
		"git clone https://github.com/gzj-creator/galay-http.git",
	)
	want := fence("bash",
		"git clone https://github.com/gzj-creator/galay-kernel.git",
		"git clone https://github.com/gzj-creator/galay-utils.git",
		"git clone https://github.com/gzj-creator/galay-http.git",
	)
	res := Apply(in, Options{})
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{noteFor(t, "http-dependency-clone")}, res.Notes)
}

func TestApply_PortableParallel(t *testing.T) {
	in := fence("bash",
		`cmake --build build -j"$(nproc)"`,
		"make -j$(nproc 2>/dev/null || sysctl -n hw.ncpu)",
		"cmake --build build -j",
	)
	res := Apply(in, Options{})
	assert.Equal(t, fence("bash", "cmake --build build --parallel", "make -j", "cmake --build build --parallel"), res.Text)
	assert.NotContains(t, res.Text, "$(nproc")
}

func TestApply_RulesIgnoreProseAndOtherLanguages(t *testing.T) {
	in := "Avoid IoContext::GetInstance() in new code.\n\n" + fence("python", "ioContext = 1")
	res := Apply(in, Options{FinalizeExamples: true})
	assert.Equal(t, in, res.Text)
	assert.Empty(t, res.Notes)
}

func TestApply_FormattingPass(t *testing.T) {
	in := fence("cpp",
		"int main() {",
		"\tif (x) {",
		"foo();",
		"}",
		"#define X 1",
		"return 0;",
		"}",
	)
	want := fence("cpp",
		"int main() {",
		"    if (x) {",
		"        foo();",
		"    }",
		"#define X 1",
		"    return 0;",
		"}",
	)
	res := Apply(in, Options{})
	assert.Equal(t, want, res.Text)
	assert.Empty(t, res.Notes)

	assert.Equal(t, fence("cpp", "int main() {", "    return 0;", "}"),
		Apply(fence("", "int main() {", "return 0;", "}"), Options{}).Text)

	assert.Equal(t, fence("bash", "cmake -S . -B build"),
		Apply(fence("bash", "bash", "  cmake -S . -B build"), Options{}).Text)
	assert.Equal(t, fence("bash", "cd build"), Apply(fence("bash", "bash cd build"), Options{}).Text)
	assert.Equal(t, fence("text", "root", "  child"), Apply(fence("text", "root", "  child"), Options{}).Text)
	assert.Equal(t, "intro", Apply("intro\n"+fence("bash", "bash"), Options{}).Text)
}

func TestApply_IsIdempotent(t *testing.T) {
	corpus := []string{
		fence("cpp", "auto t = [](){ co_await x(); };"),
		fence("cpp", "auto handler = [](int fd) -> Task<void> {", "    co_await read(fd);", "};"),
		fence("cpp", "#include <galay-http/kernel/http/HttpServer.h>", "int main(){}"),
		fence("cpp", "auto& rt = Runtime::getInstance();", "rt->start();"),
		fence("cpp", "auto sched = IoContext::GetInstance();"),
		fence("cpp", "HttpServer server;", `server.get("/", handler);`, "server.start(8080);"),
		fence("cpp", "RpcServer server;", "server.start(8080);"),
		fence("cpp", "auto scheduler = runtime.getNextIOScheduler();", "RedisClient client;"),
		fence("bash", "git clone https://github.com/gzj-creator/galay-kernel.git", "git clone https://github.com/gzj-creator/galay-http.git"),
		fence("bash", `cmake --build build -j"$(nproc)"`),
	}
	for _, in := range corpus {
		once := Apply(in, Options{FinalizeExamples: true})
		twice := Apply(once.Text, Options{FinalizeExamples: true})
		assert.Equal(t, once.Text, twice.Text, "input: %q", in)
		assert.Empty(t, twice.Notes, "input: %q", in)
	}
}

func TestRules_AreNamedAndNoted(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Rules {
		assert.NotEmpty(t, r.Name)
		assert.NotEmpty(t, r.Note, r.Name)
		assert.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		seen[r.Name] = true
	}
	assert.NotEmpty(t, RulesVersion)
}

func TestNoteSet(t *testing.T) {
	var n NoteSet
	assert.True(t, n.Add("a"))
	assert.False(t, n.Add("a"))
	assert.False(t, n.Add(""))
	assert.True(t, n.Add("b"))
	assert.Equal(t, []string{"a", "b"}, n.List())
	assert.Equal(t, 2, n.Len())
}
