package rewrite

import (
	"regexp"
	"strings"
)

// Rules is the ordered rule set. Later rules see earlier rules' output.
var Rules = []Rule{
	{
		Name:   "io-context-singleton",
		Note:   "Note: Galay has no `IoContext` singleton. Schedulers come from a `Runtime` instance through `runtime.getNextIOScheduler()` or `runtime.getNextComputeScheduler()`.",
		Family: FamilyCpp,
		Apply:  rewriteIoContext,
	},
	{
		Name:   "task-return-type",
		Note:   "Note: Galay coroutines return `Coroutine`, not `Task<void>` or `Task<T>`.",
		Family: FamilyCpp,
		Apply:  rewriteTaskReturnType,
	},
	{
		Name:   "coroutine-lambda",
		Note:   "Note: coroutine bodies should not live in lambdas because captured state can dangle. The example uses a named `Coroutine` callable instead.",
		Family: FamilyCpp,
		Apply:  rewriteCoroutineLambdas,
	},
	{
		Name:   "runtime-singleton",
		Note:   "Note: `Runtime` is not a singleton and has no `getInstance()`. Declare `galay::kernel::Runtime runtime` instead.",
		Family: FamilyCpp,
		Apply:  rewriteRuntimeSingleton,
	},
	{
		Name:   "http-server-config",
		Note:   "Note: the `HttpServer` example follows the documented API with `HttpServerConfig`, `HttpRouter` and `server.start(std::move(router))`.",
		Family: FamilyCpp,
		Apply:  rewriteHTTPServer,
	},
	{
		Name:   "rpc-server-config",
		Note:   "Note: the `RpcServer` example follows the documented API with `RpcServerConfig`, `RpcServer(config)` and `server.start()`.",
		Family: FamilyCpp,
		Apply:  rewriteRPCServer,
	},
	{
		Name:   "scheduler-client-ctor",
		Note:   "Note: the async Redis, MySQL, Mongo and Etcd clients take a scheduler, as in `RedisClient client(scheduler)`.",
		Family: FamilyCpp,
		Apply:  rewriteSchedulerClients,
	},
	{
		Name:   "http-dependency-clone",
		Note:   "Note: `galay-http` depends on `galay-utils`, so both repositories are cloned.",
		Family: FamilyShell,
		Apply:  ensureUtilsClone,
	},
	{
		Name:   "portable-parallel",
		Note:   "Note: build parallelism uses `--parallel` instead of platform-specific job counts like `$(nproc)`.",
		Family: FamilyShell,
		Apply:  rewriteParallelBuild,
	},
}

var (
	ioGetInstanceRe  = regexp.MustCompile(`(?i)\b(?:IoContext|IOContext)\s*::\s*GetInstance\s*\(\s*\)`)
	ioContextVarRe   = regexp.MustCompile(`\bioContext\b`)
	ioContextTypeRe  = regexp.MustCompile(`\bIoContext\b`)
	runtimeVarDeclRe = regexp.MustCompile(`\bRuntime\s+runtime\s*[;({]`)
)

func rewriteIoContext(code string) (string, bool) {
	fixed := ioGetInstanceRe.ReplaceAllString(code, "runtime.getNextIOScheduler()")
	usesRuntime := fixed != code
	fixed = ioContextVarRe.ReplaceAllString(fixed, "ioScheduler")
	fixed = ioContextTypeRe.ReplaceAllString(fixed, "IOScheduler")
	if usesRuntime && !runtimeVarDeclRe.MatchString(fixed) {
		fixed = insertBeforeFirst(fixed, "runtime.", "galay::kernel::Runtime runtime;")
	}
	return fixed, fixed != code
}

var (
	taskReturnRe = regexp.MustCompile(`(?i)->\s*(?:galay::kernel::)?Task\s*<\s*[^<>]+\s*>`)
	taskVoidRe   = regexp.MustCompile(`(?i)\b(?:galay::kernel::)?Task\s*<\s*void\s*>`)
)

// rewriteTaskReturnType leaves nested template arguments alone; Task<std::vector<int>> is ambiguous.
func rewriteTaskReturnType(code string) (string, bool) {
	fixed := taskReturnRe.ReplaceAllString(code, "-> Coroutine")
	fixed = taskVoidRe.ReplaceAllString(fixed, "Coroutine")
	return fixed, fixed != code
}

var (
	runtimeRefRe  = regexp.MustCompile(`(?m)^([ \t]*)(?:auto|(?:galay::kernel::)?Runtime)\s*&\s*([A-Za-z_]\w*)\s*=\s*(?:galay::kernel::)?Runtime::getInstance\(\s*\)\s*;[ \t]*$`)
	runtimePtrRe  = regexp.MustCompile(`(?m)^([ \t]*)(?:auto|(?:galay::kernel::)?Runtime)\s*\*\s*([A-Za-z_]\w*)\s*=\s*(?:&\s*)?(?:galay::kernel::)?Runtime::getInstance\(\s*\)\s*;[ \t]*$`)
	runtimeCallRe = regexp.MustCompile(`(?:galay::kernel::)?Runtime::getInstance\(\s*\)`)
)

func rewriteRuntimeSingleton(code string) (string, bool) {
	if !strings.Contains(code, "getInstance") {
		return code, false
	}
	var names []string
	collect := func(re *regexp.Regexp, s string) string {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if !contains(names, m[2]) {
				names = append(names, m[2])
			}
		}
		return re.ReplaceAllString(s, "${1}galay::kernel::Runtime ${2};")
	}
	fixed := collect(runtimeRefRe, code)
	fixed = collect(runtimePtrRe, fixed)

	if runtimeCallRe.MatchString(fixed) {
		name := "runtime"
		if len(names) > 0 {
			name = names[0]
		} else if !runtimeVarDeclRe.MatchString(fixed) {
			fixed = insertBeforeFirst(fixed, "Runtime::getInstance", "galay::kernel::Runtime runtime;")
		}
		fixed = runtimeCallRe.ReplaceAllString(fixed, name)
	}
	for _, name := range names {
		arrow := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*->`)
		fixed = arrow.ReplaceAllLiteralString(fixed, name+".")
	}
	return fixed, fixed != code
}

var (
	httpServerDeclRe   = regexp.MustCompile(`(?m)^([ \t]*)HttpServer[ \t]+([A-Za-z_]\w*)[ \t]*(\(([^)]*)\))?[ \t]*;[ \t]*$`)
	httpServerNamedRe  = regexp.MustCompile(`(?m)^[ \t]*HttpServer[ \t]+([A-Za-z_]\w*)[ \t]*\([^;]*\)[ \t]*;[ \t]*$`)
	httpConfigDeclRe   = regexp.MustCompile(`(?m)^([ \t]*)HttpServerConfig[ \t]+([A-Za-z_]\w*)`)
	httpRouterDeclRe   = regexp.MustCompile(`(?m)^[ \t]*HttpRouter[ \t]+\w+[ \t]*;[ \t]*$`)
	startCallRe        = regexp.MustCompile(`(?m)^([ \t]*)([A-Za-z_]\w*)[ \t]*\.[ \t]*start[ \t]*\([ \t]*([^)]*)\)[ \t]*;[ \t]*$`)
	routeCallRe        = regexp.MustCompile(`(?mi)^([ \t]*)([A-Za-z_]\w*)[ \t]*\.[ \t]*(get|post|put|del|delete|patch|head|options)[ \t]*\((.*)\)[ \t]*;[ \t]*$`)
	serverSchedulerArg = []string{"scheduler", "getnextioscheduler", "getnextcomputescheduler"}
)

var httpMethods = map[string]string{
	"get": "GET", "post": "POST", "put": "PUT", "del": "DELETE", "delete": "DELETE",
	"patch": "PATCH", "head": "HEAD", "options": "OPTIONS",
}

func rewriteHTTPServer(code string) (string, bool) {
	if !strings.Contains(code, "HttpServer") {
		return code, false
	}
	routerNeeded := false
	cfgName, hasConfig := declaredName(httpConfigDeclRe, code, "config")

	fixed := replaceSubmatchFunc(httpServerDeclRe, code, func(m []string) string {
		indent, name, args := m[1], m[2], strings.TrimSpace(m[4])
		lowered := strings.ToLower(args)
		if args != "" && !strings.Contains(args, ",") && !containsAny(lowered, serverSchedulerArg) {
			return m[0]
		}
		routerNeeded = true
		decl := indent + "HttpServer " + name + "(" + cfgName + ");"
		if hasConfig {
			return decl
		}
		hasConfig = true
		return indent + "HttpServerConfig " + cfgName + ";\n" + decl
	})

	servers := submatchSet(httpServerNamedRe, fixed, 1)
	if len(servers) == 0 {
		return fixed, fixed != code
	}

	fixed = replaceSubmatchFunc(startCallRe, fixed, func(m []string) string {
		if !servers[m[2]] {
			return m[0]
		}
		routerNeeded = true
		return m[1] + m[2] + ".start(std::move(router));"
	})
	fixed = replaceSubmatchFunc(routeCallRe, fixed, func(m []string) string {
		method, ok := httpMethods[strings.ToLower(m[3])]
		if !servers[m[2]] || !ok {
			return m[0]
		}
		routerNeeded = true
		return m[1] + "router.addHandler<HttpMethod::" + method + ">(" + strings.TrimSpace(m[4]) + ");"
	})

	if routerNeeded && !httpRouterDeclRe.MatchString(fixed) {
		fixed = insertRouterDecl(fixed)
	}
	return fixed, fixed != code
}

// insertRouterDecl puts the router declaration before the config, else before the server,
// else at the top.
func insertRouterDecl(code string) string {
	for _, re := range []*regexp.Regexp{httpConfigDeclRe, httpServerNamedRe} {
		if loc := re.FindStringIndex(code); loc != nil {
			return insertLineAt(code, loc[0], "HttpRouter router;")
		}
	}
	return "HttpRouter router;\n" + code
}

var (
	rpcServerDeclRe  = regexp.MustCompile(`(?m)^([ \t]*)RpcServer[ \t]+([A-Za-z_]\w*)[ \t]*(\(([^)]*)\))?[ \t]*;[ \t]*$`)
	rpcServerNamedRe = regexp.MustCompile(`(?m)^[ \t]*RpcServer[ \t]+([A-Za-z_]\w*)[ \t]*\([^;]*\)[ \t]*;[ \t]*$`)
	rpcConfigDeclRe  = regexp.MustCompile(`(?m)^([ \t]*)RpcServerConfig[ \t]+([A-Za-z_]\w*)\b`)
	rpcConfigUseRe   = regexp.MustCompile(`(?m)^[ \t]*RpcServer[ \t]+[A-Za-z_]\w*[ \t]*\([ \t]*config[ \t]*\)`)
	identRe          = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

func rewriteRPCServer(code string) (string, bool) {
	if !strings.Contains(code, "RpcServer") {
		return code, false
	}
	cfgName, hasConfig := declaredName(rpcConfigDeclRe, code, "config")
	fixed := replaceSubmatchFunc(rpcServerDeclRe, code, func(m []string) string {
		indent, name, args := m[1], m[2], strings.TrimSpace(m[4])
		// A single identifier is a config object built elsewhere.
		if identRe.MatchString(args) {
			return m[0]
		}
		decl := indent + "RpcServer " + name + "(" + cfgName + ");"
		if hasConfig {
			return decl
		}
		hasConfig = true
		return indent + "RpcServerConfig " + cfgName + ";\n" + decl
	})
	if !hasConfig {
		if loc := rpcConfigUseRe.FindStringIndex(fixed); loc != nil {
			fixed = insertLineAt(fixed, loc[0], "RpcServerConfig config;")
		}
	}

	servers := submatchSet(rpcServerNamedRe, fixed, 1)
	if len(servers) == 0 {
		return fixed, fixed != code
	}
	fixed = replaceSubmatchFunc(startCallRe, fixed, func(m []string) string {
		if !servers[m[2]] || strings.TrimSpace(m[3]) == "" {
			return m[0]
		}
		return m[1] + m[2] + ".start();"
	})
	return fixed, fixed != code
}

var schedulerClientRe = regexp.MustCompile(`(?m)^([ \t]*)((?:galay::redis::)?RedisClient|(?:galay::mysql::)?AsyncMysqlClient|(?:galay::mongo::)?AsyncMongoClient|(?:galay::etcd::)?AsyncEtcdClient)[ \t]+([A-Za-z_]\w*)[ \t]*;[ \t]*$`)

// localClientNames are the variable names treated as locals; anything else may be a member.
var localClientNames = map[string]bool{
	"client": true, "session": true, "sub": true, "pub": true,
	"redis": true, "mysql": true, "mongo": true, "etcd": true,
}

func rewriteSchedulerClients(code string) (string, bool) {
	if !strings.Contains(code, "scheduler") {
		return code, false
	}
	fixed := replaceSubmatchFunc(schedulerClientRe, code, func(m []string) string {
		if !localClientNames[m[3]] {
			return m[0]
		}
		return m[1] + m[2] + " " + m[3] + "(scheduler);"
	})
	return fixed, fixed != code
}

var (
	kernelCloneRe = regexp.MustCompile(`(?m)^([ \t]*)git\s+clone\s+https://github\.com/gzj-creator/galay-kernel\.git[ \t]*$`)
	httpCloneRe   = regexp.MustCompile(`(?m)^([ \t]*)git\s+clone\s+https://github\.com/gzj-creator/galay-http\.git[ \t]*$`)
	utilsCloneRe  = regexp.MustCompile(`(?m)^[ \t]*git\s+clone\s+https://github\.com/gzj-creator/galay-utils\.git[ \t]*$`)
)

const utilsClone = "git clone https://github.com/gzj-creator/galay-utils.git"

func ensureUtilsClone(code string) (string, bool) {
	if !strings.Contains(code, "galay-http") || utilsCloneRe.MatchString(code) {
		return code, false
	}
	if !kernelCloneRe.MatchString(code) || !httpCloneRe.MatchString(code) {
		return code, false
	}
	loc := kernelCloneRe.FindStringSubmatchIndex(code)
	indent := code[loc[2]:loc[3]]
	fixed := code[:loc[1]] + "\n" + indent + utilsClone + code[loc[1]:]
	return fixed, true
}

var (
	cmakeParallelRe = regexp.MustCompile(`(?m)^([ \t]*cmake[ \t]+--build\b.*?)[ \t]+-j(?:[ \t]*"?\$\([^)\n]*\)"?|[ \t]*\d+)?[ \t]*$`)
	makeNprocRe     = regexp.MustCompile(`(?m)^([ \t]*(?:sudo[ \t]+)?make\b.*?)[ \t]+-j[ \t]*"?\$\([^)\n]*\)"?`)
)

func rewriteParallelBuild(code string) (string, bool) {
	fixed := cmakeParallelRe.ReplaceAllString(code, "$1 --parallel")
	fixed = makeNprocRe.ReplaceAllString(fixed, "$1 -j")
	return fixed, fixed != code
}

// insertBeforeFirst inserts decl on its own line, with matching indentation, before the first
// line containing marker.
func insertBeforeFirst(code, marker, decl string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if strings.Contains(l, marker) {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i]...)
			out = append(out, leadingSpace(l)+decl)
			out = append(out, lines[i:]...)
			return strings.Join(out, "\n")
		}
	}
	return code
}

// insertLineAt inserts line before the line starting at offset, copying its indentation.
func insertLineAt(code string, offset int, line string) string {
	return code[:offset] + leadingSpace(code[offset:]) + line + "\n" + code[offset:]
}

// declaredName returns the variable name of the first declaration re matches, or fallback.
func declaredName(re *regexp.Regexp, code, fallback string) (string, bool) {
	if m := re.FindStringSubmatch(code); m != nil {
		return m[2], true
	}
	return fallback, false
}

func replaceSubmatchFunc(re *regexp.Regexp, s string, fn func([]string) string) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(m))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func submatchSet(re *regexp.Regexp, s string, group int) map[string]bool {
	out := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out[m[group]] = true
	}
	return out
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
