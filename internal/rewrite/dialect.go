package rewrite

import (
	"regexp"
	"strings"

	"docqa/internal/markdown"
)

const (
	importHeading  = "### Module import variant"
	includeHeading = "### Header include variant"
	dialectNote    = "Note: the example is also shown in the other inclusion style, with header includes or C++23 module imports."
)

var (
	includeLineRe = regexp.MustCompile(`^\s*#\s*include\s*[<"]([^>"]+)[>"]\s*$`)
	importLineRe  = regexp.MustCompile(`^\s*import\s+([A-Za-z_][A-Za-z0-9_.]*)\s*;\s*$`)
)

// includePrefixes maps a header path prefix to the module that exports it. Order matters for
// the first-match lookup.
var includePrefixes = []struct{ prefix, module string }{
	{"galay-kernel/", "galay.kernel"},
	{"galay-ssl/", "galay.ssl"},
	{"galay-http/", "galay.http"},
	{"galay-rpc/", "galay.rpc"},
	{"galay-redis/", "galay.redis"},
	{"galay-mysql/", "galay.mysql"},
	{"galay-mongo/", "galay.mongo"},
	{"galay-etcd/", "galay.etcd"},
	{"galay-utils/", "galay.utils"},
	{"galay-mcp/", "galay.mcp"},
}

// moduleIncludes is the canonical header for each module.
var moduleIncludes = map[string]string{
	"galay.kernel": `#include "galay-kernel/kernel/Runtime.h"`,
	"galay.ssl":    `#include "galay-ssl/async/SslSocket.h"`,
	"galay.http":   `#include "galay-http/kernel/http/HttpServer.h"`,
	"galay.rpc":    `#include "galay-rpc/kernel/RpcServer.h"`,
	"galay.redis":  `#include "galay-redis/async/RedisClient.h"`,
	"galay.mysql":  `#include "galay-mysql/async/AsyncMysqlClient.h"`,
	"galay.mongo":  `#include "galay-mongo/async/AsyncMongoClient.h"`,
	"galay.etcd":   `#include "galay-etcd/async/AsyncEtcdClient.h"`,
	"galay.utils":  `#include <galay-utils/galay-utils.hpp>`,
	"galay.mcp":    `#include "galay-mcp/server/McpStdioServer.h"`,
}

// synthesizeDialect returns a heading and a code block in the inclusion style the answer is
// missing. Nothing is produced when both styles, or neither, are present.
func synthesizeDialect(segs []markdown.Segment) ([]markdown.Segment, bool) {
	var includeCode, importCode string
	for _, s := range segs {
		if !s.Fenced || !isCppBlock(s.Lang, s.Text()) {
			continue
		}
		code := s.Text()
		if includeCode == "" && hasModuleInclude(code) {
			includeCode = code
		}
		if importCode == "" && hasModuleImport(code) {
			importCode = code
		}
	}

	var variant, heading string
	switch {
	case includeCode != "" && importCode != "":
		return nil, false
	case includeCode != "":
		variant, heading = importVariant(includeCode), importHeading
	case importCode != "":
		variant, heading = includeVariant(importCode), includeHeading
	}
	if variant == "" {
		return nil, false
	}
	return []markdown.Segment{
		{Lines: []string{"", heading, ""}},
		{Fenced: true, Lang: "cpp", Lines: strings.Split(variant, "\n")},
	}, true
}

func moduleForHeader(header string) string {
	header = strings.TrimSpace(header)
	for _, p := range includePrefixes {
		if strings.HasPrefix(header, p.prefix) {
			return p.module
		}
	}
	return ""
}

func hasModuleInclude(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		if m := includeLineRe.FindStringSubmatch(line); m != nil && moduleForHeader(m[1]) != "" {
			return true
		}
	}
	return false
}

func hasModuleImport(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		if m := importLineRe.FindStringSubmatch(line); m != nil {
			if _, ok := moduleIncludes[m[1]]; ok {
				return true
			}
		}
	}
	return false
}

// importVariant swaps module headers for import declarations and keeps the rest verbatim.
func importVariant(code string) string {
	var head, body []string
	for _, line := range strings.Split(code, "\n") {
		if m := includeLineRe.FindStringSubmatch(line); m != nil {
			if mod := moduleForHeader(m[1]); mod != "" {
				if decl := "import " + mod + ";"; !contains(head, decl) {
					head = append(head, decl)
				}
				continue
			}
		}
		body = append(body, strings.TrimRight(line, " \t"))
	}
	return assembleVariant(head, body)
}

func includeVariant(code string) string {
	var head, body []string
	for _, line := range strings.Split(code, "\n") {
		if m := importLineRe.FindStringSubmatch(line); m != nil {
			if inc, ok := moduleIncludes[m[1]]; ok {
				if !contains(head, inc) {
					head = append(head, inc)
				}
				continue
			}
		}
		body = append(body, strings.TrimRight(line, " \t"))
	}
	return assembleVariant(head, body)
}

func assembleVariant(head, body []string) string {
	if len(head) == 0 {
		return ""
	}
	out := append([]string(nil), head...)
	if body = trimBlankEdges(body); len(body) > 0 {
		out = append(out, "")
		out = append(out, body...)
	}
	return reindent(strings.Join(out, "\n"))
}
