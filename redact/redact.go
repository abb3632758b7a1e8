// Package redact scrubs secret-shaped substrings from text destined for
// logs, events, error messages, or persisted metadata.
//
// Redact is pure and idempotent: redact(redact(x)) == redact(x). It is
// applied at every boundary where text could leave the process, never
// skipped for trusted internal paths.
package redact

import (
	"net/http"
	"regexp"
)

// Placeholder replaces redacted values.
const Placeholder = "[REDACTED]"

// keyPattern matches key names that resemble credentials.
const keyPattern = `(?:api[_-]?key|apikey|auth[_-]?key|access[_-]?key|token|secret|password|passwd|authorization|credential)`

var (
	// "api_key": "value"  — JSON member, quoted value. The closing quote
	// is preserved so the document stays valid JSON.
	jsonRule = regexp.MustCompile(`(?i)("` + keyPattern + `[a-z0-9_-]*"\s*:\s*")([^"]*)(")`)

	// Authorization: Bearer <value> — bare header line. Runs before the
	// generic key/value rule so the whole credential is consumed.
	bearerRule = regexp.MustCompile(`(?i)\b(authorization\s*[:=]\s*"?bearer\s+)[^"\s,}&]+`)

	// api_key: "value" — unquoted key, quoted value (YAML style).
	quotedValueRule = regexp.MustCompile(`(?i)\b(` + keyPattern + `[a-z0-9_-]*\s*[:=]\s*")([^"]*)(")`)

	// api_key: value / token=value — YAML, env, or header style.
	kvRule = regexp.MustCompile(`(?i)\b(` + keyPattern + `[a-z0-9_-]*\s*[:=]\s*)([^"\s,}&][^\s,}&]*)`)

	// api_key=value inside a query string.
	queryRule = regexp.MustCompile(`(?i)([?&]` + keyPattern + `[a-z0-9_-]*=)[^&\s]+`)
)

// Redact returns s with every recognizable secret value replaced by
// Placeholder. Surrounding structure (JSON quoting, YAML keys, header
// names) is preserved so the result stays syntactically valid.
func Redact(s string) string {
	s = jsonRule.ReplaceAllString(s, "${1}"+Placeholder+"${3}")
	s = quotedValueRule.ReplaceAllString(s, "${1}"+Placeholder+"${3}")
	s = bearerRule.ReplaceAllString(s, "${1}"+Placeholder)
	s = queryRule.ReplaceAllString(s, "${1}"+Placeholder)
	s = kvRule.ReplaceAllString(s, "${1}"+Placeholder)
	return s
}

// sensitiveHeaders are replaced wholesale in header snapshots.
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"X-Api-Key":           true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

// Headers returns a copy of h safe for inclusion in diagnostics: values of
// credential-bearing headers are replaced, everything else is passed
// through Redact.
func Headers(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if sensitiveHeaders[http.CanonicalHeaderKey(name)] {
			out[name] = []string{Placeholder}
			continue
		}
		copied := make([]string, len(values))
		for i, v := range values {
			copied[i] = Redact(v)
		}
		out[name] = copied
	}
	return out
}
