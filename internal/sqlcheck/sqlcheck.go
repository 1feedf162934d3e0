// Package sqlcheck classifies SQL text as read-only or not. It is a
// lexical screen, not a parser: it looks at the leading statement keyword
// and scans for forbidden keywords as standalone words. It never builds
// an AST and never talks to a database.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strings"
)

// Statement kinds recognized as read-only.
const (
	KindSelect   = "SELECT"
	KindShow     = "SHOW"
	KindDescribe = "DESCRIBE"
	KindExplain  = "EXPLAIN"
)

// Verdict is the result of validating a single query string.
// Kind is set only when Accepted; Reason is set only when rejected.
type Verdict struct {
	Accepted bool
	Kind     string
	Reason   string
}

var readOnlyKinds = map[string]bool{
	KindSelect:   true,
	KindShow:     true,
	KindDescribe: true,
	KindExplain:  true,
}

// forbiddenRe matches write/DDL/DCL keywords as whole words, anywhere in
// the query. Word boundaries keep identifiers like updated_at or
// created_at from matching. This also catches stacked statements
// ("SELECT 1; DROP TABLE t") and forbidden keywords buried in subqueries
// or EXPLAIN bodies.
var forbiddenRe = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|REPLACE|GRANT|REVOKE|LOCK|UNLOCK)\b`)

// Validate classifies query text. It strips leading comments and
// whitespace, requires the leading keyword to be one of SELECT, SHOW,
// DESCRIBE, or EXPLAIN, and rejects any query containing a forbidden
// keyword as a standalone word, case-insensitively.
//
// Validate is pure and safe to call without a database.
func Validate(query string) Verdict {
	text := Normalize(query)
	if text == "" {
		return Verdict{Reason: "query is empty or contains only comments"}
	}

	kind := strings.ToUpper(leadingWord(text))
	if !readOnlyKinds[kind] {
		return Verdict{Reason: "only read-only statements are allowed (SELECT, SHOW, DESCRIBE, EXPLAIN)"}
	}

	if m := forbiddenRe.FindString(text); m != "" {
		return Verdict{Reason: fmt.Sprintf("forbidden keyword %s is not allowed", strings.ToUpper(m))}
	}

	return Verdict{Accepted: true, Kind: kind}
}

// Normalize strips leading/trailing whitespace and leading SQL comments
// ("--" line comments and "/* */" block comments) so the first token of
// the result is the statement keyword. An unterminated block comment
// swallows the rest of the text.
func Normalize(query string) string {
	s := query
	for {
		s = strings.TrimSpace(s)
		switch {
		case strings.HasPrefix(s, "--"):
			nl := strings.IndexByte(s, '\n')
			if nl < 0 {
				return ""
			}
			s = s[nl+1:]
		case strings.HasPrefix(s, "/*"):
			end := strings.Index(s, "*/")
			if end < 0 {
				return ""
			}
			s = s[end+2:]
		default:
			return s
		}
	}
}

// leadingWord returns the run of ASCII letters at the start of s.
func leadingWord(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			i++
			continue
		}
		break
	}
	return s[:i]
}
