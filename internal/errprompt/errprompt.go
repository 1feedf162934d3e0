// Package errprompt appends guidance to error messages returned to AI
// callers, steering them toward a tool or rewrite that can resolve the
// failure instead of retrying it verbatim.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error-message pattern to a guidance prompt.
type Rule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// Defaults returns the built-in steering rules. They run before any
// configured extras.
func Defaults() []Rule {
	return []Rule{
		{
			Pattern: `(?i)doesn't exist|does not exist|unknown table`,
			Message: "The table does not exist. Use list_tables to see the tables that are available.",
		},
		{
			Pattern: `(?i)unknown column`,
			Message: "The column does not exist. Use describe_table to see the columns of the table.",
		},
		{
			Pattern: `(?i)access denied|command denied`,
			Message: "The database user lacks privileges for this operation. Ask the user to check the account grants.",
		},
		{
			Pattern: `(?i)only read-only statements|forbidden keyword`,
			Message: "Only SELECT, SHOW, DESCRIBE, and EXPLAIN statements are accepted. Rewrite the request as a read-only query.",
		},
		{
			Pattern: `(?i)timed out`,
			Message: "The query timed out. Narrow the scan with a WHERE clause or a smaller limit and try again.",
		},
	}
}

type guidance struct {
	re     *regexp.Regexp
	prompt string
}

// Matcher holds compiled rules and evaluates error messages against
// them, top to bottom.
type Matcher struct {
	guides []guidance
}

// NewMatcher compiles the rules. Returns an error on an invalid regex.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{guides: make([]guidance, 0, len(rules))}
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errprompt: invalid regex pattern %q: %v", r.Pattern, err)
		}
		m.guides = append(m.guides, guidance{re: re, prompt: r.Message})
	}
	return m, nil
}

// scan visits every rule whose pattern matches errMsg, in rule order.
func (m *Matcher) scan(errMsg string, visit func(guidance)) {
	for _, g := range m.guides {
		if g.re.MatchString(errMsg) {
			visit(g)
		}
	}
}

// Match returns the guidance messages of every matching rule, joined
// with newlines. Empty string when nothing matches.
func (m *Matcher) Match(errMsg string) string {
	var prompts []string
	m.scan(errMsg, func(g guidance) {
		prompts = append(prompts, g.prompt)
	})
	return strings.Join(prompts, "\n")
}

// MatchedPatterns returns the source patterns of every matching rule,
// for logging which rules fired. Nil when nothing matches.
func (m *Matcher) MatchedPatterns(errMsg string) []string {
	var fired []string
	m.scan(errMsg, func(g guidance) {
		fired = append(fired, g.re.String())
	})
	return fired
}
