// Package timeout resolves per-query wall-clock budgets from regex
// rules matched against the SQL text. Operators use it to give known
// heavy queries (large joins, information_schema scans) a budget of
// their own instead of raising the gateway-wide default.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule binds a SQL pattern to a query budget.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

type matcher struct {
	re     *regexp.Regexp
	budget time.Duration
}

// Manager matches SQL text against timeout rules. The first matching
// rule wins; callers fall back to their own default when no rule
// matches.
type Manager struct {
	matchers []matcher
}

// NewManager compiles the rules. Returns an error on invalid regex
// patterns or non-positive budgets.
func NewManager(rules []Rule) (*Manager, error) {
	m := &Manager{matchers: make([]matcher, 0, len(rules))}
	for _, r := range rules {
		if r.Timeout <= 0 {
			return nil, fmt.Errorf("timeout: rule %q timeout must be > 0", r.Pattern)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("timeout: invalid regex pattern %q: %v", r.Pattern, err)
		}
		m.matchers = append(m.matchers, matcher{re: re, budget: r.Timeout})
	}
	return m, nil
}

// Resolve returns the budget of the first rule matching sql together
// with that rule's pattern, for logging. Returns zero when no rule
// matches.
func (m *Manager) Resolve(sql string) (time.Duration, string) {
	for _, mt := range m.matchers {
		if mt.re.MatchString(sql) {
			return mt.budget, mt.re.String()
		}
	}
	return 0, ""
}
