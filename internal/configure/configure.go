// Package configure implements the interactive configuration wizard
// behind 'mysqlmcp configure'. It walks every config file field with
// the current (or default) value prefilled, validates answers as they
// are typed, and writes the result back as indented JSON. Connection
// parameters are not part of the wizard: those come from MYSQL_*
// environment variables.
package configure

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	mysqlmcp "github.com/cosmohaven/mysql-mcp"
)

// Run walks the user through every config field on stdin/stderr and
// writes the result to path.
func Run(path string) error {
	return run(path, os.Stdin, os.Stderr)
}

func run(path string, in io.Reader, out io.Writer) error {
	cfg, fresh := loadExisting(path)
	if fresh {
		applyDefaults(cfg)
	}

	w := &wizard{in: bufio.NewScanner(in), out: out, fresh: fresh}

	fmt.Fprintf(out, "mysqlmcp configuration wizard\n")
	fmt.Fprintf(out, "File: %s\n\n", path)

	sections := []struct {
		name   string
		prompt func()
	}{
		{"Server", func() { promptServer(w, &cfg.Server) }},
		{"Logging", func() { promptLogging(w, &cfg.Logging) }},
		{"Pool", func() { promptPool(w, &cfg.Pool) }},
		{"Query", func() { promptQuery(w, &cfg.Query) }},
		{"Hooks", func() {
			cfg.Hooks.DefaultTimeoutSeconds = w.promptNonNegativeInt("hooks.default_timeout_seconds", cfg.Hooks.DefaultTimeoutSeconds, "seconds, must be > 0 when hooks are configured")
		}},
		{"Timeout Rules", func() { cfg.Query.TimeoutRules = w.promptTimeoutRules(cfg.Query.TimeoutRules) }},
		{"Error Prompts", func() { cfg.ErrorPrompts = w.promptErrorPrompts(cfg.ErrorPrompts) }},
		{"Sanitization Rules", func() { cfg.Sanitization = w.promptSanitizationRules(cfg.Sanitization) }},
		{"Hooks: Before Query", func() { cfg.Hooks.BeforeQuery = w.promptHookCommands("hooks.before_query", cfg.Hooks.BeforeQuery) }},
		{"Hooks: After Query", func() { cfg.Hooks.AfterQuery = w.promptHookCommands("hooks.after_query", cfg.Hooks.AfterQuery) }},
	}
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "=== %s ===\n", s.name)
		s.prompt()
	}

	if err := saveConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "\nSaved %s\n", path)
	fmt.Fprintf(out, "Connection settings come from the environment: MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASS, MYSQL_DB (and MYSQL2_* for a second database).\n")
	fmt.Fprintf(out, "Run 'mysqlmcp doctor' to verify the full setup.\n")
	return nil
}

func promptServer(w *wizard, s *mysqlmcp.ServerSettings) {
	s.Transport = w.promptEnum("server.transport", s.Transport, transports)
	s.Port = w.promptPositiveInt("server.port", s.Port, "http transport only, must be > 0")
	s.HealthCheckEnabled = w.promptBool("server.health_check_enabled", s.HealthCheckEnabled)
	s.HealthCheckPath = w.promptStringWithHint("server.health_check_path", s.HealthCheckPath, "path like /healthz; required when health_check_enabled is true")
	s.MetricsEnabled = w.promptBool("server.metrics_enabled", s.MetricsEnabled)
}

func promptLogging(w *wizard, l *mysqlmcp.LoggingConfig) {
	l.Level = w.promptEnum("logging.level", l.Level, logLevels)
	l.Format = w.promptEnum("logging.format", l.Format, logFormats)
	l.Output = w.promptStringWithHint("logging.output", l.Output, "stdout, stderr, or a file path")
}

func promptPool(w *wizard, pool *mysqlmcp.PoolConfig) {
	pool.MaxConns = w.promptPositiveInt("pool.max_conns", pool.MaxConns, "must be > 0")
	pool.MaxIdleConns = w.promptNonNegativeInt("pool.max_idle_conns", pool.MaxIdleConns, "0 = same as max_conns")
	pool.ConnMaxLifetime = w.promptDuration("pool.conn_max_lifetime", pool.ConnMaxLifetime, "Go duration such as 30m, 1h, or 1h30m")
}

func promptQuery(w *wizard, q *mysqlmcp.QueryConfig) {
	q.TimeoutSeconds = w.promptPositiveInt("query.timeout_seconds", q.TimeoutSeconds, "seconds, must be > 0")
	q.MaxSQLLength = w.promptPositiveInt("query.max_sql_length", q.MaxSQLLength, "bytes, must be > 0")
	q.MaxResultLength = w.promptPositiveInt("query.max_result_length", q.MaxResultLength, "characters, must be > 0")
}

// loadExisting reads the config file at path. The second return is
// true when no file exists yet.
func loadExisting(path string) (*mysqlmcp.ServerConfig, bool) {
	var cfg mysqlmcp.ServerConfig
	data, readErr := os.ReadFile(path)
	fresh := readErr != nil
	if !fresh {
		// Malformed content degrades to a zero config rather than
		// aborting the wizard.
		_ = json.Unmarshal(data, &cfg)
	}
	return &cfg, fresh
}

// applyDefaults fills a fresh config with the documented defaults.
func applyDefaults(cfg *mysqlmcp.ServerConfig) {
	cfg.Server = mysqlmcp.ServerSettings{Transport: "stdio", Port: 8080}
	cfg.Logging = mysqlmcp.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}
	cfg.Pool = mysqlmcp.PoolConfig{MaxConns: 5, ConnMaxLifetime: "1h"}
	cfg.Query = mysqlmcp.QueryConfig{TimeoutSeconds: 30, MaxSQLLength: 100000, MaxResultLength: 100000}
}

var transports = []string{"stdio", "http"}

var logLevels = []string{"debug", "info", "warn", "error"}

var logFormats = []string{"json", "text"}

func saveConfig(path string, cfg *mysqlmcp.ServerConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// wizard reads answers line by line and renders prompts with the
// value that pressing Enter keeps.
type wizard struct {
	in    *bufio.Scanner
	out   io.Writer
	fresh bool
}

func (w *wizard) readLine() string {
	if !w.in.Scan() {
		return ""
	}
	return strings.TrimSpace(w.in.Text())
}

// label names the prefilled value: "default" on a fresh config,
// "current" when editing an existing file.
func (w *wizard) label() string {
	if w.fresh {
		return "default"
	}
	return "current"
}

// ask renders one prompt and reads the answer. The second return is
// false when the user just pressed Enter.
func (w *wizard) ask(format string, args ...interface{}) (string, bool) {
	fmt.Fprintf(w.out, format, args...)
	answer := w.readLine()
	return answer, answer != ""
}

// note prints one indented feedback line under the current prompt.
func (w *wizard) note(format string, args ...interface{}) {
	fmt.Fprintf(w.out, "  "+format+"\n", args...)
}

func (w *wizard) promptStringWithHint(field string, current string, hint string) string {
	if answer, ok := w.ask("%s [%s] (%s: %q): ", field, hint, w.label(), current); ok {
		return answer
	}
	return current
}

// bound spells the lower bound for prompt messages: "> 0" for required
// positive fields, ">= 0" otherwise.
func bound(floor int) string {
	if floor > 0 {
		return fmt.Sprintf("> %d", floor-1)
	}
	return ">= 0"
}

// parseBounded parses answer as an integer no smaller than floor. On
// bad input it prints why and reports false.
func (w *wizard) parseBounded(answer string, floor int) (int, bool) {
	val, err := strconv.Atoi(answer)
	if err != nil {
		w.note("Invalid integer %q, try again.", answer)
		return 0, false
	}
	if val < floor {
		w.note("Value must be %s, try again.", bound(floor))
		return 0, false
	}
	return val, true
}

// promptIntField loops until the answer parses as an integer no
// smaller than floor. Empty input keeps current.
func (w *wizard) promptIntField(field, hint string, current, floor int) int {
	for {
		answer, ok := w.ask("%s [%s] (%s: %d): ", field, hint, w.label(), current)
		if !ok {
			return current
		}
		if val, valid := w.parseBounded(answer, floor); valid {
			return val
		}
	}
}

func (w *wizard) promptPositiveInt(field string, current int, hint string) int {
	return w.promptIntField(field, hint, current, 1)
}

func (w *wizard) promptNonNegativeInt(field string, current int, hint string) int {
	return w.promptIntField(field, hint, current, 0)
}

var boolAnswers = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
}

func (w *wizard) promptBool(field string, current bool) bool {
	for {
		answer, ok := w.ask("%s (%s: %v): ", field, w.label(), current)
		if !ok {
			return current
		}
		if val, known := boolAnswers[strings.ToLower(answer)]; known {
			return val
		}
		w.note("Invalid value %q, use true/false/yes/no, try again.", answer)
	}
}

func (w *wizard) promptDuration(field string, current string, hint string) string {
	for {
		answer, ok := w.ask("%s [%s] (%s: %q): ", field, hint, w.label(), current)
		if !ok {
			return current
		}
		if _, err := time.ParseDuration(answer); err != nil {
			w.note("Invalid Go duration %q, try again.", answer)
			continue
		}
		return answer
	}
}

func (w *wizard) promptEnum(field string, current string, allowed []string) string {
	options := strings.Join(allowed, ", ")
	for {
		answer, ok := w.ask("%s (%s: %q, options: %s): ", field, w.label(), current, options)
		if !ok {
			return current
		}
		if slices.Contains(allowed, answer) {
			return answer
		}
		w.note("Invalid value %q, must be one of: %s", answer, options)
	}
}

// listEditor drives one [a]dd/[r]emove/[c]ontinue loop over a slice of
// config entries. format renders one entry for the listing; add
// prompts for the fields of a new entry.
type listEditor[T any] struct {
	label  string
	format func(i int, item T) string
	add    func(w *wizard) T
}

func editList[T any](w *wizard, ed listEditor[T], items []T) []T {
	for {
		if len(items) == 0 {
			w.note("(no entries)")
		}
		for i, item := range items {
			fmt.Fprint(w.out, ed.format(i, item))
		}
		answer, _ := w.ask("[a]dd, [r]emove, [c]ontinue? ")
		switch strings.ToLower(answer) {
		case "a":
			items = append(items, ed.add(w))
		case "r":
			items = removeByIndex(w, ed.label, items)
		case "c", "":
			return items
		default:
			w.note("Unknown choice, try again.")
		}
	}
}

func (w *wizard) promptTimeoutRules(current []mysqlmcp.QueryTimeoutRule) []mysqlmcp.QueryTimeoutRule {
	return editList(w, listEditor[mysqlmcp.QueryTimeoutRule]{
		label: "timeout rule",
		format: func(i int, r mysqlmcp.QueryTimeoutRule) string {
			return fmt.Sprintf("  [%d] pattern=%q timeout_seconds=%d\n", i, r.Pattern, r.TimeoutSeconds)
		},
		add: func(w *wizard) mysqlmcp.QueryTimeoutRule {
			return mysqlmcp.QueryTimeoutRule{
				Pattern:        w.promptNewRegexField("pattern"),
				TimeoutSeconds: w.promptNewPositiveIntField("timeout_seconds"),
			}
		},
	}, current)
}

func (w *wizard) promptErrorPrompts(current []mysqlmcp.ErrorPromptRule) []mysqlmcp.ErrorPromptRule {
	return editList(w, listEditor[mysqlmcp.ErrorPromptRule]{
		label: "error prompt",
		format: func(i int, r mysqlmcp.ErrorPromptRule) string {
			return fmt.Sprintf("  [%d] pattern=%q message=%q\n", i, r.Pattern, r.Message)
		},
		add: func(w *wizard) mysqlmcp.ErrorPromptRule {
			return mysqlmcp.ErrorPromptRule{
				Pattern: w.promptNewRegexField("pattern"),
				Message: w.promptNewField("message"),
			}
		},
	}, current)
}

func (w *wizard) promptSanitizationRules(current []mysqlmcp.SanitizationRule) []mysqlmcp.SanitizationRule {
	return editList(w, listEditor[mysqlmcp.SanitizationRule]{
		label: "sanitization rule",
		format: func(i int, r mysqlmcp.SanitizationRule) string {
			return fmt.Sprintf("  [%d] pattern=%q replacement=%q description=%q\n", i, r.Pattern, r.Replacement, r.Description)
		},
		add: func(w *wizard) mysqlmcp.SanitizationRule {
			return mysqlmcp.SanitizationRule{
				Pattern:     w.promptNewRegexField("pattern"),
				Replacement: w.promptNewField("replacement"),
				Description: w.promptNewField("description"),
			}
		},
	}, current)
}

func (w *wizard) promptHookCommands(label string, current []mysqlmcp.HookCommand) []mysqlmcp.HookCommand {
	return editList(w, listEditor[mysqlmcp.HookCommand]{
		label: label,
		format: func(i int, e mysqlmcp.HookCommand) string {
			return fmt.Sprintf("  [%d] pattern=%q command=%q args=%v timeout_seconds=%d\n",
				i, e.Pattern, e.Command, e.Args, e.TimeoutSeconds)
		},
		add: func(w *wizard) mysqlmcp.HookCommand {
			return mysqlmcp.HookCommand{
				Pattern:        w.promptNewRegexField("pattern"),
				Command:        w.promptNewField("command"),
				Args:           splitArgs(w.promptNewField("args (comma-separated)")),
				TimeoutSeconds: w.promptNewNonNegativeIntField("timeout_seconds"),
			}
		},
	}, current)
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var args []string
	for _, a := range strings.Split(s, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return args
}

func (w *wizard) promptNewField(name string) string {
	answer, _ := w.ask("  %s: ", name)
	return answer
}

func (w *wizard) promptNewRegexField(name string) string {
	for {
		answer, ok := w.ask("  %s (regex): ", name)
		if !ok {
			return ""
		}
		if _, err := regexp.Compile(answer); err != nil {
			w.note("Invalid regex %q: %v, try again.", answer, err)
			continue
		}
		return answer
	}
}

// promptNewIntField reads an integer no smaller than floor for a new
// list entry. A positive floor makes the field required; with floor 0,
// empty input means 0.
func (w *wizard) promptNewIntField(name string, floor int) int {
	for {
		answer, ok := w.ask("  %s (must be %s): ", name, bound(floor))
		if !ok {
			if floor > 0 {
				w.note("Value is required and must be %s, try again.", bound(floor))
				continue
			}
			return 0
		}
		if val, valid := w.parseBounded(answer, floor); valid {
			return val
		}
	}
}

func (w *wizard) promptNewPositiveIntField(name string) int {
	return w.promptNewIntField(name, 1)
}

func (w *wizard) promptNewNonNegativeIntField(name string) int {
	return w.promptNewIntField(name, 0)
}

func removeByIndex[T any](w *wizard, label string, items []T) []T {
	if len(items) == 0 {
		w.note("No %s entries to remove.", label)
		return items
	}
	answer, _ := w.ask("  Index to remove: ")
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 0 || idx >= len(items) {
		w.note("Invalid index.")
		return items
	}
	return slices.Delete(items, idx, idx+1)
}
