// Package hooks runs operator-configured guard commands around query
// execution. A before_query hook sees the SQL text and can reject it or
// hand back a rewritten statement; an after_query hook sees the result
// JSON and can reject it or hand back a filtered version. Hooks are
// external executables speaking a one-line JSON protocol on
// stdin/stdout, so guard policies can be written in any language and
// changed without rebuilding the gateway.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the hook chains and the shared default budget.
type Config struct {
	DefaultTimeout time.Duration
	BeforeQuery    []HookEntry
	AfterQuery     []HookEntry
}

// HookEntry defines a single command-based hook. The command runs only
// when Pattern matches the current input.
type HookEntry struct {
	Pattern string
	Command string
	Args    []string
	Timeout time.Duration // zero means Config.DefaultTimeout
}

// Response is the one-line JSON a hook writes to stdout. Before-query
// hooks rewrite through ModifiedQuery, after-query hooks through
// ModifiedResult; the other field is ignored for that stage.
type Response struct {
	Accept         bool   `json:"accept"`
	ModifiedQuery  string `json:"modified_query,omitempty"`
	ModifiedResult string `json:"modified_result,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// Rejection is the error returned when a hook declines the query or
// result. The message is the hook's own, meant for the caller.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

// hookProc is one compiled hook: the gate regex plus the program to run.
type hookProc struct {
	re     *regexp.Regexp
	path   string
	args   []string
	budget time.Duration
}

// Runner executes the configured hook chains.
type Runner struct {
	before []hookProc
	after  []hookProc
	log    zerolog.Logger
}

// NewRunner compiles the hook config. Returns an error on invalid regex
// patterns, or when hooks are configured without a default budget.
func NewRunner(config Config, logger zerolog.Logger) (*Runner, error) {
	if config.DefaultTimeout <= 0 && (len(config.BeforeQuery) > 0 || len(config.AfterQuery) > 0) {
		return nil, fmt.Errorf("hooks: default_timeout_seconds must be > 0 when hooks are configured")
	}

	r := &Runner{log: logger}
	var err error
	if r.before, err = compile(config.BeforeQuery, config.DefaultTimeout); err != nil {
		return nil, err
	}
	if r.after, err = compile(config.AfterQuery, config.DefaultTimeout); err != nil {
		return nil, err
	}
	return r, nil
}

func compile(entries []HookEntry, defaultBudget time.Duration) ([]hookProc, error) {
	procs := make([]hookProc, 0, len(entries))
	for _, e := range entries {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("hooks: invalid regex pattern %q: %v", e.Pattern, err)
		}
		budget := e.Timeout
		if budget == 0 {
			budget = defaultBudget
		}
		procs = append(procs, hookProc{re: re, path: e.Command, args: e.Args, budget: budget})
	}
	return procs, nil
}

// HasAfterQueryHooks reports whether any after_query hooks are
// configured, letting callers skip result marshaling when none are.
func (r *Runner) HasAfterQueryHooks() bool {
	return len(r.after) > 0
}

// stage bundles what differs between the two chains: the name used in
// error messages, the fallback rejection message, the hooks, and which
// response field carries a rewrite.
type stage struct {
	name     string
	fallback string
	chain    []hookProc
	rewrite  func(Response) string
}

// RunBeforeQuery feeds query through the before_query chain. Each
// matching hook sees the previous hook's output. Returns the final
// query text and the commands that ran. A *Rejection error means a hook
// declined the query.
func (r *Runner) RunBeforeQuery(ctx context.Context, query string) (string, []string, error) {
	return r.runChain(ctx, stage{
		name:     "before_query",
		fallback: "query rejected by hook",
		chain:    r.before,
		rewrite:  func(res Response) string { return res.ModifiedQuery },
	}, query)
}

// RunAfterQuery feeds resultJSON through the after_query chain, with
// the same chaining and rejection semantics as RunBeforeQuery.
func (r *Runner) RunAfterQuery(ctx context.Context, resultJSON string) (string, []string, error) {
	return r.runChain(ctx, stage{
		name:     "after_query",
		fallback: "result rejected by hook",
		chain:    r.after,
		rewrite:  func(res Response) string { return res.ModifiedResult },
	}, resultJSON)
}

func (r *Runner) runChain(ctx context.Context, s stage, input string) (string, []string, error) {
	current := input
	var executed []string
	for _, p := range s.chain {
		// Patterns match the current text, so a rewrite by an earlier
		// hook can change which later hooks fire.
		if !p.re.MatchString(current) {
			continue
		}
		output, err := r.invoke(ctx, p, current)
		if err != nil {
			return "", nil, fmt.Errorf("%s hook error: %w", s.name, err)
		}
		executed = append(executed, p.path)

		var res Response
		if err := json.Unmarshal(output, &res); err != nil {
			return "", nil, fmt.Errorf("%s hook returned unparseable response (command: %s): %w", s.name, p.path, err)
		}
		if !res.Accept {
			msg := res.ErrorMessage
			if msg == "" {
				msg = s.fallback
			}
			return "", nil, &Rejection{Message: msg}
		}
		if repl := s.rewrite(res); repl != "" {
			current = repl
		}
	}
	return current, executed, nil
}

func (r *Runner) invoke(ctx context.Context, p hookProc, input string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.budget)
	defer cancel()

	// Command and args are passed separately, so there is no shell
	// interpretation of the input.
	cmd := exec.CommandContext(ctx, p.path, p.args...)
	cmd.Stdin = strings.NewReader(input)

	// Stdout carries the JSON response; stderr is only for the logs.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 {
		level := zerolog.DebugLevel
		if err != nil {
			level = zerolog.WarnLevel
		}
		r.log.WithLevel(level).Str("command", p.path).Str("stderr", stderr.String()).Msg("hook stderr output")
	}
	if err != nil {
		// Any failure stops the pipeline: non-zero exit, crash, or
		// timeout.
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("hook timed out: %s", p.path)
		}
		return nil, fmt.Errorf("hook failed (command: %s): %w", p.path, err)
	}
	return stdout.Bytes(), nil
}
