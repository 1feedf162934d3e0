package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"time"

	mysqlmcp "github.com/cosmohaven/mysql-mcp"
	"github.com/cosmohaven/mysql-mcp/internal/meta"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Config file to check")
	fs.Parse(os.Args[2:])

	_ = godotenv.Load()

	return doctor(os.Stderr, isTTY(os.Stderr.Fd()), *configPath)
}

func doctor(out io.Writer, color bool, path string) error {
	printBanner(out, color)
	fmt.Fprintf(out, "mysqlmcp %s\n\n", meta.Version)

	cfg, ok := doctorValidateConfig(out, color, path)
	if !ok {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Fix the issues above and run 'mysqlmcp doctor' again.")
		return nil
	}

	fmt.Fprintln(out)
	doctorCheckConnectivity(out, color, cfg)

	fmt.Fprintln(out)
	printAgentSnippets(out, color, cfg)
	return nil
}

// checkList renders one ✓ or ✗ line per check and counts the failures.
type checkList struct {
	w     io.Writer
	color bool
	fails int
}

func (c *checkList) passf(format string, args ...interface{}) {
	c.result(true, fmt.Sprintf(format, args...))
}

func (c *checkList) failf(format string, args ...interface{}) {
	c.fails++
	c.result(false, fmt.Sprintf(format, args...))
}

func (c *checkList) result(pass bool, msg string) {
	mark, tint := "✓", "\033[32m"
	if !pass {
		mark, tint = "✗", "\033[31m"
	}
	if c.color {
		fmt.Fprintf(c.w, "  %s%s\033[0m %s\n", tint, mark, msg)
		return
	}
	fmt.Fprintf(c.w, "  %s %s\n", mark, msg)
}

// doctorValidateConfig loads the optional config file plus the
// environment, printing check results. Returns the assembled config and
// true when every check passed.
func doctorValidateConfig(out io.Writer, color bool, path string) (*mysqlmcp.ServerConfig, bool) {
	checks := &checkList{w: out, color: color}

	// Check 1: config file (optional) parses
	var cfg mysqlmcp.ServerConfig
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		checks.passf("Config file not present (%s), defaults apply", path)
	case err != nil:
		checks.failf("Config file readable (%s): %v", path, err)
		return nil, false
	default:
		checks.passf("Config file readable (%s)", path)
		if err := json.Unmarshal(data, &cfg); err != nil {
			checks.failf("Config file is valid JSON: %v", err)
			return nil, false
		}
		checks.passf("Config file is valid JSON")
	}

	// Check 2: databases resolve from the environment
	databases, err := databasesFromEnv(false)
	if err != nil {
		checks.failf("Database environment resolves: %v", err)
		return nil, false
	}
	cfg.Databases = databases
	for _, db := range databases {
		host, port := db.Host, db.Port
		if host == "" {
			host = "127.0.0.1"
		}
		if port == 0 {
			port = 3306
		}
		checks.passf("Database %q resolved (%s:%d)", db.Name, host, port)
	}
	if len(databases) == 2 && databases[0].Name == databases[1].Name {
		checks.failf("Logical database names are distinct (both %q; set MYSQL_DB and MYSQL2_DB apart)", databases[0].Name)
	}
	for _, db := range databases {
		if db.Port < 0 || db.Port > 65535 {
			checks.failf("Database %q port in range (%d)", db.Name, db.Port)
		}
	}

	// Check 3: pool and query numbers are sane
	if cfg.Pool.MaxConns < 0 || cfg.Pool.MaxIdleConns < 0 {
		checks.failf("Pool sizes are non-negative")
	}
	if cfg.Pool.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(cfg.Pool.ConnMaxLifetime); err != nil {
			checks.failf("pool.conn_max_lifetime parses: %v", err)
		}
	}
	if cfg.Query.TimeoutSeconds < 0 || cfg.Query.MaxSQLLength < 0 || cfg.Query.MaxResultLength < 0 {
		checks.failf("Query limits are non-negative")
	}
	for i, rule := range cfg.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			checks.failf("query.timeout_rules[%d] timeout_seconds is > 0 (%d)", i, rule.TimeoutSeconds)
		}
	}

	// Check 4: server settings for the http transport
	if cfg.Server.Transport == "http" {
		if cfg.Server.Port > 0 {
			checks.passf("server.port is > 0 (%d)", cfg.Server.Port)
		} else {
			checks.failf("server.port is > 0")
		}
		if cfg.Server.HealthCheckEnabled && cfg.Server.HealthCheckPath == "" {
			checks.failf("health_check_path is set (required when health_check_enabled)")
		}
	}

	// Check 5: regex patterns compile. Every pattern-bearing config
	// section runs through the same check so a new section cannot
	// silently skip it.
	before := checks.fails
	checkPattern := func(section string, i int, pattern string) {
		if _, err := regexp.Compile(pattern); err != nil {
			checks.failf("%s[%d] regex compiles: %v", section, i, err)
		}
	}
	for i, rule := range cfg.ErrorPrompts {
		checkPattern("error_prompts", i, rule.Pattern)
	}
	for i, rule := range cfg.Sanitization {
		checkPattern("sanitization", i, rule.Pattern)
	}
	for i, rule := range cfg.Query.TimeoutRules {
		checkPattern("query.timeout_rules", i, rule.Pattern)
	}
	for i, hook := range cfg.Hooks.BeforeQuery {
		checkPattern("hooks.before_query", i, hook.Pattern)
	}
	for i, hook := range cfg.Hooks.AfterQuery {
		checkPattern("hooks.after_query", i, hook.Pattern)
	}
	if checks.fails == before {
		checks.passf("All regex patterns compile")
	}

	// Check 6: hook commands exist and have a budget
	if len(cfg.Hooks.BeforeQuery) > 0 || len(cfg.Hooks.AfterQuery) > 0 {
		before = checks.fails
		checkCommand := func(section string, i int, command string) {
			if _, err := exec.LookPath(command); err != nil {
				checks.failf("%s[%d] command found (%s): %v", section, i, command, err)
			}
		}
		for i, hook := range cfg.Hooks.BeforeQuery {
			checkCommand("hooks.before_query", i, hook.Command)
		}
		for i, hook := range cfg.Hooks.AfterQuery {
			checkCommand("hooks.after_query", i, hook.Command)
		}
		if checks.fails == before {
			checks.passf("All hook commands exist")
		}
		if cfg.Hooks.DefaultTimeoutSeconds <= 0 {
			checks.failf("hooks.default_timeout_seconds is > 0 (required when hooks are configured)")
		}
	}

	return &cfg, checks.fails == 0
}

// doctorCheckConnectivity builds a throwaway gateway and pings each
// configured database.
func doctorCheckConnectivity(out io.Writer, color bool, cfg *mysqlmcp.ServerConfig) {
	checks := &checkList{w: out, color: color}
	ctx := context.Background()

	g, err := mysqlmcp.New(ctx, cfg.Config, zerolog.Nop())
	if err != nil {
		checks.failf("Gateway construction: %v", err)
		return
	}
	defer g.Close()

	for _, name := range g.Databases() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := g.TestConnection(pingCtx, name)
		cancel()
		if err != nil {
			checks.failf("Database %q reachable: %v", name, err)
			continue
		}
		checks.passf("Database %q reachable", name)
	}
}

// printAgentSnippets emits ready-to-paste MCP client config for the
// common coding agents, matching the configured transport.
func printAgentSnippets(out io.Writer, color bool, cfg *mysqlmcp.ServerConfig) {
	styled := func(indent, style, text string) {
		if !color {
			fmt.Fprintf(out, "%s%s\n", indent, text)
			return
		}
		fmt.Fprintf(out, "%s\033[%sm%s\033[0m\n", indent, style, text)
	}
	styled("", "1;36", "Agent Connection Snippets")
	fmt.Fprintln(out)

	// stdio transport: every agent launches the binary itself.
	launch := `  {
    "mcpServers": {
      "mysql": {
        "command": "mysqlmcp",
        "args": ["serve"]
      }
    }
  }
`
	addCommand := "claude mcp add mysql -- mysqlmcp serve"
	claudeJSON, geminiJSON, cursorJSON := launch, launch, launch

	if cfg.Server.Transport == "http" {
		url := fmt.Sprintf("http://localhost:%d/mcp", cfg.Server.Port)
		addCommand = "claude mcp add --transport http mysql " + url
		claudeJSON = fmt.Sprintf(`  {
    "mcpServers": {
      "mysql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
		geminiJSON = fmt.Sprintf(`  {
    "mcpServers": {
      "mysql": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
		cursorJSON = fmt.Sprintf(`  {
    "mcpServers": {
      "mysql": {
        "url": "%s"
      }
    }
  }
`, url)
	}

	styled("  ", "1", "Claude Code")
	fmt.Fprintf(out, "  Run this command to add the server:\n\n")
	fmt.Fprintf(out, "    %s\n\n", addCommand)
	fmt.Fprintf(out, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprint(out, claudeJSON)
	fmt.Fprintln(out)

	styled("  ", "1", "Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprint(out, geminiJSON)
	fmt.Fprintln(out)

	styled("  ", "1", "Cursor (.cursor/mcp.json)")
	fmt.Fprint(out, cursorJSON)
}
