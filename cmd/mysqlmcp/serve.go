package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	mysqlmcp "github.com/cosmohaven/mysql-mcp"
	"github.com/cosmohaven/mysql-mcp/internal/meta"
	"github.com/cosmohaven/mysql-mcp/internal/metrics"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func runServe() error {
	ctx := context.Background()

	// A .env file is honored when present; real env wins.
	_ = godotenv.Load()

	// 1. Load ServerConfig (the file is optional; defaults apply)
	cfg, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	// 2. Resolve databases from the environment
	databases, err := databasesFromEnv(true)
	if err != nil {
		return err
	}
	cfg.Databases = databases

	// 3. Setup logger. The stdio transport owns stdout, so logs must
	// stay on stderr there.
	logging := cfg.Logging
	if transport(cfg) == "stdio" && logging.Output == "stdout" {
		logging.Output = "stderr"
	}
	logger := setupLogger(logging)

	// 4. Create the gateway
	m := metrics.New()
	g, err := mysqlmcp.New(ctx, cfg.Config, logger, mysqlmcp.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	defer g.Close()

	// 5. Probe each database. Failures are logged, not fatal: the
	// server starts anyway and queries fail with connection_failed
	// until the database comes back.
	for _, name := range g.Databases() {
		if err := g.TestConnection(ctx, name); err != nil {
			logger.Warn().Err(err).Str("database", name).Msg("database connection test failed")
		} else {
			logger.Info().Str("database", name).Msg("database connection test successful")
		}
	}

	// 6. MCP server. Log every initialize handshake so operators can
	// tell which agent sits on the other end.
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected")
	})

	mcpServer := server.NewMCPServer(meta.Name(), meta.Version,
		server.WithToolCapabilities(true),
		server.WithHooks(hooks),
	)

	mysqlmcp.RegisterMCPTools(mcpServer, g)

	// 7. Serve over stdio (default) or streamable HTTP
	if transport(cfg) == "stdio" {
		logger.Info().Msg("starting mysqlmcp server on stdio")
		return server.ServeStdio(mcpServer)
	}
	return serveHTTP(cfg, mcpServer, m, logger)
}

func transport(cfg *mysqlmcp.ServerConfig) string {
	if cfg.Server.Transport == "" {
		return "stdio"
	}
	return cfg.Server.Transport
}

func serveHTTP(cfg *mysqlmcp.ServerConfig, mcpServer *server.MCPServer, m *metrics.Metrics, logger zerolog.Logger) error {
	if cfg.Server.Port <= 0 {
		panic("mysqlmcp: server.port must be > 0 for the http transport")
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	mux := http.NewServeMux()

	// Liveness only: a healthy response means the process is up, not
	// that any MySQL backend is reachable.
	if cfg.Server.HealthCheckEnabled {
		if cfg.Server.HealthCheckPath == "" {
			panic("mysqlmcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(cfg.Server.HealthCheckPath, healthHandler)
	}

	if cfg.Server.MetricsEnabled {
		mux.Handle("/metrics", m.Handler())
	}

	hs := &http.Server{Addr: addr, Handler: mux}

	stream := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(hs),
	)

	// Start() skips handler registration when handed a custom
	// *http.Server, so the MCP endpoint must be mounted here.
	mux.Handle("/mcp", stream)

	logger.Info().Int("port", cfg.Server.Port).Msg("starting mysqlmcp server")
	return stream.Start(addr)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func loadServerConfig() (*mysqlmcp.ServerConfig, error) {
	path := os.Getenv("MYSQLMCP_CONFIG_PATH")
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath()
	}

	var cfg mysqlmcp.ServerConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// databasesFromEnv builds the database list from MYSQL_* (primary) and
// MYSQL2_* (secondary, present iff MYSQL2_HOST is set). A missing
// primary password prompts on an interactive terminal when interactive
// is true; otherwise it stays empty.
func databasesFromEnv(interactive bool) ([]mysqlmcp.DatabaseConfig, error) {
	primary, err := databaseFromEnv("MYSQL", "primary")
	if err != nil {
		return nil, err
	}
	if primary.Password == "" && interactive && isTTY(os.Stdin.Fd()) {
		primary.Password = readPassword(fmt.Sprintf("Password for %s@%s: ", primary.User, primary.Host))
	}
	databases := []mysqlmcp.DatabaseConfig{primary}

	if os.Getenv("MYSQL2_HOST") != "" {
		secondary, err := databaseFromEnv("MYSQL2", "secondary")
		if err != nil {
			return nil, err
		}
		databases = append(databases, secondary)
	}
	return databases, nil
}

func databaseFromEnv(prefix, fallbackName string) (mysqlmcp.DatabaseConfig, error) {
	cfg := mysqlmcp.DatabaseConfig{
		Host:     os.Getenv(prefix + "_HOST"),
		User:     os.Getenv(prefix + "_USER"),
		Password: os.Getenv(prefix + "_PASS"),
		Schema:   os.Getenv(prefix + "_DB"),
	}
	if portStr := os.Getenv(prefix + "_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s_PORT %q: %w", prefix, portStr, err)
		}
		cfg.Port = port
	}
	// Agents address databases by the schema name when one is set.
	cfg.Name = cfg.Schema
	if cfg.Name == "" {
		cfg.Name = fallbackName
	}
	return cfg, nil
}

func setupLogger(lc mysqlmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(lc.Level); lc.Level != "" && err == nil {
		level = parsed
	}

	dest := logDestination(lc.Output)
	if lc.Format == "text" {
		dest = zerolog.ConsoleWriter{Out: dest}
	}

	return zerolog.New(dest).Level(level).With().Timestamp().Logger()
}

// logDestination resolves the configured log output. Anything other
// than stdout/stderr is treated as a file path; an unopenable path
// falls back to stderr rather than blocking startup.
func logDestination(name string) io.Writer {
	switch name {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return os.Stderr
	}
	return f
}

func readPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	// ReadPassword suppresses the echo, so the newline is on us.
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(secret)
}
