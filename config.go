package mysqlmcp

// Config is everything New needs to assemble a Gateway. Library
// callers fill it directly; the CLI wraps it in ServerConfig.
type Config struct {
	Databases    []DatabaseConfig   `json:"databases"`
	Pool         PoolConfig         `json:"pool"`
	Query        QueryConfig        `json:"query"`
	Hooks        HooksConfig        `json:"hooks"`
	ErrorPrompts []ErrorPromptRule  `json:"error_prompts"`
	Sanitization []SanitizationRule `json:"sanitization"`
}

// ServerConfig is the CLI's on-disk config: Config plus the transport
// and logging settings library callers never see.
type ServerConfig struct {
	Config
	Server  ServerSettings `json:"server"`
	Logging LoggingConfig  `json:"logging"`
}

// DatabaseConfig holds the connection parameters of one logical
// database. Never serialized to tool output.
type DatabaseConfig struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Schema   string `json:"schema"`
}

// PoolConfig holds connection pool settings, applied per logical
// database.
type PoolConfig struct {
	MaxConns        int    `json:"max_conns"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	ConnMaxLifetime string `json:"conn_max_lifetime"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	TimeoutSeconds  int                `json:"timeout_seconds"`
	MaxSQLLength    int                `json:"max_sql_length"`
	MaxResultLength int                `json:"max_result_length"`
	TimeoutRules    []QueryTimeoutRule `json:"timeout_rules"`
}

// QueryTimeoutRule overrides the query timeout for SQL matching a
// regex pattern. The first matching rule wins.
type QueryTimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// HooksConfig holds the command-based guard hooks run around query
// execution.
type HooksConfig struct {
	DefaultTimeoutSeconds int           `json:"default_timeout_seconds"`
	BeforeQuery           []HookCommand `json:"before_query"`
	AfterQuery            []HookCommand `json:"after_query"`
}

// HookCommand is one external guard command, run when Pattern matches
// the hook's input.
type HookCommand struct {
	Pattern        string   `json:"pattern"`
	Command        string   `json:"command"`
	Args           []string `json:"args"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// ServerSettings holds MCP transport settings for CLI mode.
type ServerSettings struct {
	Transport          string `json:"transport"` // stdio, http
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
	MetricsEnabled     bool   `json:"metrics_enabled"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, or error
	Format string `json:"format"` // json or text
	Output string `json:"output"` // stderr, stdout, or file path
}

// ErrorPromptRule appends Message to query errors matching Pattern,
// steering the calling agent toward a fix.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// SanitizationRule defines a regex-based redaction rule applied on top
// of the built-in credential patterns.
type SanitizationRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Description string `json:"description"`
}

// Defaults applied by New() for zero values.
const (
	defaultHost            = "127.0.0.1"
	defaultPort            = 3306
	defaultUser            = "root"
	defaultMaxConns        = 5
	defaultTimeoutSeconds  = 30
	defaultMaxSQLLength    = 100000
	defaultMaxResultLength = 100000
)

// maxDatabases is the number of logical databases the gateway manages
// concurrently (a primary and an optional secondary).
const maxDatabases = 2
