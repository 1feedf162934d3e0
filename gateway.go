package mysqlmcp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/cosmohaven/mysql-mcp/internal/errprompt"
	"github.com/cosmohaven/mysql-mcp/internal/fieldtype"
	"github.com/cosmohaven/mysql-mcp/internal/hooks"
	"github.com/cosmohaven/mysql-mcp/internal/limits"
	"github.com/cosmohaven/mysql-mcp/internal/metrics"
	"github.com/cosmohaven/mysql-mcp/internal/sanitize"
	"github.com/cosmohaven/mysql-mcp/internal/sqlcheck"
	"github.com/cosmohaven/mysql-mcp/internal/timeout"
)

// Gateway is the read-only query gateway. It owns one bounded
// connection pool per configured logical database and funnels every
// query through validation, limit enforcement, and a hard timeout.
// All exported methods are safe for concurrent use from multiple
// goroutines.
type Gateway struct {
	config       Config
	handles      []*dbHandle
	byName       map[string]*dbHandle
	sanitizer    *sanitize.Sanitizer
	errPrompts   *errprompt.Matcher
	hooks        *hooks.Runner
	timeoutRules *timeout.Manager
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	timeout      time.Duration
	closeOnce    sync.Once
}

// dbHandle owns the pool and concurrency gate of one logical database.
type dbHandle struct {
	name      string
	cfg       DatabaseConfig
	db        *sql.DB
	semaphore chan struct{}
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics attaches a metrics collector to the gateway. Without it,
// metric recording is a no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a new Gateway with one pool per configured logical
// database. Connectivity is not verified here; use TestConnection.
// Panics on invalid config. Returns error only for runtime failures
// (pool construction).
func New(ctx context.Context, config Config, logger zerolog.Logger, opts ...Option) (*Gateway, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if len(config.Databases) == 0 {
		panic("mysqlmcp: at least one database must be configured")
	}
	if len(config.Databases) > maxDatabases {
		panic(fmt.Sprintf("mysqlmcp: at most %d databases are supported, got %d", maxDatabases, len(config.Databases)))
	}
	seen := make(map[string]bool, len(config.Databases))
	for i := range config.Databases {
		db := &config.Databases[i]
		if db.Name == "" {
			panic(fmt.Sprintf("mysqlmcp: databases[%d].name must be non-empty", i))
		}
		if seen[db.Name] {
			panic(fmt.Sprintf("mysqlmcp: duplicate database name %q", db.Name))
		}
		seen[db.Name] = true
		if db.Host == "" {
			db.Host = defaultHost
		}
		if db.Port == 0 {
			db.Port = defaultPort
		}
		if db.Port < 0 || db.Port > 65535 {
			panic(fmt.Sprintf("mysqlmcp: database %q has invalid port %d", db.Name, db.Port))
		}
		if db.User == "" {
			db.User = defaultUser
		}
	}

	if config.Pool.MaxConns == 0 {
		config.Pool.MaxConns = defaultMaxConns
	}
	if config.Pool.MaxConns < 0 {
		panic("mysqlmcp: pool.max_conns must be > 0")
	}
	if config.Pool.MaxIdleConns == 0 {
		config.Pool.MaxIdleConns = config.Pool.MaxConns
	}
	if config.Pool.MaxIdleConns < 0 {
		panic("mysqlmcp: pool.max_idle_conns must be > 0")
	}
	var connLifetime time.Duration
	if config.Pool.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(config.Pool.ConnMaxLifetime)
		if err != nil {
			panic(fmt.Sprintf("mysqlmcp: invalid pool.conn_max_lifetime %q: %v", config.Pool.ConnMaxLifetime, err))
		}
		connLifetime = d
	}

	if config.Query.TimeoutSeconds == 0 {
		config.Query.TimeoutSeconds = defaultTimeoutSeconds
	}
	if config.Query.TimeoutSeconds < 0 {
		panic("mysqlmcp: query.timeout_seconds must be > 0")
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = defaultMaxSQLLength
	}
	if config.Query.MaxSQLLength < 0 {
		panic("mysqlmcp: query.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = defaultMaxResultLength
	}
	if config.Query.MaxResultLength < 0 {
		panic("mysqlmcp: query.max_result_length must be > 0")
	}

	// --- Initialize internal components ---

	san, err := sanitize.New(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	matcher, err := errprompt.NewMatcher(append(errprompt.Defaults(), mapErrorPromptRules(config.ErrorPrompts)...))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	runner, err := hooks.NewRunner(mapHooksConfig(config.Hooks), logger)
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	timeoutRules, err := timeout.NewManager(mapTimeoutRules(config.Query.TimeoutRules))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}

	g := &Gateway{
		config:       config,
		byName:       make(map[string]*dbHandle, len(config.Databases)),
		sanitizer:    san,
		errPrompts:   matcher,
		hooks:        runner,
		timeoutRules: timeoutRules,
		metrics:      o.metrics,
		logger:       logger,
		timeout:      time.Duration(config.Query.TimeoutSeconds) * time.Second,
	}

	// --- Open one pool per logical database ---

	for _, dbCfg := range config.Databases {
		mc := mysql.NewConfig()
		mc.User = dbCfg.User
		mc.Passwd = dbCfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port))
		mc.DBName = dbCfg.Schema
		mc.ParseTime = true
		mc.Timeout = 10 * time.Second // dial timeout; query time is governed by context

		pool, err := sql.Open("mysql", mc.FormatDSN())
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to open pool for database %q: %w", dbCfg.Name, err)
		}
		pool.SetMaxOpenConns(config.Pool.MaxConns)
		pool.SetMaxIdleConns(config.Pool.MaxIdleConns)
		if connLifetime > 0 {
			pool.SetConnMaxLifetime(connLifetime)
		}

		h := &dbHandle{
			name:      dbCfg.Name,
			cfg:       dbCfg,
			db:        pool,
			semaphore: make(chan struct{}, config.Pool.MaxConns),
		}
		g.handles = append(g.handles, h)
		g.byName[h.name] = h
	}

	return g, nil
}

// Close closes every pool. Safe during graceful shutdown; abrupt
// termination without Close is also acceptable.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		for _, h := range g.handles {
			if err := h.db.Close(); err != nil {
				g.logger.Warn().Err(err).Str("database", h.name).Msg("pool close failed")
			}
		}
	})
}

// Databases returns the configured logical database names, in
// configuration order. The first name is the default for tool calls
// that omit the database argument.
func (g *Gateway) Databases() []string {
	names := make([]string, len(g.handles))
	for i, h := range g.handles {
		names[i] = h.name
	}
	return names
}

// TestConnection verifies that the named logical database can produce a
// live connection. The returned error carries only non-secret config
// fields plus the sanitized driver error.
func (g *Gateway) TestConnection(ctx context.Context, database string) error {
	h, gerr := g.handle(database)
	if gerr != nil {
		return gerr
	}
	pingCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := h.db.PingContext(pingCtx); err != nil {
		return newError(g.sanitizer, KindConnectionFailed, h.name,
			"cannot connect to database %s at %s:%d (schema %q): %v", h.name, h.cfg.Host, h.cfg.Port, h.cfg.Schema, err)
	}
	return nil
}

// ExecuteQuery runs queryText against the named logical database and
// returns the collected rows. The query must pass the read-only check;
// the row count is bounded by the free-form limit class (default 1000,
// cap 5000), and the whole call races a fixed wall-clock timeout.
// Positional parameters bind to ? placeholders.
func (g *Gateway) ExecuteQuery(ctx context.Context, database, queryText string, params []interface{}, limit int) (*QueryOutcome, error) {
	return g.execute(ctx, "run_query", database, queryText, params, limits.Query, limit)
}

// execute is the pipeline shared by every query surface: guard hooks,
// validation, limit rewrite, then the run under semaphore and timeout,
// with result hooks on the way out.
func (g *Gateway) execute(ctx context.Context, tool, database, queryText string, params []interface{}, class limits.Class, limit int) (*QueryOutcome, error) {
	start := time.Now()

	h, gerr := g.handle(database)
	if gerr != nil {
		return nil, g.fail(database, tool, start, gerr)
	}

	if len(queryText) > g.config.Query.MaxSQLLength {
		return nil, g.fail(h.name, tool, start, newError(g.sanitizer, KindValidationRejected, h.name,
			"SQL query too long: %d bytes exceeds maximum of %d bytes", len(queryText), g.config.Query.MaxSQLLength))
	}

	// 1. Guard hooks may reject the query or hand back a rewrite.
	queryText, beforeHooks, err := g.hooks.RunBeforeQuery(ctx, queryText)
	if err != nil {
		return nil, g.fail(h.name, tool, start, g.mapHookError(h.name, true, err))
	}

	// 2. Validate. A rejected query never touches a connection.
	verdict := sqlcheck.Validate(queryText)
	if !verdict.Accepted {
		return nil, g.fail(h.name, tool, start, newError(g.sanitizer, KindValidationRejected, h.name, "%s", verdict.Reason))
	}

	// 3. Resolve the effective row limit.
	eff := class.Effective(limit)

	// 4. Ask for one row past the limit so truncation is detectable.
	sqlText := rewriteLimit(queryText, verdict.Kind, eff)

	// 5. Hard wall-clock budget over acquisition plus execution. A
	// timeout rule matching the SQL overrides the default.
	budget := g.timeout
	budgetRule := ""
	if d, pattern := g.timeoutRules.Resolve(queryText); d > 0 {
		budget = d
		budgetRule = pattern
	}
	queryCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	select {
	case h.semaphore <- struct{}{}:
	case <-queryCtx.Done():
		return nil, g.fail(h.name, tool, start, g.mapError(h.name, budget, queryCtx.Err()))
	}
	defer func() { <-h.semaphore }()

	rows, err := h.db.QueryContext(queryCtx, sqlText, params...)
	if err != nil {
		return nil, g.fail(h.name, tool, start, g.mapError(h.name, budget, err))
	}
	defer rows.Close()

	// 6. Collect at most eff rows, peeking one further for truncation.
	outcome, err := collectRows(rows, eff)
	if err != nil {
		return nil, g.fail(h.name, tool, start, g.mapError(h.name, budget, err))
	}

	// 7. Guard hooks may veto or filter the assembled result.
	var afterHooks []string
	if g.hooks.HasAfterQueryHooks() {
		payload, merr := json.Marshal(outcome)
		if merr != nil {
			return nil, g.fail(h.name, tool, start, newError(g.sanitizer, KindExecutionFailed, h.name, "%v", merr))
		}
		filtered, executed, herr := g.hooks.RunAfterQuery(ctx, string(payload))
		if herr != nil {
			return nil, g.fail(h.name, tool, start, g.mapHookError(h.name, false, herr))
		}
		afterHooks = executed
		replaced := &QueryOutcome{}
		dec := json.NewDecoder(strings.NewReader(filtered))
		dec.UseNumber()
		if derr := dec.Decode(replaced); derr != nil {
			return nil, g.fail(h.name, tool, start, newError(g.sanitizer, KindExecutionFailed, h.name,
				"after_query hook returned an invalid result payload: %v", derr))
		}
		outcome = replaced
	}

	g.metrics.RecordQuery(h.name, tool, "ok", time.Since(start))
	g.metrics.RecordRows(h.name, tool, outcome.RowCount)
	if outcome.Truncated {
		g.metrics.RecordTruncation(h.name, tool)
	}

	logEvent := g.logger.Info().
		Str("database", h.name).
		Str("tool", tool).
		Str("sql", truncateForLog(sqlText, 200)).
		Dur("duration", time.Since(start)).
		Int("row_count", outcome.RowCount).
		Bool("truncated", outcome.Truncated)
	if len(beforeHooks) > 0 {
		logEvent = logEvent.Strs("before_hooks", beforeHooks)
	}
	if len(afterHooks) > 0 {
		logEvent = logEvent.Strs("after_hooks", afterHooks)
	}
	if budgetRule != "" {
		logEvent = logEvent.Str("timeout_rule", budgetRule)
	}
	logEvent.Msg("query executed")

	return outcome, nil
}

// handle resolves a logical database name; empty means the first
// configured database.
func (g *Gateway) handle(database string) (*dbHandle, *GatewayError) {
	if database == "" {
		return g.handles[0], nil
	}
	if h, ok := g.byName[database]; ok {
		return h, nil
	}
	return nil, newError(g.sanitizer, KindConnectionFailed, database,
		"unknown database %q (configured: %s)", database, strings.Join(g.Databases(), ", "))
}

// fail records and returns a failed attempt.
func (g *Gateway) fail(database, tool string, start time.Time, gerr *GatewayError) error {
	g.metrics.RecordQuery(database, tool, "error", time.Since(start))
	event := g.logger.Error().
		Err(gerr).
		Str("database", database).
		Str("tool", tool).
		Str("kind", string(gerr.Kind))
	if patterns := g.errPrompts.MatchedPatterns(gerr.Message); len(patterns) > 0 {
		event = event.Strs("error_prompts", patterns)
	}
	event.Msg("query error")
	return gerr
}

// catalogQuery runs one of the gateway's own introspection statements
// under the standard semaphore and timeout, handing the rows to scan.
// The returned error is already taxonomy-mapped.
func (g *Gateway) catalogQuery(ctx context.Context, h *dbHandle, query string, args []interface{}, scan func(*sql.Rows) error) *GatewayError {
	queryCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	select {
	case h.semaphore <- struct{}{}:
	case <-queryCtx.Done():
		return g.mapError(h.name, g.timeout, queryCtx.Err())
	}
	defer func() { <-h.semaphore }()

	rows, err := h.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return g.mapError(h.name, g.timeout, err)
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return g.mapError(h.name, g.timeout, err)
	}
	if err := rows.Err(); err != nil {
		return g.mapError(h.name, g.timeout, err)
	}
	return nil
}

// mapError classifies a failure into the gateway taxonomy. Driver
// errors are detected by server error number, not message text, where a
// number exists. budget is the wall-clock limit that applied to the
// failed statement, used only to phrase timeout messages.
func (g *Gateway) mapError(database string, budget time.Duration, err error) *GatewayError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(g.sanitizer, KindTimeout, database, "query timed out after %s", budget)
	case errors.Is(err, context.Canceled):
		return newError(g.sanitizer, KindExecutionFailed, database, "query canceled before completion")
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1146: // ER_NO_SUCH_TABLE
			return newError(g.sanitizer, KindExecutionFailed, database,
				"table %s does not exist in database %s", quotedName(myErr.Message), database)
		case 1044, 1045: // ER_DBACCESS_DENIED_ERROR, ER_ACCESS_DENIED_ERROR
			return newError(g.sanitizer, KindConnectionFailed, database,
				"access denied to database %s: %v", database, myErr)
		}
		return newError(g.sanitizer, KindExecutionFailed, database, "%v", myErr)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return newError(g.sanitizer, KindConnectionFailed, database, "lost connection to database %s: %v", database, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return newError(g.sanitizer, KindConnectionFailed, database, "cannot reach database %s: %v", database, err)
	}

	return newError(g.sanitizer, KindExecutionFailed, database, "%v", err)
}

// mapHookError classifies a hook failure. An operator rejection of the
// query is a validation rejection; rejection of a finished result, and
// any hook infrastructure failure, count as execution failures.
func (g *Gateway) mapHookError(database string, beforeQuery bool, err error) *GatewayError {
	var rej *hooks.Rejection
	if errors.As(err, &rej) {
		if beforeQuery {
			return newError(g.sanitizer, KindValidationRejected, database, "%s", rej.Message)
		}
		return newError(g.sanitizer, KindExecutionFailed, database, "%s", rej.Message)
	}
	return newError(g.sanitizer, KindExecutionFailed, database, "%v", err)
}

// toolError renders err for the AI caller: the sanitized message plus
// any guidance rules that match it.
func (g *Gateway) toolError(err error) string {
	msg := g.sanitizer.Sanitize(err.Error())
	if prompt := g.errPrompts.Match(msg); prompt != "" {
		msg = msg + "\n\n" + prompt
	}
	return msg
}

var limitClauseRe = regexp.MustCompile(`(?i)\bLIMIT\b`)

// rewriteLimit appends a LIMIT clause sized one past the effective
// limit so truncation is detectable by row count alone. Statements that
// already carry a LIMIT keep it; SHOW, DESCRIBE, and EXPLAIN are left
// untouched. The clause goes on its own line in case the statement ends
// in a line comment.
func rewriteLimit(queryText, kind string, effectiveLimit int) string {
	if kind != sqlcheck.KindSelect {
		return queryText
	}
	if limitClauseRe.MatchString(queryText) {
		return queryText
	}
	trimmed := strings.TrimRight(queryText, "; \t\r\n")
	return trimmed + "\nLIMIT " + strconv.Itoa(effectiveLimit+1)
}

var quotedNameRe = regexp.MustCompile(`'([^']+)'`)

// quotedName pulls the object name out of a server error message like
// "Table 'shop.orders' doesn't exist", dropping the schema qualifier.
func quotedName(msg string) string {
	m := quotedNameRe.FindStringSubmatch(msg)
	if m == nil {
		return "unknown"
	}
	name := m[1]
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// collectRows reads at most max rows from rows, peeking one further to
// detect truncation, and converts driver values into JSON-friendly Go
// values.
func collectRows(rows *sql.Rows, max int) (*QueryOutcome, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	fields := make([]Field, len(cols))
	semantics := make([]string, len(cols))
	for i, ct := range colTypes {
		semantics[i] = fieldtype.Semantic(ct.DatabaseTypeName())
		fields[i] = Field{Name: cols[i], Type: semantics[i]}
	}

	resultRows := make([]map[string]interface{}, 0)
	truncated := false
	values := make([]interface{}, len(cols))
	scanArgs := make([]interface{}, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if len(resultRows) == max {
			truncated = true
			break
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = convertValue(values[i], semantics[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryOutcome{
		Rows:      resultRows,
		Fields:    fields,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// convertValue converts a driver-returned value to a JSON-friendly Go
// type. Byte payloads are typed by the column's semantic family:
// text-like families decode to string (keeping decimals exact),
// binary families to base64.
func convertValue(v interface{}, semantic string) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case float32:
		if math.IsNaN(float64(val)) {
			return "NaN"
		}
		if math.IsInf(float64(val), 1) {
			return "Infinity"
		}
		if math.IsInf(float64(val), -1) {
			return "-Infinity"
		}
		return val
	case float64:
		if math.IsNaN(val) {
			return "NaN"
		}
		if math.IsInf(val, 1) {
			return "Infinity"
		}
		if math.IsInf(val, -1) {
			return "-Infinity"
		}
		return val
	case []byte:
		switch semantic {
		case fieldtype.Binary, fieldtype.Bit, fieldtype.Geometry:
			return base64.StdEncoding.EncodeToString(val)
		default:
			return string(val)
		}
	default:
		return val
	}
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}

// mapSanitizationRules converts config SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}

// mapErrorPromptRules converts config ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}

// mapTimeoutRules converts config QueryTimeoutRules to internal timeout.Rules.
func mapTimeoutRules(rules []QueryTimeoutRule) []timeout.Rule {
	result := make([]timeout.Rule, len(rules))
	for i, r := range rules {
		result[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	return result
}

// mapHooksConfig converts the config hook section to the internal
// hooks.Config, turning second counts into durations.
func mapHooksConfig(h HooksConfig) hooks.Config {
	return hooks.Config{
		DefaultTimeout: time.Duration(h.DefaultTimeoutSeconds) * time.Second,
		BeforeQuery:    mapHookCommands(h.BeforeQuery),
		AfterQuery:     mapHookCommands(h.AfterQuery),
	}
}

func mapHookCommands(cmds []HookCommand) []hooks.HookEntry {
	result := make([]hooks.HookEntry, len(cmds))
	for i, c := range cmds {
		result[i] = hooks.HookEntry{
			Pattern: c.Pattern,
			Command: c.Command,
			Args:    c.Args,
			Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
		}
	}
	return result
}
