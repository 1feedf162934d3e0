package mysqlmcp

import (
	"errors"
	"fmt"

	"github.com/cosmohaven/mysql-mcp/internal/sanitize"
)

// ErrorKind tags a GatewayError with its failure class.
type ErrorKind string

const (
	// KindValidationRejected means the query text failed the read-only
	// check. The database was never reached.
	KindValidationRejected ErrorKind = "validation_rejected"

	// KindConnectionFailed means the pool could not produce a live
	// connection for the requested logical database.
	KindConnectionFailed ErrorKind = "connection_failed"

	// KindTimeout means the query exceeded the wall-clock budget.
	KindTimeout ErrorKind = "timeout"

	// KindExecutionFailed means the database rejected or failed the
	// query for any other reason.
	KindExecutionFailed ErrorKind = "execution_failed"
)

// GatewayError is the only error type the gateway surfaces. Message has
// always passed through the credential sanitizer; raw driver errors
// never cross this boundary unredacted.
type GatewayError struct {
	Kind     ErrorKind `json:"kind"`
	Database string    `json:"database,omitempty"`
	Message  string    `json:"message"`
}

func (e *GatewayError) Error() string {
	return e.Message
}

// AsGatewayError unwraps err to a *GatewayError if one is in the chain.
func AsGatewayError(err error) (*GatewayError, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

// newError builds a GatewayError, scrubbing credential shapes from the
// formatted message before it can reach any caller-visible surface.
func newError(s *sanitize.Sanitizer, kind ErrorKind, database, format string, args ...interface{}) *GatewayError {
	msg := fmt.Sprintf(format, args...)
	if s != nil {
		msg = s.Sanitize(msg)
	}
	return &GatewayError{Kind: kind, Database: database, Message: msg}
}
