// Package resilience classifies failures from the pipeline's downstreams,
// the store (pgx, sqlite) and the hosted catalog (HTTP), and retries the safe
// ones with backoff. Only lookups are wrapped in retries: batch ingredient
// creation relies on client refs for idempotency and is retried at the
// session level instead.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an error as safe to retry, with the HTTP status code
// that triggered it when one exists.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err, or anything in its chain, is worth
// retrying: an explicit TransientError, a retryable Postgres state, a locked
// sqlite database, or a network-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	return isTransientPostgres(err) || isLockedSQLite(err) || isTransientNetwork(err)
}

// isTransientPostgres matches the SQLSTATEs a retried transaction can clear:
// serialization and deadlock rollbacks (40001, 40P01), connection exceptions
// (class 08), and the come-back-shortly operator states 53300 (too many
// connections) and 57P03 (cannot connect now). Constraint and syntax states
// stay permanent; retrying an upsert that violated a constraint just violates
// it again.
func isTransientPostgres(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "53300", "57P03":
		return true
	}
	return strings.HasPrefix(pgErr.Code, "08")
}

// isLockedSQLite recognizes SQLITE_BUSY surfaced past the busy_timeout
// pragma. The driver flattens it into the message text, so text is all there
// is to match on.
func isLockedSQLite(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// isTransientNetwork covers the failure modes of the resty catalog calls:
// timeouts, refused or reset connections, and the transport errors resty
// flattens into message text.
func isTransientNetwork(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status from the catalog is
// worth retrying. 4xx statuses other than timeout and rate limiting are the
// caller's fault and stay permanent.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
