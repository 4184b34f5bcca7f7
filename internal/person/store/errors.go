package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"personvault/internal/person/service"
	"personvault/pkg/platform/sentinel"
)

var (
	_ service.Store   = (*InMemoryStore)(nil)
	_ service.StoreTx = (*InMemoryStore)(nil)
	_ service.Store   = (*PostgresStore)(nil)
	_ service.StoreTx = (*PostgresTxRunner)(nil)
)

// SQLSTATE codes the person store reacts to.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateUniqueViolation      = "23505"
	sqlStateExclusionViolation   = "23P01"
	sqlStateTooManyConnections   = "53300"
	sqlStateAdminShutdown        = "57P01"
	sqlStateCrashShutdown        = "57P02"
	sqlStateCannotConnectNow     = "57P03"
)

// classify wraps a driver error with the sentinel the service understands,
// keeping the original error in the chain.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}

	switch code := sqlState(err); {
	case code == sqlStateSerializationFailure,
		code == sqlStateDeadlockDetected,
		code == sqlStateLockNotAvailable,
		code == sqlStateQueryCanceled,
		code == sqlStateUniqueViolation,
		code == sqlStateExclusionViolation:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrConflict, err)
	case code == sqlStateForeignKeyViolation:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrReferenceMissing, err)
	case strings.HasPrefix(code, "08"),
		code == sqlStateTooManyConnections,
		code == sqlStateAdminShutdown,
		code == sqlStateCrashShutdown,
		code == sqlStateCannotConnectNow:
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}

	// context.DeadlineExceeded satisfies net.Error; leave context errors to the caller.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sqlState extracts the SQLSTATE from either supported driver.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
