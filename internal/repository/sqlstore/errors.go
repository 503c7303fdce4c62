// Package sqlstore implements the domain repositories over database/sql.
// Queries use $n placeholders in first-appearance order so the same text
// runs on pgx, lib/pq and sqlite3.
package sqlstore

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
	"github.com/mattn/go-sqlite3"

	"internportal/internal/common"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked || liteErr.Code == sqlite3.ErrCantOpen
	}
	return false
}

// storeError keeps the driver error for logs only; callers render the code.
func storeError(message string, err error) error {
	if isUnavailable(err) {
		return common.NewError(common.CodeStoreUnavailable, message, err)
	}
	return common.NewError(common.CodeInternal, message, err)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// where accumulates conditions and their arguments, numbering placeholders
// in the order they are added.
type where struct {
	conds []string
	args  []any
}

func (w *where) arg(value any) string {
	w.args = append(w.args, value)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, value := range values {
		placeholders[i] = w.arg(value)
	}
	w.conds = append(w.conds, fmt.Sprintf(format, placeholders...))
}

func (w *where) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, value := range values {
		placeholders[i] = w.arg(value)
	}
	w.conds = append(w.conds, column+" IN ("+strings.Join(placeholders, ", ")+")")
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *where) page(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	return " LIMIT " + w.arg(clampLimit(limit)) + " OFFSET " + w.arg(offset)
}

type scanner interface {
	Scan(dest ...any) error
}
