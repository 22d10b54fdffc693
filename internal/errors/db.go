package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database driver errors to AppError instances so sink
// failures read the same regardless of where they came from:
//   - context timeouts/cancellations → Timeout/Canceled
//   - pgx.ErrNoRows → NotFound
//   - unique violations → Conflict
//   - not-null/check/data violations → Validation
//   - connection failures and admin shutdown → Unavailable
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "database operation timed out")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "database operation was canceled")
	case errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "row not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(err, ErrCodeUnavailable, "database unreachable")
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return Wrap(err, ErrCodeUnavailable, "database unreachable")
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: constraintMessage("duplicate value", pgErr),
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.NotNullViolation,
		pgErr.Code == pgerrcode.CheckViolation,
		pgerrcode.IsDataException(pgErr.Code):
		return &AppError{
			Code:    ErrCodeValidation,
			Message: constraintMessage("rejected value", pgErr),
			Field:   pgErr.ColumnName,
			Cause:   pgErr,
		}
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return &AppError{
			Code:    ErrCodeUnavailable,
			Message: "database unavailable",
			Cause:   pgErr,
		}
	case pgErr.Code == pgerrcode.UndefinedTable:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "database schema missing, were migrations applied?",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: fmt.Sprintf("database error %s", pgErr.Code),
			Cause:   pgErr,
		}
	}
}

func constraintMessage(prefix string, pgErr *pgconn.PgError) string {
	switch {
	case pgErr.ColumnName != "" && pgErr.TableName != "":
		return fmt.Sprintf("%s for %s.%s", prefix, pgErr.TableName, pgErr.ColumnName)
	case pgErr.ConstraintName != "":
		return fmt.Sprintf("%s (constraint %s)", prefix, pgErr.ConstraintName)
	case pgErr.TableName != "":
		return fmt.Sprintf("%s in %s", prefix, pgErr.TableName)
	default:
		return prefix
	}
}
