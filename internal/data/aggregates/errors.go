package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
)

// classified is a write-path failure whose code is already known. MapError
// turns it into a *domainagg.Error under the caller's op.
type classified struct {
	code domainagg.ErrorCode
	msg  string
}

func (e *classified) Error() string { return e.msg }

func classify(code domainagg.ErrorCode, msg string) error {
	return &classified{code: code, msg: strings.TrimSpace(msg)}
}

func ValidationError(msg string) error { return classify(domainagg.CodeValidation, msg) }
func InvariantError(msg string) error  { return classify(domainagg.CodeInvariantViolation, msg) }
func ConflictError(msg string) error   { return classify(domainagg.CodeConflict, msg) }

// RetryableError marks a failure that executeWrite may retry with a fresh
// transaction, such as a lost version race on the user row.
func RetryableError(msg string) error { return classify(domainagg.CodeRetryable, msg) }

var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// Driver messages for stores that do not return typed errors (sqlite in tests
// and local runs).
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeConflict},
	{"duplicate key", domainagg.CodeConflict},
	{"foreign key constraint failed", domainagg.CodePreconditionFailed},
	{"database is locked", domainagg.CodeRetryable},
	{"database table is locked", domainagg.CodeRetryable},
	{"sqlite_busy", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"could not serialize", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
}

// MapError assigns an aggregate code to err. Errors that already carry one
// pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	return domainagg.Wrap(codeFor(err), op, err)
}

func codeFor(err error) domainagg.ErrorCode {
	var c *classified
	if errors.As(err, &c) {
		return c.code
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.CodeNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domainagg.CodeRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
