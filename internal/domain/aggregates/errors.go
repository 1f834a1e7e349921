package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode classifies a failed progress write. Transports map it to a status.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeUnauthenticated    ErrorCode = "unauthenticated"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Named failures. They travel as the Cause of an *Error, so callers can use
// errors.Is and IsCode on the same value.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrUserNotFound           = errors.New("user not found")
	ErrQuizNotFound           = errors.New("quiz not found")
	ErrCourseIDMissing        = errors.New("course id missing")
	ErrCourseNotFound         = errors.New("course not found")
	ErrAchievementNotFound    = errors.New("achievement not found")
	ErrAlreadyUnlocked        = errors.New("achievement already unlocked")
	ErrEmailTaken             = errors.New("email belongs to another user")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "op: message (code)", dropping whichever parts are empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		if e.Message != "" {
			b.WriteString(": ")
		}
	}
	b.WriteString(e.Message)
	if b.Len() == 0 {
		return string(e.Code)
	}
	b.WriteString(" (")
	b.WriteString(string(e.Code))
	b.WriteString(")")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap keeps err as the cause and reuses its text. A nil err stays nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func Sentinel(code ErrorCode, op string, sentinel error) error {
	return NewError(code, op, sentinel.Error(), sentinel)
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
