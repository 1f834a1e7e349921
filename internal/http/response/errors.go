package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

var aggregateStatus = map[domainagg.ErrorCode]int{
	domainagg.CodeValidation:         http.StatusBadRequest,
	domainagg.CodeUnauthenticated:    http.StatusUnauthorized,
	domainagg.CodeNotFound:           http.StatusNotFound,
	domainagg.CodeConflict:           http.StatusConflict,
	domainagg.CodeInvariantViolation: http.StatusConflict,
	domainagg.CodePreconditionFailed: http.StatusPreconditionFailed,
	domainagg.CodeRetryable:          http.StatusServiceUnavailable,
	domainagg.CodeInternal:           http.StatusInternalServerError,
}

// Named errors get a stable machine-readable code clients can switch on.
var sentinelCodes = []struct {
	err  error
	code string
}{
	{domainagg.ErrAuthenticationRequired, "authentication_required"},
	{domainagg.ErrUserNotFound, "user_not_found"},
	{domainagg.ErrQuizNotFound, "quiz_not_found"},
	{domainagg.ErrCourseIDMissing, "course_id_missing"},
	{domainagg.ErrCourseNotFound, "course_not_found"},
	{domainagg.ErrAchievementNotFound, "achievement_not_found"},
	{domainagg.ErrAlreadyUnlocked, "already_unlocked"},
	{domainagg.ErrEmailTaken, "email_taken"},
}

// StatusFor maps an error to its HTTP status and response code.
func StatusFor(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return status, ae.Code
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			code := domainagg.CodeOf(err)
			status, ok := aggregateStatus[code]
			if !ok {
				status = http.StatusInternalServerError
			}
			return status, s.code
		}
	}
	code := domainagg.CodeOf(err)
	if status, ok := aggregateStatus[code]; ok {
		return status, string(code)
	}
	return http.StatusInternalServerError, string(domainagg.CodeInternal)
}

// Fail writes err using StatusFor. Server-side causes are logged and the
// client gets a generic message.
func Fail(c *gin.Context, log *logger.Logger, err error) {
	status, code := StatusFor(err)
	if status < http.StatusInternalServerError {
		RespondError(c, status, code, err.Error())
		return
	}
	if log != nil {
		log.Error("request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	msg := "internal error"
	if status == http.StatusServiceUnavailable {
		msg = "temporarily unavailable, retry"
	}
	RespondError(c, status, code, msg)
}
