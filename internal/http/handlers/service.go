package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/http/response"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/platform/apierr"
	"github.com/yungbote/questline-backend/internal/platform/ctxutil"
)

// ProgressService is the slice of the progress use cases the handlers call.
type ProgressService interface {
	SubmitQuizAttempt(ctx context.Context, in progress.SubmitQuizAttemptInput) (progress.SubmitQuizAttemptOutput, error)
	ListAttempts(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID, limit int) ([]*types.QuizAttempt, error)
	ReportProgress(ctx context.Context, in progress.ReportProgressInput) (progress.ReportProgressOutput, error)
	UnlockAchievement(ctx context.Context, in progress.UnlockAchievementInput) (progress.UnlockAchievementOutput, error)
	ListAchievements(ctx context.Context, userID uuid.UUID) ([]progress.AchievementView, error)
	GetUserStats(ctx context.Context, userID uuid.UUID) (progress.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]progress.LeaderboardRow, error)
	ReconcileUser(ctx context.Context, userID uuid.UUID) (progress.ReconcileOutput, error)
	ProvisionUser(ctx context.Context, in progress.ProvisionUserInput) (progress.ProvisionUserOutput, error)
	ListXPHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.XPLedgerEntry, error)
	ListCourseProgress(ctx context.Context, userID uuid.UUID) ([]*types.CourseProgress, error)
}

const headerIdempotencyKey = "Idempotency-Key"

// requireUser returns the authenticated caller or writes a 401.
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.Fail(c, nil, apierr.Unauthorized())
		return uuid.Nil, false
	}
	return rd.UserID, true
}

// idempotencyKey prefers the header over a body-supplied key.
func idempotencyKey(c *gin.Context, fromBody string) string {
	if k := strings.TrimSpace(c.GetHeader(headerIdempotencyKey)); k != "" {
		return k
	}
	return strings.TrimSpace(fromBody)
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.Fail(c, nil, apierr.Invalid("limit", errors.New("limit must be a non-negative integer")))
		return 0, false
	}
	return n, true
}
