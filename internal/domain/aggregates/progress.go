package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/questline-backend/internal/domain/gamification"
	"github.com/yungbote/questline-backend/internal/domain/learning"
	"github.com/yungbote/questline-backend/internal/domain/user"
)

var ProgressAggregateContract = Contract{
	Name:       "ProgressAggregate",
	Ops:        []string{OpCompleteQuiz, OpRecordCourseProgress, OpUnlockAchievement, OpReconcileXP},
	Idempotent: []string{OpCompleteQuiz, OpRecordCourseProgress},
	Tables:     []string{"user", "quiz_attempt", "course_progress", "xp_ledger_entry", "user_achievement_unlock"},
}

// ProgressAggregate owns user progression invariant writes.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type ProgressAggregate interface {
	Aggregate

	// CompleteQuiz records a scored attempt and applies its XP and unlocks.
	CompleteQuiz(ctx context.Context, in CompleteQuizInput) (CompleteQuizResult, error)

	// RecordCourseProgress upserts course progress and applies any attached progression flags.
	RecordCourseProgress(ctx context.Context, in RecordCourseProgressInput) (RecordCourseProgressResult, error)

	// UnlockAchievement grants a catalog achievement without evaluating its criteria.
	UnlockAchievement(ctx context.Context, in UnlockAchievementInput) (UnlockAchievementResult, error)

	// ReconcileXP recomputes the cached XP total from the ledger.
	ReconcileXP(ctx context.Context, in ReconcileXPInput) (ReconcileXPResult, error)
}

// LevelChange describes the user's XP and level before and after one event.
type LevelChange struct {
	PreviousXP    int64
	NewXP         int64
	PreviousLevel int
	NewLevel      int
	LeveledUp     bool
}

type UnlockedAchievement struct {
	Achievement *gamification.Achievement
	Unlock      *gamification.UserAchievementUnlock
}

type CompleteQuizInput struct {
	UserID           uuid.UUID
	QuizID           uuid.UUID
	AllowRetake      bool
	Answers          []int
	Correct          []bool
	Score            int
	MaxScore         int
	Percentage       float64
	XPEarned         int
	TimeSpentSeconds int
	IdempotencyKey   string
	CompletedAt      time.Time
}

type CompleteQuizResult struct {
	Attempt  *learning.QuizAttempt
	User     *user.User
	XPEarned int
	Level    LevelChange
	Unlocked []UnlockedAchievement
	// Retake is set when the quiz forbids retakes and XP was withheld.
	Retake bool
	// Replayed is set when the idempotency key matched an earlier attempt.
	Replayed bool
}

type RecordCourseProgressInput struct {
	UserID           uuid.UUID
	CourseID         uuid.UUID
	Progress         *int
	CompletedLessons *int
	XPGained         *int
	HeartsLost       *int
	StreakMaintained *bool
	IdempotencyKey   string
	OccurredAt       time.Time
}

// HasProgressionFlags reports whether the event carries any user-state deltas.
func (in RecordCourseProgressInput) HasProgressionFlags() bool {
	return in.XPGained != nil || in.HeartsLost != nil || in.StreakMaintained != nil
}

type RecordCourseProgressResult struct {
	Progress        *learning.CourseProgress
	User            *user.User
	XPAwarded       int64
	Level           LevelChange
	CourseCompleted bool
	// Mastery is the 0..100 quiz mastery the completion reward was tiered on.
	Mastery         int
	StreakReset     bool
	Unlocked        []UnlockedAchievement
	Replayed        bool
}

type UnlockAchievementInput struct {
	UserID        uuid.UUID
	AchievementID uuid.UUID
	UnlockedAt    time.Time
}

type UnlockAchievementResult struct {
	Unlock      *gamification.UserAchievementUnlock
	Achievement *gamification.Achievement
	User        *user.User
	Level       LevelChange
	// Chained holds achievements that became satisfied by the granted XP.
	Chained []UnlockedAchievement
}

type ReconcileXPInput struct {
	UserID uuid.UUID
}

type ReconcileXPResult struct {
	User     *user.User
	StoredXP int64
	LedgerXP int64
	Drift    int64
	Level    LevelChange
	Repaired bool
}
