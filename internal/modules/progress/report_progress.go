package progress

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
)

type ReportProgressInput struct {
	UserID           uuid.UUID
	CourseID         uuid.UUID
	CompletedLessons *int
	Progress         *int
	XPGained         *int
	HeartsLost       *int
	StreakMaintained *bool
	IdempotencyKey   string
}

type ReportProgressOutput struct {
	Progress        *types.CourseProgress `json:"progress"`
	Stats           UserStats             `json:"user_stats"`
	XPAwarded       int64                 `json:"xp_awarded"`
	LeveledUp       bool                  `json:"leveled_up"`
	NewLevel        int                   `json:"new_level"`
	CourseCompleted bool                  `json:"course_completed"`
	Mastery         int                   `json:"mastery,omitempty"`
	StreakReset     bool                  `json:"streak_reset"`
	Unlocked        []AchievementView     `json:"unlocked_achievements"`
	Replayed        bool                  `json:"replayed"`
}

func (u Usecases) ReportProgress(ctx context.Context, in ReportProgressInput) (out ReportProgressOutput, err error) {
	ctx, span := startSpan(ctx, "ReportProgress", in.UserID, attribute.String("course.id", in.CourseID.String()))
	defer func() { endSpan(span, err) }()

	const op = "progress.ReportProgress"
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeValidation, op, domainagg.ErrCourseIDMissing)
	}
	if in.XPGained != nil && *in.XPGained < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "xp_gained must not be negative", nil)
	}
	if in.HeartsLost != nil && *in.HeartsLost < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "hearts_lost must not be negative", nil)
	}
	if in.CompletedLessons != nil && *in.CompletedLessons < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "completed_lessons must not be negative", nil)
	}

	res, err := u.deps.Aggregate.RecordCourseProgress(ctx, domainagg.RecordCourseProgressInput{
		UserID:           in.UserID,
		CourseID:         in.CourseID,
		Progress:         in.Progress,
		CompletedLessons: in.CompletedLessons,
		XPGained:         in.XPGained,
		HeartsLost:       in.HeartsLost,
		StreakMaintained: in.StreakMaintained,
		IdempotencyKey:   strings.TrimSpace(in.IdempotencyKey),
		OccurredAt:       u.now(),
	})
	if err != nil {
		return out, err
	}

	out = ReportProgressOutput{
		Progress:        res.Progress,
		XPAwarded:       res.XPAwarded,
		LeveledUp:       res.Level.LeveledUp,
		NewLevel:        res.Level.NewLevel,
		CourseCompleted: res.CourseCompleted,
		Mastery:         res.Mastery,
		StreakReset:     res.StreakReset,
		Unlocked:        unlockedViews(res.Unlocked),
		Replayed:        res.Replayed,
	}
	if res.User != nil {
		out.NewLevel = res.User.Level
		stats, err := u.stats(ctx, res.User)
		if err != nil {
			return out, err
		}
		out.Stats = stats
	}

	if !res.Replayed {
		if res.StreakReset {
			u.deps.Metrics.IncStreakReset()
		}
		u.deps.Metrics.AddXPAwarded(string(types.XPSourceCourseProgress), res.XPAwarded-unlockedXP(res.Unlocked))
		u.afterCommit(ctx, res.User, types.TriggerCourse, res.Level, res.Unlocked)
	}
	span.SetAttributes(
		attribute.Int64("course.xp_awarded", res.XPAwarded),
		attribute.Bool("course.completed", res.CourseCompleted),
		attribute.Bool("progress.replayed", res.Replayed),
	)
	return out, nil
}
