package progress

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
)

type UnlockAchievementInput struct {
	UserID        uuid.UUID
	AchievementID uuid.UUID
}

type UnlockAchievementOutput struct {
	Achievement AchievementView   `json:"achievement"`
	XPAwarded   int               `json:"xp_awarded"`
	LeveledUp   bool              `json:"leveled_up"`
	NewLevel    int               `json:"new_level"`
	TotalXP     int64             `json:"total_xp"`
	Chained     []AchievementView `json:"chained_achievements"`
}

// UnlockAchievement grants an achievement directly, bypassing its criteria.
// A second unlock fails with ErrAlreadyUnlocked and grants nothing.
func (u Usecases) UnlockAchievement(ctx context.Context, in UnlockAchievementInput) (out UnlockAchievementOutput, err error) {
	ctx, span := startSpan(ctx, "UnlockAchievement", in.UserID, attribute.String("achievement.id", in.AchievementID.String()))
	defer func() { endSpan(span, err) }()

	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, "progress.UnlockAchievement", domainagg.ErrAuthenticationRequired)
	}
	res, err := u.deps.Aggregate.UnlockAchievement(ctx, domainagg.UnlockAchievementInput{
		UserID:        in.UserID,
		AchievementID: in.AchievementID,
		UnlockedAt:    u.now(),
	})
	if err != nil {
		return out, err
	}

	out = UnlockAchievementOutput{
		Achievement: achievementView(res.Achievement, res.Unlock),
		LeveledUp:   res.Level.LeveledUp,
		NewLevel:    res.Level.NewLevel,
		TotalXP:     res.Level.NewXP,
		Chained:     unlockedViews(res.Chained),
	}
	if res.Unlock != nil {
		out.XPAwarded = res.Unlock.XPAwarded
	}
	if res.User != nil {
		out.NewLevel = res.User.Level
		out.TotalXP = res.User.XP
	}

	all := append([]domainagg.UnlockedAchievement{{Achievement: res.Achievement, Unlock: res.Unlock}}, res.Chained...)
	u.afterCommit(ctx, res.User, types.TriggerManual, res.Level, all)
	return out, nil
}
