package progress

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

func (u Usecases) GetUserStats(ctx context.Context, userID uuid.UUID) (out UserStats, err error) {
	ctx, span := startSpan(ctx, "GetUserStats", userID)
	defer func() { endSpan(span, err) }()

	const op = "progress.GetUserStats"
	if userID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	usr, err := u.deps.Users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if usr == nil {
		return out, domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrUserNotFound)
	}
	return u.stats(ctx, usr)
}

func (u Usecases) stats(ctx context.Context, usr *types.User) (UserStats, error) {
	const op = "progress.stats"
	dbc := dbctx.Context{Ctx: ctx}
	into, toNext := u.deps.Config.LevelEngine(types.TriggerQuiz).Progress(usr.XP)
	out := UserStats{
		UserID:         usr.ID,
		DisplayName:    usr.DisplayName,
		XP:             usr.XP,
		Level:          usr.Level,
		XPIntoLevel:    into,
		XPForNextLevel: toNext,
		Streak:         usr.StreakLength,
		Hearts:         usr.Hearts,
		MaxHearts:      u.deps.Config.MaxHearts,
		LastActiveAt:   usr.LastActiveAt,
	}
	var err error
	if out.QuizzesCompleted, err = u.deps.Attempts.CountDistinctQuizzes(dbc, usr.ID); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if out.CoursesCompleted, err = u.deps.Progress.CountCompleted(dbc, usr.ID); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if out.AchievementsUnlocked, err = u.deps.Unlocks.CountByUser(dbc, usr.ID); err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return out, nil
}

// ListAchievements returns the active catalog annotated with the caller's
// unlocks. Unlocked achievements that were later retired are still listed.
func (u Usecases) ListAchievements(ctx context.Context, userID uuid.UUID) (out []AchievementView, err error) {
	ctx, span := startSpan(ctx, "ListAchievements", userID)
	defer func() { endSpan(span, err) }()

	const op = "progress.ListAchievements"
	dbc := dbctx.Context{Ctx: ctx}
	all, err := u.deps.Achievements.ListAll(dbc)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	byAchievement := map[uuid.UUID]*types.UserAchievementUnlock{}
	if userID != uuid.Nil {
		unlocks, err := u.deps.Unlocks.ListByUser(dbc, userID)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		for _, un := range unlocks {
			byAchievement[un.AchievementID] = un
		}
	}
	out = make([]AchievementView, 0, len(all))
	for _, a := range all {
		un := byAchievement[a.ID]
		if !a.Active && un == nil {
			continue
		}
		out = append(out, achievementView(a, un))
	}
	return out, nil
}

// ListAttempts returns the caller's attempt history, newest first.
func (u Usecases) ListAttempts(ctx context.Context, userID uuid.UUID, quizID *uuid.UUID, limit int) (out []*types.QuizAttempt, err error) {
	ctx, span := startSpan(ctx, "ListAttempts", userID)
	defer func() { endSpan(span, err) }()

	if userID == uuid.Nil {
		return nil, domainagg.Sentinel(domainagg.CodeUnauthenticated, "progress.ListAttempts", domainagg.ErrAuthenticationRequired)
	}
	out, err = u.deps.Attempts.ListByUser(dbctx.Context{Ctx: ctx}, userID, quizID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "progress.ListAttempts", err)
	}
	return out, nil
}

// Leaderboard ranks users by total XP. The redis sorted set is used when it
// has entries; otherwise the user table is ordered directly.
func (u Usecases) Leaderboard(ctx context.Context, limit int) (out []LeaderboardRow, err error) {
	ctx, span := startSpan(ctx, "Leaderboard", uuid.Nil)
	defer func() { endSpan(span, err) }()

	const op = "progress.Leaderboard"
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	dbc := dbctx.Context{Ctx: ctx}

	if u.deps.Leaderboard.Enabled() {
		entries, err := u.deps.Leaderboard.Top(ctx, limit)
		if err != nil {
			u.deps.Log.Warn("leaderboard read failed; falling back to db", "error", err)
		} else if len(entries) > 0 {
			ids := make([]uuid.UUID, len(entries))
			for i, e := range entries {
				ids[i] = e.UserID
			}
			users, err := u.deps.Users.GetByIDs(dbc, ids)
			if err != nil {
				return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
			}
			byID := make(map[uuid.UUID]*types.User, len(users))
			for _, usr := range users {
				byID[usr.ID] = usr
			}
			out = make([]LeaderboardRow, 0, len(entries))
			for _, e := range entries {
				usr := byID[e.UserID]
				if usr == nil {
					continue
				}
				out = append(out, LeaderboardRow{
					Rank:        len(out) + 1,
					UserID:      usr.ID,
					DisplayName: usr.DisplayName,
					XP:          e.XP,
					Level:       usr.Level,
				})
			}
			return out, nil
		}
	}

	users, err := u.deps.Users.ListTopByXP(dbc, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out = make([]LeaderboardRow, 0, len(users))
	for i, usr := range users {
		out = append(out, LeaderboardRow{
			Rank:        i + 1,
			UserID:      usr.ID,
			DisplayName: usr.DisplayName,
			XP:          usr.XP,
			Level:       usr.Level,
		})
	}
	return out, nil
}
