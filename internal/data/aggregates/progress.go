package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/questline-backend/internal/data/repos"
	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

// maxEvaluationPasses bounds chained unlocks: an unlock that grants XP can
// satisfy an xp/level achievement, which is picked up on the next pass.
const maxEvaluationPasses = 4

const userTable = "user"

type ProgressAggregateDeps struct {
	BaseDeps

	Config gamification.Config

	Users        repos.UserRepo
	Courses      repos.CourseRepo
	Attempts     repos.QuizAttemptRepo
	Progress     repos.CourseProgressRepo
	Achievements repos.AchievementRepo
	Unlocks      repos.UnlockRepo
	Ledger       repos.XPLedgerRepo
}

type progressAggregate struct {
	deps      ProgressAggregateDeps
	evaluator gamification.Evaluator
}

func NewProgressAggregate(deps ProgressAggregateDeps) domainagg.ProgressAggregate {
	deps.BaseDeps = deps.BaseDeps.withDefaults()
	deps.Config = deps.Config.WithDefaults()
	deps.Log = deps.Log.With("aggregate", "ProgressAggregate")
	return &progressAggregate{deps: deps}
}

func (a *progressAggregate) Contract() domainagg.Contract {
	return domainagg.ProgressAggregateContract
}

func (a *progressAggregate) CompleteQuiz(ctx context.Context, in domainagg.CompleteQuizInput) (domainagg.CompleteQuizResult, error) {
	const op = domainagg.OpCompleteQuiz
	var out domainagg.CompleteQuizResult
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	if in.QuizID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrQuizNotFound)
	}
	now := eventTime(in.CompletedAt)
	key := strings.TrimSpace(in.IdempotencyKey)

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		u, err := a.lockUser(dbc, op, in.UserID)
		if err != nil {
			return err
		}

		if key != "" {
			prior, err := a.deps.Attempts.GetByIdempotencyKey(dbc, u.ID, key)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.QuizID != in.QuizID {
					return ConflictError("idempotency key already used for a different quiz")
				}
				out = domainagg.CompleteQuizResult{
					Attempt:  prior,
					User:     u,
					XPEarned: prior.XPEarned,
					Level:    unchangedLevel(u),
					Replayed: true,
				}
				return nil
			}
		}

		res := domainagg.CompleteQuizResult{XPEarned: in.XPEarned}
		if res.XPEarned < 0 {
			res.XPEarned = 0
		}
		if !in.AllowRetake {
			n, err := a.deps.Attempts.CountCompleted(dbc, u.ID, in.QuizID)
			if err != nil {
				return err
			}
			if n > 0 {
				res.XPEarned = 0
				res.Retake = true
			}
		}

		attempt := &types.QuizAttempt{
			UserID:           u.ID,
			QuizID:           in.QuizID,
			Answers:          in.Answers,
			Correct:          in.Correct,
			Score:            in.Score,
			MaxScore:         in.MaxScore,
			Percentage:       in.Percentage,
			XPEarned:         res.XPEarned,
			TimeSpentSeconds: in.TimeSpentSeconds,
			Completed:        true,
			CompletedAt:      now,
		}
		if key != "" {
			attempt.IdempotencyKey = &key
		}
		if _, err := a.deps.Attempts.Create(dbc, attempt); err != nil {
			return err
		}

		var delta int64
		if res.XPEarned > 0 {
			granted, err := a.grant(dbc, u.ID, types.XPSourceQuizAttempt, attempt.ID.String(), int64(res.XPEarned))
			if err != nil {
				return err
			}
			delta += granted
		}

		a.recordActivity(u, now, false)

		pct := in.Percentage
		unlocked, gained, err := a.evaluate(dbc, u, delta, types.TriggerQuiz, &pct, now)
		if err != nil {
			return err
		}
		level, err := a.persistUser(dbc, u, types.TriggerQuiz, delta+gained, now)
		if err != nil {
			return err
		}

		res.Attempt = attempt
		res.User = u
		res.Level = level
		res.Unlocked = unlocked
		out = res
		return nil
	})
	if err != nil {
		return domainagg.CompleteQuizResult{}, err
	}
	if out.Replayed {
		a.deps.Hooks.IncReplay(op)
	}
	return out, nil
}

func (a *progressAggregate) RecordCourseProgress(ctx context.Context, in domainagg.RecordCourseProgressInput) (domainagg.RecordCourseProgressResult, error) {
	const op = domainagg.OpRecordCourseProgress
	var out domainagg.RecordCourseProgressResult
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	if in.CourseID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeValidation, op, domainagg.ErrCourseIDMissing)
	}
	now := eventTime(in.OccurredAt)
	key := strings.TrimSpace(in.IdempotencyKey)

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		course, err := a.deps.Courses.GetByID(dbc, in.CourseID)
		if err != nil {
			return err
		}
		if course == nil {
			return domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrCourseNotFound)
		}
		u, err := a.lockUser(dbc, op, in.UserID)
		if err != nil {
			return err
		}

		if key != "" {
			seen, err := a.deps.Ledger.Exists(dbc, u.ID, types.XPSourceCourseProgress, key)
			if err != nil {
				return err
			}
			if seen {
				row, err := a.deps.Progress.GetByUserAndCourse(dbc, u.ID, course.ID)
				if err != nil {
					return err
				}
				out = domainagg.RecordCourseProgressResult{
					Progress: row,
					User:     u,
					Level:    unchangedLevel(u),
					Replayed: true,
				}
				return nil
			}
		}

		row, err := a.deps.Progress.GetByUserAndCourse(dbc, u.ID, course.ID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &types.CourseProgress{UserID: u.ID, CourseID: course.ID}
		}
		wasCompleted := row.Completed()
		if in.Progress != nil {
			row.Progress = clampPercent(*in.Progress)
		}
		if in.CompletedLessons != nil {
			lessons := *in.CompletedLessons
			if lessons < 0 {
				lessons = 0
			}
			row.CompletedLessons = lessons
			if in.Progress == nil && course.LessonCount > 0 {
				row.Progress = clampPercent(lessons * 100 / course.LessonCount)
			}
		}
		row.LastAccessedAt = now
		completedNow := !wasCompleted && row.Progress >= 100
		if completedNow {
			row.CompletedAt = &now
		}
		if _, err := a.deps.Progress.Upsert(dbc, row); err != nil {
			return err
		}

		res := domainagg.RecordCourseProgressResult{CourseCompleted: completedNow}
		var delta int64

		amount := 0
		if in.XPGained != nil && *in.XPGained > 0 {
			amount = *in.XPGained
		}
		// With a key, a receipt row is written even for zero XP so replays are detected.
		if key != "" || amount > 0 {
			sourceKey := key
			if sourceKey == "" {
				sourceKey = uuid.NewString()
			}
			granted, err := a.grant(dbc, u.ID, types.XPSourceCourseProgress, sourceKey, int64(amount))
			if err != nil {
				return err
			}
			delta += granted
		}

		if completedNow && course.CompletionXP > 0 {
			mastery, err := a.deps.Attempts.CourseMastery(dbc, u.ID, course.ID)
			if err != nil {
				return err
			}
			res.Mastery = mastery
			reward := gamification.Reward(mastery, 100, course.CompletionXP, a.deps.Config.CourseCompletionTiers)
			granted, err := a.grant(dbc, u.ID, types.XPSourceCourseCompletion, course.ID.String(), int64(reward))
			if err != nil {
				return err
			}
			delta += granted
		}

		if in.HeartsLost != nil {
			u.Hearts = gamification.ClampHearts(u.Hearts, *in.HeartsLost, a.deps.Config.MaxHearts)
		}
		// a plain progress update is not streak activity
		if in.XPGained != nil || in.HeartsLost != nil || in.StreakMaintained != nil {
			streak := a.recordActivity(u, now, in.StreakMaintained != nil && *in.StreakMaintained)
			res.StreakReset = streak.Reset
		}

		unlocked, gained, err := a.evaluate(dbc, u, delta, types.TriggerCourse, nil, now)
		if err != nil {
			return err
		}
		level, err := a.persistUser(dbc, u, types.TriggerCourse, delta+gained, now)
		if err != nil {
			return err
		}

		res.Progress = row
		res.User = u
		res.XPAwarded = delta + gained
		res.Level = level
		res.Unlocked = unlocked
		out = res
		return nil
	})
	if err != nil {
		return domainagg.RecordCourseProgressResult{}, err
	}
	if out.Replayed {
		a.deps.Hooks.IncReplay(op)
	}
	return out, nil
}

func (a *progressAggregate) UnlockAchievement(ctx context.Context, in domainagg.UnlockAchievementInput) (domainagg.UnlockAchievementResult, error) {
	const op = domainagg.OpUnlockAchievement
	var out domainagg.UnlockAchievementResult
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, op, domainagg.ErrAuthenticationRequired)
	}
	if in.AchievementID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrAchievementNotFound)
	}
	now := eventTime(in.UnlockedAt)

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		ach, err := a.deps.Achievements.GetByID(dbc, in.AchievementID)
		if err != nil {
			return err
		}
		if ach == nil || !ach.Active {
			return domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrAchievementNotFound)
		}
		u, err := a.lockUser(dbc, op, in.UserID)
		if err != nil {
			return err
		}

		row := &types.UserAchievementUnlock{
			UserID:        u.ID,
			AchievementID: ach.ID,
			XPAwarded:     ach.XPReward,
			UnlockedAt:    now,
		}
		created, err := a.deps.Unlocks.CreateIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		if !created {
			return domainagg.Sentinel(domainagg.CodeConflict, op, domainagg.ErrAlreadyUnlocked)
		}

		var delta int64
		if ach.XPReward > 0 {
			granted, err := a.grant(dbc, u.ID, types.XPSourceAchievement, ach.ID.String(), int64(ach.XPReward))
			if err != nil {
				return err
			}
			delta += granted
		}

		chained, gained, err := a.evaluate(dbc, u, delta, types.TriggerManual, nil, now)
		if err != nil {
			return err
		}
		level, err := a.persistUser(dbc, u, types.TriggerManual, delta+gained, now)
		if err != nil {
			return err
		}

		row.Achievement = ach
		out = domainagg.UnlockAchievementResult{
			Unlock:      row,
			Achievement: ach,
			User:        u,
			Level:       level,
			Chained:     chained,
		}
		return nil
	})
	if err != nil {
		return domainagg.UnlockAchievementResult{}, err
	}
	return out, nil
}

func (a *progressAggregate) ReconcileXP(ctx context.Context, in domainagg.ReconcileXPInput) (domainagg.ReconcileXPResult, error) {
	const op = domainagg.OpReconcileXP
	var out domainagg.ReconcileXPResult
	if in.UserID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeValidation, op, domainagg.ErrUserNotFound)
	}

	err := executeWrite(ctx, a.deps.BaseDeps, op, func(dbc dbctx.Context) error {
		u, err := a.lockUser(dbc, op, in.UserID)
		if err != nil {
			return err
		}
		sum, err := a.deps.Ledger.SumByUser(dbc, u.ID)
		if err != nil {
			return err
		}
		res := domainagg.ReconcileXPResult{
			StoredXP: u.XP,
			LedgerXP: sum,
			Drift:    u.XP - sum,
		}
		if res.Drift == 0 {
			res.User = u
			res.Level = unchangedLevel(u)
			out = res
			return nil
		}
		level, err := a.persistUser(dbc, u, types.TriggerQuiz, sum-u.XP, time.Now().UTC())
		if err != nil {
			return err
		}
		a.deps.Log.Warn("xp drift repaired", "user_id", u.ID, "stored_xp", res.StoredXP, "ledger_xp", sum)
		res.User = u
		res.Level = level
		res.Repaired = true
		out = res
		return nil
	})
	if err != nil {
		return domainagg.ReconcileXPResult{}, err
	}
	return out, nil
}

// recordActivity runs the streak tracker for one event and moves
// LastActiveAt to now.
func (a *progressAggregate) recordActivity(u *types.User, now time.Time, maintained bool) gamification.StreakResult {
	streak := a.deps.Config.StreakTracker().RecordActivity(gamification.StreakState{
		Length:       u.StreakLength,
		LastActiveAt: u.LastActiveAt,
	}, now, maintained)
	u.StreakLength = streak.Length
	u.LastActiveAt = &streak.LastActiveAt
	return streak
}

func (a *progressAggregate) lockUser(dbc dbctx.Context, op string, userID uuid.UUID) (*types.User, error) {
	u, err := a.deps.Users.LockByID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domainagg.Sentinel(domainagg.CodeNotFound, op, domainagg.ErrUserNotFound)
	}
	return u, nil
}

// grant appends a ledger entry and returns the amount actually credited.
// An entry that already exists for the same source credits nothing.
func (a *progressAggregate) grant(dbc dbctx.Context, userID uuid.UUID, source types.XPSource, sourceKey string, amount int64) (int64, error) {
	if amount < 0 {
		amount = 0
	}
	created, err := a.deps.Ledger.Append(dbc, &types.XPLedgerEntry{
		UserID:     userID,
		SourceType: source,
		SourceKey:  sourceKey,
		Amount:     amount,
	})
	if err != nil {
		return 0, err
	}
	if !created {
		a.deps.Hooks.IncDuplicate(string(source))
		return 0, nil
	}
	return amount, nil
}

// evaluate unlocks every achievement newly satisfied after pending XP is applied.
// It returns the unlocks and the achievement XP they granted.
func (a *progressAggregate) evaluate(
	dbc dbctx.Context,
	u *types.User,
	pending int64,
	trigger types.Trigger,
	lastPercentage *float64,
	now time.Time,
) ([]domainagg.UnlockedAchievement, int64, error) {
	catalog, err := a.deps.Achievements.ListActive(dbc)
	if err != nil {
		return nil, 0, err
	}
	if len(catalog) == 0 {
		return nil, 0, nil
	}
	unlocked, err := a.deps.Unlocks.UnlockedSet(dbc, u.ID)
	if err != nil {
		return nil, 0, err
	}
	quizzes, err := a.deps.Attempts.CountDistinctQuizzes(dbc, u.ID)
	if err != nil {
		return nil, 0, err
	}
	perfect, err := a.deps.Attempts.CountDistinctPerfect(dbc, u.ID)
	if err != nil {
		return nil, 0, err
	}
	courses, err := a.deps.Progress.CountCompleted(dbc, u.ID)
	if err != nil {
		return nil, 0, err
	}

	engine := a.deps.Config.LevelEngine(trigger)
	var (
		out    []domainagg.UnlockedAchievement
		gained int64
	)
	for pass := 0; pass < maxEvaluationPasses; pass++ {
		lv := engine.ApplyXP(gamification.UserProgress{XP: u.XP, Level: u.Level}, pending+gained)
		stats := types.Stats{
			XP:                 lv.NewXP,
			Level:              lv.NewLevel,
			Streak:             u.StreakLength,
			QuizzesCompleted:   quizzes,
			PerfectQuizzes:     perfect,
			CoursesCompleted:   courses,
			LastQuizPercentage: lastPercentage,
		}
		candidates := a.evaluator.Candidates(catalog, unlocked, stats, trigger)
		if len(candidates) == 0 {
			break
		}
		for _, ach := range candidates {
			unlocked[ach.ID] = true
			row := &types.UserAchievementUnlock{
				UserID:        u.ID,
				AchievementID: ach.ID,
				XPAwarded:     ach.XPReward,
				UnlockedAt:    now,
			}
			created, err := a.deps.Unlocks.CreateIfAbsent(dbc, row)
			if err != nil {
				return nil, 0, err
			}
			if !created {
				a.deps.Hooks.IncDuplicate(DuplicateUnlock)
				continue
			}
			if ach.XPReward > 0 {
				granted, err := a.grant(dbc, u.ID, types.XPSourceAchievement, ach.ID.String(), int64(ach.XPReward))
				if err != nil {
					return nil, 0, err
				}
				gained += granted
			}
			row.Achievement = ach
			out = append(out, domainagg.UnlockedAchievement{Achievement: ach, Unlock: row})
		}
	}
	return out, gained, nil
}

// persistUser applies delta with the trigger's level engine and writes the
// user row back guarded by its version.
func (a *progressAggregate) persistUser(dbc dbctx.Context, u *types.User, trigger types.Trigger, delta int64, now time.Time) (domainagg.LevelChange, error) {
	lv := a.deps.Config.LevelEngine(trigger).ApplyXP(gamification.UserProgress{XP: u.XP, Level: u.Level}, delta)
	updates := map[string]any{
		"xp":             lv.NewXP,
		"level":          lv.NewLevel,
		"streak_length":  u.StreakLength,
		"last_active_at": u.LastActiveAt,
		"hearts":         u.Hearts,
		"updated_at":     now,
	}
	if err := a.deps.CASGuard.Advance(dbc, userTable, u.ID, u.Version, updates); err != nil {
		return domainagg.LevelChange{}, err
	}
	u.XP = lv.NewXP
	u.Level = lv.NewLevel
	u.Version++
	u.UpdatedAt = now
	return domainagg.LevelChange{
		PreviousXP:    lv.PreviousXP,
		NewXP:         lv.NewXP,
		PreviousLevel: lv.PreviousLevel,
		NewLevel:      lv.NewLevel,
		LeveledUp:     lv.LeveledUp,
	}, nil
}

func unchangedLevel(u *types.User) domainagg.LevelChange {
	return domainagg.LevelChange{
		PreviousXP:    u.XP,
		NewXP:         u.XP,
		PreviousLevel: u.Level,
		NewLevel:      u.Level,
	}
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
