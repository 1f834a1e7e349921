package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/cache"
	"github.com/yungbote/questline-backend/internal/data/repos"
	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/modules/gamification"
	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type UsecasesDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Config gamification.Config

	Aggregate domainagg.ProgressAggregate

	Users        repos.UserRepo
	Quizzes      repos.QuizRepo
	Courses      repos.CourseRepo
	Attempts     repos.QuizAttemptRepo
	Progress     repos.CourseProgressRepo
	Achievements repos.AchievementRepo
	Unlocks      repos.UnlockRepo
	Ledger       repos.XPLedgerRepo

	QuizCache   cache.QuizCache
	Leaderboard cache.Leaderboard
	Metrics     *observability.Metrics

	// Now is overridable so streak windows can be tested deterministically.
	Now func() time.Time
}

// Usecases is the ProgressCoordinator: it loads and scores outside the
// transaction, hands the write to the aggregate, then runs post-commit effects.
type Usecases struct {
	deps UsecasesDeps
}

var tracer = observability.Tracer("progress")

func New(deps UsecasesDeps) Usecases {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	deps.Log = deps.Log.With("service", "ProgressUsecases")
	deps.Config = deps.Config.WithDefaults()
	if deps.QuizCache == nil {
		deps.QuizCache = cache.NewQuizCache(nil, 0, deps.Log, deps.Metrics)
	}
	if deps.Leaderboard == nil {
		deps.Leaderboard = cache.NewLeaderboard(nil, deps.Log)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return Usecases{deps: deps}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	if log != nil {
		u.deps.Log = log
	}
	return u
}

func (u Usecases) now() time.Time {
	return u.deps.Now().UTC()
}

func startSpan(ctx context.Context, name string, userID uuid.UUID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("user.id", userID.String()))
	return tracer.Start(ctx, "progress."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// afterCommit publishes the side effects of a committed progression write.
// Failures here are logged; the write itself already succeeded.
func (u Usecases) afterCommit(ctx context.Context, usr *types.User, trigger types.Trigger, level domainagg.LevelChange, unlocked []domainagg.UnlockedAchievement) {
	if usr != nil {
		if err := u.deps.Leaderboard.Record(ctx, usr.ID, usr.XP); err != nil {
			u.deps.Log.Warn("leaderboard update failed", "user_id", usr.ID, "error", err)
		}
	}
	if level.LeveledUp {
		u.deps.Metrics.IncLevelUp(string(trigger))
		u.deps.Log.Info("level up",
			"user_id", usrID(usr),
			"trigger", trigger,
			"previous_level", level.PreviousLevel,
			"new_level", level.NewLevel,
		)
	}
	for _, un := range unlocked {
		if un.Achievement == nil {
			continue
		}
		u.deps.Metrics.IncUnlock(string(un.Achievement.Rarity))
		if un.Unlock != nil {
			u.deps.Metrics.AddXPAwarded(string(types.XPSourceAchievement), int64(un.Unlock.XPAwarded))
		}
		u.deps.Log.Info("achievement unlocked", "user_id", usrID(usr), "achievement", un.Achievement.Key)
	}
}

func usrID(usr *types.User) uuid.UUID {
	if usr == nil {
		return uuid.Nil
	}
	return usr.ID
}

func unlockedXP(unlocked []domainagg.UnlockedAchievement) int64 {
	var total int64
	for _, un := range unlocked {
		if un.Unlock != nil {
			total += int64(un.Unlock.XPAwarded)
		}
	}
	return total
}
