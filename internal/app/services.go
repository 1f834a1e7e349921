package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/aggregates"
	"github.com/yungbote/questline-backend/internal/data/cache"
	"github.com/yungbote/questline-backend/internal/modules/auth"
	"github.com/yungbote/questline-backend/internal/modules/content"
	"github.com/yungbote/questline-backend/internal/modules/progress"
	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Services struct {
	Tokens   *auth.TokenService
	Progress progress.Usecases
	Content  content.Usecases

	QuizCache   cache.QuizCache
	Leaderboard cache.Leaderboard
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, repos Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	if err := cfg.Engine.Validate(); err != nil {
		return Services{}, fmt.Errorf("engine config: %w", err)
	}

	quizCache := cache.NewQuizCache(clients.Redis, cfg.QuizCacheTTL, log, metrics)
	leaderboard := cache.NewLeaderboard(clients.Redis, log)

	var hooks aggregates.Hooks
	if metrics != nil {
		hooks = aggregates.NewObservabilityHooks(metrics)
	}
	progressAgg := aggregates.NewProgressAggregate(aggregates.ProgressAggregateDeps{
		BaseDeps: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: hooks,
			Retry: aggregates.RetryPolicy{
				MaxAttempts: cfg.TxMaxAttempts,
				Backoff:     cfg.TxRetryBackoff,
			},
		},
		Config:       cfg.Engine,
		Users:        repos.User,
		Courses:      repos.Course,
		Attempts:     repos.QuizAttempt,
		Progress:     repos.CourseProgress,
		Achievements: repos.Achievement,
		Unlocks:      repos.Unlock,
		Ledger:       repos.XPLedger,
	})
	contract := progressAgg.Contract()
	log.Debug("aggregate wired", "name", contract.Name, "ops", contract.Ops, "idempotent", contract.Idempotent)

	progressUC := progress.New(progress.UsecasesDeps{
		DB:           db,
		Log:          log,
		Config:       cfg.Engine,
		Aggregate:    progressAgg,
		Users:        repos.User,
		Quizzes:      repos.Quiz,
		Courses:      repos.Course,
		Attempts:     repos.QuizAttempt,
		Progress:     repos.CourseProgress,
		Achievements: repos.Achievement,
		Unlocks:      repos.Unlock,
		Ledger:       repos.XPLedger,
		QuizCache:    quizCache,
		Leaderboard:  leaderboard,
		Metrics:      metrics,
	})

	contentUC := content.New(content.UsecasesDeps{
		DB:           db,
		Log:          log,
		Courses:      repos.Course,
		Quizzes:      repos.Quiz,
		Achievements: repos.Achievement,
		QuizCache:    quizCache,
	})

	return Services{
		Tokens:      auth.NewTokenService(cfg.JWTSecretKey, cfg.JWTIssuer, cfg.TokenTTL),
		Progress:    progressUC,
		Content:     contentUC,
		QuizCache:   quizCache,
		Leaderboard: leaderboard,
	}, nil
}
