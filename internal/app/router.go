package app

import (
	apphttp "github.com/yungbote/questline-backend/internal/http"
	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	log.Info("Wiring router...")
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        cfg.ServiceName,
		CORSOrigins:        cfg.CORSOrigins,
		AuthMiddleware:     middleware.Auth,
		HealthHandler:      handlers.Health,
		QuizHandler:        handlers.Quiz,
		ProgressHandler:    handlers.Progress,
		AchievementHandler: handlers.Achievement,
		UserHandler:        handlers.User,
	})
}
