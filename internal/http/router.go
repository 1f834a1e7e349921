package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/questline-backend/internal/http/handlers"
	httpMW "github.com/yungbote/questline-backend/internal/http/middleware"
	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	QuizHandler        *httpH.QuizHandler
	ProgressHandler    *httpH.ProgressHandler
	AchievementHandler *httpH.AchievementHandler
	UserHandler        *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Quizzes
		if cfg.QuizHandler != nil {
			api.POST("/quizzes/:id/attempts", cfg.QuizHandler.SubmitAttempt)
			api.GET("/quizzes/:id/attempts", cfg.QuizHandler.ListAttempts)
		}

		// Course progress
		if cfg.ProgressHandler != nil {
			api.POST("/courses/:id/progress", cfg.ProgressHandler.ReportCourseProgress)
			api.POST("/progress", cfg.ProgressHandler.ReportProgress)
		}

		// Achievements
		if cfg.AchievementHandler != nil {
			api.GET("/achievements", cfg.AchievementHandler.List)
			api.POST("/achievements/:id/unlock", cfg.AchievementHandler.Unlock)
		}

		// User (Me)
		if cfg.UserHandler != nil {
			api.POST("/me", cfg.UserHandler.Provision)
			api.GET("/me/stats", cfg.UserHandler.Stats)
			api.GET("/me/xp", cfg.UserHandler.XPHistory)
			api.GET("/me/courses", cfg.UserHandler.Courses)
			api.POST("/me/reconcile", cfg.UserHandler.Reconcile)
			api.GET("/leaderboard", cfg.UserHandler.Leaderboard)
		}
	}

	return r
}
