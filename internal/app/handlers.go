package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/questline-backend/internal/http/handlers"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Quiz        *httpH.QuizHandler
	Progress    *httpH.ProgressHandler
	Achievement *httpH.AchievementHandler
	User        *httpH.UserHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		Quiz: httpH.NewQuizHandlerWithDeps(httpH.QuizHandlerDeps{
			Log:      log,
			Progress: services.Progress,
		}),
		Progress: httpH.NewProgressHandlerWithDeps(httpH.ProgressHandlerDeps{
			Log:      log,
			Progress: services.Progress,
		}),
		Achievement: httpH.NewAchievementHandlerWithDeps(httpH.AchievementHandlerDeps{
			Log:      log,
			Progress: services.Progress,
		}),
		User: httpH.NewUserHandlerWithDeps(httpH.UserHandlerDeps{
			Log:      log,
			Progress: services.Progress,
		}),
	}
}
