package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/repos"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Repos struct {
	User           repos.UserRepo
	Quiz           repos.QuizRepo
	Course         repos.CourseRepo
	QuizAttempt    repos.QuizAttemptRepo
	CourseProgress repos.CourseProgressRepo
	Achievement    repos.AchievementRepo
	Unlock         repos.UnlockRepo
	XPLedger       repos.XPLedgerRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:           repos.NewUserRepo(db, log),
		Quiz:           repos.NewQuizRepo(db, log),
		Course:         repos.NewCourseRepo(db, log),
		QuizAttempt:    repos.NewQuizAttemptRepo(db, log),
		CourseProgress: repos.NewCourseProgressRepo(db, log),
		Achievement:    repos.NewAchievementRepo(db, log),
		Unlock:         repos.NewUnlockRepo(db, log),
		XPLedger:       repos.NewXPLedgerRepo(db, log),
	}
}
