package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/repos/gamification"
	"github.com/yungbote/questline-backend/internal/data/repos/learning"
	"github.com/yungbote/questline-backend/internal/data/repos/user"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

type QuizRepo = learning.QuizRepo
type CourseRepo = learning.CourseRepo
type QuizAttemptRepo = learning.QuizAttemptRepo
type CourseProgressRepo = learning.CourseProgressRepo

type AchievementRepo = gamification.AchievementRepo
type UnlockRepo = gamification.UnlockRepo
type XPLedgerRepo = gamification.XPLedgerRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return learning.NewQuizRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return learning.NewQuizAttemptRepo(db, baseLog)
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return learning.NewCourseProgressRepo(db, baseLog)
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return gamification.NewAchievementRepo(db, baseLog)
}

func NewUnlockRepo(db *gorm.DB, baseLog *logger.Logger) UnlockRepo {
	return gamification.NewUnlockRepo(db, baseLog)
}

func NewXPLedgerRepo(db *gorm.DB, baseLog *logger.Logger) XPLedgerRepo {
	return gamification.NewXPLedgerRepo(db, baseLog)
}
