package domain

import (
	"github.com/yungbote/questline-backend/internal/domain/gamification"
	"github.com/yungbote/questline-backend/internal/domain/learning"
	"github.com/yungbote/questline-backend/internal/domain/user"
)

type User = user.User

type Quiz = learning.Quiz
type QuizQuestion = learning.QuizQuestion
type Course = learning.Course
type QuizAttempt = learning.QuizAttempt
type CourseProgress = learning.CourseProgress

type Achievement = gamification.Achievement
type UserAchievementUnlock = gamification.UserAchievementUnlock
type XPLedgerEntry = gamification.XPLedgerEntry
type XPSource = gamification.XPSource
type Rarity = gamification.Rarity
type Criteria = gamification.Criteria
type CriteriaKind = gamification.CriteriaKind
type Trigger = gamification.Trigger
type Stats = gamification.Stats

const SkippedAnswer = learning.SkippedAnswer

const (
	XPSourceQuizAttempt      = gamification.XPSourceQuizAttempt
	XPSourceAchievement      = gamification.XPSourceAchievement
	XPSourceCourseProgress   = gamification.XPSourceCourseProgress
	XPSourceCourseCompletion = gamification.XPSourceCourseCompletion

	TriggerQuiz   = gamification.TriggerQuiz
	TriggerCourse = gamification.TriggerCourse
	TriggerManual = gamification.TriggerManual

	CriteriaQuizzesCompleted = gamification.CriteriaQuizzesCompleted
	CriteriaPerfectQuizzes   = gamification.CriteriaPerfectQuizzes
	CriteriaQuizScoreAtLeast = gamification.CriteriaQuizScoreAtLeast
	CriteriaLevelAtLeast     = gamification.CriteriaLevelAtLeast
	CriteriaXPAtLeast        = gamification.CriteriaXPAtLeast
	CriteriaStreakAtLeast    = gamification.CriteriaStreakAtLeast
	CriteriaCoursesCompleted = gamification.CriteriaCoursesCompleted
	CriteriaManual           = gamification.CriteriaManual
	CriteriaAllOf            = gamification.CriteriaAllOf
	CriteriaAnyOf            = gamification.CriteriaAnyOf

	RarityCommon    = gamification.RarityCommon
	RarityRare      = gamification.RarityRare
	RarityEpic      = gamification.RarityEpic
	RarityLegendary = gamification.RarityLegendary
)

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Course{},
		&Quiz{},
		&QuizQuestion{},
		&QuizAttempt{},
		&CourseProgress{},
		&Achievement{},
		&UserAchievementUnlock{},
		&XPLedgerEntry{},
	}
}
