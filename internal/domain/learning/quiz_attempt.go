package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/questline-backend/internal/domain/user"
	"gorm.io/datatypes"
)

// SkippedAnswer marks a question the learner left blank.
const SkippedAnswer = -1

// QuizAttempt is append-only. MaxScore is frozen at submission so history is
// never recomputed when the quiz is edited later.
type QuizAttempt struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID                 `gorm:"type:uuid;not null;index:idx_quiz_attempt_user_quiz,priority:1;uniqueIndex:idx_quiz_attempt_idempotency,priority:1;column:user_id" json:"user_id"`
	User             *user.User                `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	QuizID           uuid.UUID                 `gorm:"type:uuid;not null;index:idx_quiz_attempt_user_quiz,priority:2;column:quiz_id" json:"quiz_id"`
	Quiz             *Quiz                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuizID;references:ID" json:"-"`
	Answers          datatypes.JSONSlice[int]  `gorm:"column:answers" json:"answers"`
	Correct          datatypes.JSONSlice[bool] `gorm:"column:correct" json:"correct"`
	Score            int                       `gorm:"not null;column:score" json:"score"`
	MaxScore         int                       `gorm:"not null;column:max_score" json:"max_score"`
	Percentage       float64                   `gorm:"not null;column:percentage" json:"percentage"`
	XPEarned         int                       `gorm:"not null;default:0;column:xp_earned" json:"xp_earned"`
	TimeSpentSeconds int                       `gorm:"not null;default:0;column:time_spent_seconds" json:"time_spent_seconds"`
	Completed        bool                      `gorm:"not null;default:true;column:completed" json:"completed"`
	IdempotencyKey   *string                   `gorm:"uniqueIndex:idx_quiz_attempt_idempotency,priority:2;column:idempotency_key" json:"-"`
	CompletedAt      time.Time                 `gorm:"not null;column:completed_at" json:"completed_at"`
	CreatedAt        time.Time                 `gorm:"not null" json:"created_at"`
}

func (QuizAttempt) TableName() string { return "quiz_attempt" }

// Perfect reports whether every point was earned on a quiz that had points to earn.
func (a *QuizAttempt) Perfect() bool {
	return a != nil && a.MaxScore > 0 && a.Score == a.MaxScore
}
