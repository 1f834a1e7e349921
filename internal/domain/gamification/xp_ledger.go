package gamification

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/questline-backend/internal/domain/user"
)

type XPSource string

const (
	XPSourceQuizAttempt      XPSource = "quiz_attempt"
	XPSourceAchievement      XPSource = "achievement"
	XPSourceCourseProgress   XPSource = "course_progress"
	XPSourceCourseCompletion XPSource = "course_completion"
)

// XPLedgerEntry records one XP grant. (user, source type, source key) is
// unique, so replaying an event cannot grant twice, and the sum of a user's
// entries is the authoritative XP total.
type XPLedgerEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_xp_ledger_source,priority:1;column:user_id" json:"user_id"`
	User       *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	SourceType XPSource   `gorm:"not null;uniqueIndex:idx_xp_ledger_source,priority:2;column:source_type" json:"source_type"`
	SourceKey  string     `gorm:"not null;uniqueIndex:idx_xp_ledger_source,priority:3;column:source_key" json:"source_key"`
	Amount     int64      `gorm:"not null;column:amount" json:"amount"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (XPLedgerEntry) TableName() string { return "xp_ledger_entry" }
