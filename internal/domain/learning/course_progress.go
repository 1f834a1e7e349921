package learning

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/questline-backend/internal/domain/user"
)

// CourseProgress is upserted per (user, course). CompletedAt is stamped the
// first time Progress reaches 100 and never cleared afterwards.
type CourseProgress struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_course_progress_user_course,priority:1;column:user_id" json:"user_id"`
	User             *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	CourseID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_course_progress_user_course,priority:2;column:course_id" json:"course_id"`
	Course           *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"-"`
	Progress         int        `gorm:"not null;default:0;column:progress" json:"progress"`
	CompletedLessons int        `gorm:"not null;default:0;column:completed_lessons" json:"completed_lessons"`
	LastAccessedAt   time.Time  `gorm:"not null;column:last_accessed_at" json:"last_accessed_at"`
	CompletedAt      *time.Time `gorm:"index;column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseProgress) TableName() string { return "course_progress" }

func (p *CourseProgress) Completed() bool {
	return p != nil && p.CompletedAt != nil
}
