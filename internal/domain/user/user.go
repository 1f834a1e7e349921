package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the learner's progression row. XP is a cache of the XP ledger sum
// and Level is derived from it; Version increments on every progression write.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	DisplayName  string     `gorm:"not null;column:display_name" json:"display_name"`
	XP           int64      `gorm:"not null;default:0;column:xp" json:"xp"`
	Level        int        `gorm:"not null;default:1;column:level" json:"level"`
	StreakLength int        `gorm:"not null;default:0;column:streak_length" json:"streak_length"`
	LastActiveAt *time.Time `gorm:"column:last_active_at" json:"last_active_at,omitempty"`
	Hearts       int        `gorm:"not null;default:5;column:hearts" json:"hearts"`
	Version      int64      `gorm:"not null;default:0;column:version" json:"-"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Level < 1 {
		u.Level = 1
	}
	return nil
}
