package gamification

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/questline-backend/internal/domain/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is a catalog entry. New achievements are added as data: the
// Criteria descriptor is evaluated generically.
type Achievement struct {
	ID          uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"id"`
	Key         string                       `gorm:"uniqueIndex;not null;column:achievement_key" json:"key"`
	Title       string                       `gorm:"not null;column:title" json:"title"`
	Description string                       `gorm:"column:description" json:"description"`
	Category    string                       `gorm:"index;column:category" json:"category"`
	Rarity      Rarity                       `gorm:"not null;column:rarity" json:"rarity"`
	Criteria    datatypes.JSONType[Criteria] `gorm:"column:criteria" json:"criteria"`
	XPReward    int                          `gorm:"not null;default:0;column:xp_reward" json:"xp_reward"`
	Active      bool                         `gorm:"not null;index;column:active" json:"active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Achievement) TableName() string { return "achievement" }

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// UserAchievementUnlock is unique per (user, achievement); the index decides
// concurrent unlock races.
type UserAchievementUnlock struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement_unlock,priority:1;column:user_id" json:"user_id"`
	User          *user.User   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	AchievementID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_achievement_unlock,priority:2;column:achievement_id" json:"achievement_id"`
	Achievement   *Achievement `gorm:"constraint:OnDelete:CASCADE;foreignKey:AchievementID;references:ID" json:"achievement,omitempty"`
	XPAwarded     int          `gorm:"not null;default:0;column:xp_awarded" json:"xp_awarded"`
	UnlockedAt    time.Time    `gorm:"not null;column:unlocked_at" json:"unlocked_at"`
}

func (UserAchievementUnlock) TableName() string { return "user_achievement_unlock" }
