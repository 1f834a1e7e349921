package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Quiz is authored content. The progression engine only reads it.
type Quiz struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    *uuid.UUID     `gorm:"type:uuid;index;column:course_id" json:"course_id,omitempty"`
	Course      *Course        `gorm:"constraint:OnDelete:SET NULL;foreignKey:CourseID;references:ID" json:"-"`
	Title       string         `gorm:"not null;column:title" json:"title"`
	XPReward    int            `gorm:"not null;default:0;column:xp_reward" json:"xp_reward"`
	AllowRetake bool           `gorm:"not null;column:allow_retake" json:"allow_retake"`
	Published   bool           `gorm:"not null;default:false;index;column:published" json:"published"`
	Questions   []QuizQuestion `gorm:"foreignKey:QuizID;references:ID" json:"questions"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Quiz) TableName() string { return "quiz" }

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

type QuizQuestion struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	QuizID       uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_quiz_question_position,priority:1;column:quiz_id" json:"quiz_id"`
	Index        int                         `gorm:"not null;uniqueIndex:idx_quiz_question_position,priority:2;column:position" json:"index"`
	Prompt       string                      `gorm:"not null;column:prompt" json:"prompt"`
	Options      datatypes.JSONSlice[string] `gorm:"column:options" json:"options"`
	CorrectIndex int                         `gorm:"not null;column:correct_index" json:"correct_index"`
	Points       int                         `gorm:"not null;column:points" json:"points"`
	Explanation  string                      `gorm:"column:explanation" json:"explanation,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (QuizQuestion) TableName() string { return "quiz_question" }

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
