package progress

import (
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
)

type AchievementView struct {
	ID          uuid.UUID      `json:"id"`
	Key         string         `json:"key"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Rarity      types.Rarity   `json:"rarity"`
	Criteria    types.Criteria `json:"criteria"`
	XPReward    int            `json:"xp_reward"`
	Unlocked    bool           `json:"unlocked"`
	UnlockedAt  *time.Time     `json:"unlocked_at,omitempty"`
	XPAwarded   int            `json:"xp_awarded,omitempty"`
}

func achievementView(a *types.Achievement, un *types.UserAchievementUnlock) AchievementView {
	v := AchievementView{
		ID:          a.ID,
		Key:         a.Key,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Rarity:      a.Rarity,
		Criteria:    a.Criteria.Data(),
		XPReward:    a.XPReward,
	}
	if un != nil {
		at := un.UnlockedAt
		v.Unlocked = true
		v.UnlockedAt = &at
		v.XPAwarded = un.XPAwarded
	}
	return v
}

func unlockedViews(unlocked []domainagg.UnlockedAchievement) []AchievementView {
	out := make([]AchievementView, 0, len(unlocked))
	for _, un := range unlocked {
		if un.Achievement == nil {
			continue
		}
		out = append(out, achievementView(un.Achievement, un.Unlock))
	}
	return out
}

// UserStats is the learner's progression summary. Level progress is reported
// against the quiz divisor.
type UserStats struct {
	UserID               uuid.UUID  `json:"user_id"`
	DisplayName          string     `json:"display_name"`
	XP                   int64      `json:"xp"`
	Level                int        `json:"level"`
	XPIntoLevel          int64      `json:"xp_into_level"`
	XPForNextLevel       int64      `json:"xp_for_next_level"`
	Streak               int        `json:"streak"`
	Hearts               int        `json:"hearts"`
	MaxHearts            int        `json:"max_hearts"`
	LastActiveAt         *time.Time `json:"last_active_at,omitempty"`
	QuizzesCompleted     int64      `json:"quizzes_completed"`
	CoursesCompleted     int64      `json:"courses_completed"`
	AchievementsUnlocked int64      `json:"achievements_unlocked"`
}

type QuestionResult struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Index        int       `json:"index"`
	Selected     int       `json:"selected"`
	Correct      bool      `json:"correct"`
	CorrectIndex int       `json:"correct_index"`
	Explanation  string    `json:"explanation,omitempty"`
}

type LeaderboardRow struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	XP          int64     `json:"xp"`
	Level       int       `json:"level"`
}
