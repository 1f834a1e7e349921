package gamification

import (
	"fmt"
	"time"

	types "github.com/yungbote/questline-backend/internal/domain"
)

const (
	DefaultQuizXPPerLevel        int64 = 1000
	DefaultCourseXPPerLevel      int64 = 100
	DefaultAchievementXPPerLevel int64 = 1000
	DefaultMaxHearts                   = 5
	DefaultStreakWindow                = 24 * time.Hour
)

// Config holds every tunable of the progression rules. Each event type
// levels with its own divisor; they are deliberately not unified.
type Config struct {
	QuizXPPerLevel        int64
	CourseXPPerLevel      int64
	AchievementXPPerLevel int64

	MaxHearts    int
	StreakWindow time.Duration

	QuizRewardTiers       RewardTiers
	CourseCompletionTiers RewardTiers
}

func DefaultConfig() Config {
	return Config{
		QuizXPPerLevel:        DefaultQuizXPPerLevel,
		CourseXPPerLevel:      DefaultCourseXPPerLevel,
		AchievementXPPerLevel: DefaultAchievementXPPerLevel,
		MaxHearts:             DefaultMaxHearts,
		StreakWindow:          DefaultStreakWindow,
		QuizRewardTiers:       QuizRewardTiers(),
		CourseCompletionTiers: CourseCompletionTiers(),
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.QuizXPPerLevel <= 0 {
		c.QuizXPPerLevel = def.QuizXPPerLevel
	}
	if c.CourseXPPerLevel <= 0 {
		c.CourseXPPerLevel = def.CourseXPPerLevel
	}
	if c.AchievementXPPerLevel <= 0 {
		c.AchievementXPPerLevel = def.AchievementXPPerLevel
	}
	if c.MaxHearts <= 0 {
		c.MaxHearts = def.MaxHearts
	}
	if c.StreakWindow <= 0 {
		c.StreakWindow = def.StreakWindow
	}
	if len(c.QuizRewardTiers) == 0 {
		c.QuizRewardTiers = def.QuizRewardTiers
	}
	if len(c.CourseCompletionTiers) == 0 {
		c.CourseCompletionTiers = def.CourseCompletionTiers
	}
	return c
}

func (c Config) Validate() error {
	if c.QuizXPPerLevel <= 0 || c.CourseXPPerLevel <= 0 || c.AchievementXPPerLevel <= 0 {
		return fmt.Errorf("xp per level must be positive")
	}
	if c.MaxHearts <= 0 {
		return fmt.Errorf("max hearts must be positive")
	}
	if err := c.QuizRewardTiers.Validate(); err != nil {
		return fmt.Errorf("quiz reward tiers: %w", err)
	}
	if err := c.CourseCompletionTiers.Validate(); err != nil {
		return fmt.Errorf("course completion tiers: %w", err)
	}
	return nil
}

// LevelEngine returns the engine for events of the given trigger.
func (c Config) LevelEngine(t types.Trigger) LevelEngine {
	switch t {
	case types.TriggerCourse:
		return LevelEngine{XPPerLevel: c.CourseXPPerLevel}
	case types.TriggerManual:
		return LevelEngine{XPPerLevel: c.AchievementXPPerLevel}
	default:
		return LevelEngine{XPPerLevel: c.QuizXPPerLevel}
	}
}

func (c Config) StreakTracker() StreakTracker {
	return StreakTracker{Window: c.StreakWindow}
}
