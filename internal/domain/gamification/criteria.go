package gamification

import (
	"fmt"
	"strings"
)

type CriteriaKind string

const (
	CriteriaQuizzesCompleted CriteriaKind = "quizzes_completed"
	CriteriaPerfectQuizzes   CriteriaKind = "perfect_quizzes"
	CriteriaQuizScoreAtLeast CriteriaKind = "quiz_score_at_least"
	CriteriaLevelAtLeast     CriteriaKind = "level_at_least"
	CriteriaXPAtLeast        CriteriaKind = "xp_at_least"
	CriteriaStreakAtLeast    CriteriaKind = "streak_at_least"
	CriteriaCoursesCompleted CriteriaKind = "courses_completed"
	CriteriaManual           CriteriaKind = "manual"
	CriteriaAllOf            CriteriaKind = "all_of"
	CriteriaAnyOf            CriteriaKind = "any_of"
)

// Trigger names the kind of event that prompted an evaluation pass.
type Trigger string

const (
	TriggerQuiz   Trigger = "quiz"
	TriggerCourse Trigger = "course"
	TriggerManual Trigger = "manual"
)

// Stats is the slice of a learner's aggregate state that criteria can read.
// LastQuizPercentage is only set while evaluating a quiz submission.
type Stats struct {
	XP                 int64
	Level              int
	Streak             int
	QuizzesCompleted   int64
	PerfectQuizzes     int64
	CoursesCompleted   int64
	LastQuizPercentage *float64
}

// Criteria is a tagged condition: leaf kinds compare one stat against
// Threshold, all_of/any_of combine Conditions.
type Criteria struct {
	Kind       CriteriaKind `json:"kind" yaml:"kind"`
	Threshold  int64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Conditions []Criteria   `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

func (c Criteria) Validate() error {
	return c.validate("criteria")
}

func (c Criteria) validate(path string) error {
	switch c.Kind {
	case CriteriaQuizzesCompleted, CriteriaPerfectQuizzes, CriteriaLevelAtLeast,
		CriteriaXPAtLeast, CriteriaStreakAtLeast, CriteriaCoursesCompleted:
		if c.Threshold < 1 {
			return fmt.Errorf("%s: %s requires threshold >= 1", path, c.Kind)
		}
	case CriteriaQuizScoreAtLeast:
		if c.Threshold < 0 || c.Threshold > 100 {
			return fmt.Errorf("%s: %s threshold must be within 0..100", path, c.Kind)
		}
	case CriteriaManual:
	case CriteriaAllOf, CriteriaAnyOf:
		if len(c.Conditions) == 0 {
			return fmt.Errorf("%s: %s requires at least one condition", path, c.Kind)
		}
		for i, sub := range c.Conditions {
			if err := sub.validate(fmt.Sprintf("%s.conditions[%d]", path, i)); err != nil {
				return err
			}
		}
	case "":
		return fmt.Errorf("%s: missing kind", path)
	default:
		return fmt.Errorf("%s: unknown kind %q", path, c.Kind)
	}
	return nil
}

// Evaluate reports whether stats satisfy the condition. Manual criteria never
// evaluate true; they are granted only through an explicit unlock.
func (c Criteria) Evaluate(s Stats) bool {
	switch c.Kind {
	case CriteriaQuizzesCompleted:
		return s.QuizzesCompleted >= c.Threshold
	case CriteriaPerfectQuizzes:
		return s.PerfectQuizzes >= c.Threshold
	case CriteriaQuizScoreAtLeast:
		return s.LastQuizPercentage != nil && *s.LastQuizPercentage >= float64(c.Threshold)
	case CriteriaLevelAtLeast:
		return int64(s.Level) >= c.Threshold
	case CriteriaXPAtLeast:
		return s.XP >= c.Threshold
	case CriteriaStreakAtLeast:
		return int64(s.Streak) >= c.Threshold
	case CriteriaCoursesCompleted:
		return s.CoursesCompleted >= c.Threshold
	case CriteriaAllOf:
		if len(c.Conditions) == 0 {
			return false
		}
		for _, sub := range c.Conditions {
			if !sub.Evaluate(s) {
				return false
			}
		}
		return true
	case CriteriaAnyOf:
		for _, sub := range c.Conditions {
			if sub.Evaluate(s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// AffectedBy reports whether an event of the given trigger can change the
// outcome of Evaluate. Level and XP move on every trigger; streaks move on
// quiz and course events.
func (c Criteria) AffectedBy(t Trigger) bool {
	switch c.Kind {
	case CriteriaQuizzesCompleted, CriteriaPerfectQuizzes, CriteriaQuizScoreAtLeast:
		return t == TriggerQuiz
	case CriteriaCoursesCompleted:
		return t == TriggerCourse
	case CriteriaStreakAtLeast:
		return t == TriggerQuiz || t == TriggerCourse
	case CriteriaLevelAtLeast, CriteriaXPAtLeast:
		return t == TriggerQuiz || t == TriggerCourse || t == TriggerManual
	case CriteriaAllOf, CriteriaAnyOf:
		for _, sub := range c.Conditions {
			if sub.AffectedBy(t) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (c Criteria) String() string {
	switch c.Kind {
	case CriteriaAllOf, CriteriaAnyOf:
		parts := make([]string, 0, len(c.Conditions))
		for _, sub := range c.Conditions {
			parts = append(parts, sub.String())
		}
		return fmt.Sprintf("%s(%s)", c.Kind, strings.Join(parts, ", "))
	case CriteriaManual:
		return string(c.Kind)
	default:
		return fmt.Sprintf("%s>=%d", c.Kind, c.Threshold)
	}
}
