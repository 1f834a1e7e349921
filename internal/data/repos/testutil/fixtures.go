package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/questline-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Learner",
		Level:       1,
		Hearts:      5,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedUserWithXP seeds a user whose cached XP is backed by a single ledger
// entry so the ledger invariant holds from the start.
func SeedUserWithXP(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, xp int64, level int) *types.User {
	tb.Helper()
	u := &types.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: "Learner",
		XP:          xp,
		Level:       level,
		Hearts:      5,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	if xp > 0 {
		entry := &types.XPLedgerEntry{
			ID:         uuid.New(),
			UserID:     u.ID,
			SourceType: types.XPSourceCourseProgress,
			SourceKey:  "seed",
			Amount:     xp,
		}
		if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
			tb.Fatalf("seed ledger: %v", err)
		}
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, completionXP int) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:           uuid.New(),
		Title:        "Course",
		LessonCount:  10,
		CompletionXP: completionXP,
		Published:    true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

// SeedQuiz creates a published quiz whose i-th question has correct index
// correct[i] and one point per question unless points overrides it.
func SeedQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, xpReward int, allowRetake bool, correct []int, points ...int) *types.Quiz {
	tb.Helper()
	q := &types.Quiz{
		ID:          uuid.New(),
		Title:       "Quiz",
		XPReward:    xpReward,
		AllowRetake: allowRetake,
		Published:   true,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	for i, c := range correct {
		pts := 1
		if i < len(points) {
			pts = points[i]
		}
		qq := types.QuizQuestion{
			ID:           uuid.New(),
			QuizID:       q.ID,
			Index:        i,
			Prompt:       fmt.Sprintf("question %d", i+1),
			Options:      datatypes.NewJSONSlice([]string{"a", "b", "c", "d"}),
			CorrectIndex: c,
			Points:       pts,
			Explanation:  "because",
		}
		if err := tx.WithContext(ctx).Create(&qq).Error; err != nil {
			tb.Fatalf("seed quiz question: %v", err)
		}
		q.Questions = append(q.Questions, qq)
	}
	return q
}

// SeedCourseQuiz seeds a published quiz that belongs to courseID.
func SeedCourseQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, correct []int) *types.Quiz {
	tb.Helper()
	q := SeedQuiz(tb, ctx, tx, 100, true, correct)
	if err := tx.WithContext(ctx).Model(&types.Quiz{}).Where("id = ?", q.ID).Update("course_id", courseID).Error; err != nil {
		tb.Fatalf("attach quiz to course: %v", err)
	}
	q.CourseID = &courseID
	return q
}

func SeedAchievement(tb testing.TB, ctx context.Context, tx *gorm.DB, key string, xpReward int, criteria types.Criteria) *types.Achievement {
	tb.Helper()
	a := &types.Achievement{
		ID:       uuid.New(),
		Key:      key,
		Title:    key,
		Category: "test",
		Rarity:   types.RarityCommon,
		Criteria: datatypes.NewJSONType(criteria),
		XPReward: xpReward,
		Active:   true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed achievement: %v", err)
	}
	return a
}

// Email returns an address unique to this run so shared databases never collide.
func Email(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}
