package learning

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type QuizAttemptRepo interface {
	Create(dbc dbctx.Context, attempt *types.QuizAttempt) (*types.QuizAttempt, error)
	GetByIdempotencyKey(dbc dbctx.Context, userID uuid.UUID, key string) (*types.QuizAttempt, error)
	CountCompleted(dbc dbctx.Context, userID, quizID uuid.UUID) (int64, error)
	// CountDistinctQuizzes counts quizzes the user has completed at least once.
	CountDistinctQuizzes(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	// CountDistinctPerfect counts quizzes the user has completed with full marks.
	CountDistinctPerfect(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, quizID *uuid.UUID, limit int) ([]*types.QuizAttempt, error)
	// CourseMastery averages the user's best percentage over the course's
	// published quizzes, floored to 0..100. Unattempted quizzes count as 0
	// and a course without quizzes is fully mastered.
	CourseMastery(dbc dbctx.Context, userID, courseID uuid.UUID) (int, error)
}

type quizAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return &quizAttemptRepo{db: db, log: baseLog.With("repo", "QuizAttemptRepo")}
}

func (r *quizAttemptRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *quizAttemptRepo) Create(dbc dbctx.Context, attempt *types.QuizAttempt) (*types.QuizAttempt, error) {
	if attempt == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = now
	}
	if attempt.Answers == nil {
		attempt.Answers = []int{}
	}
	if attempt.Correct == nil {
		attempt.Correct = []bool{}
	}
	if attempt.IdempotencyKey != nil && strings.TrimSpace(*attempt.IdempotencyKey) == "" {
		attempt.IdempotencyKey = nil
	}
	attempt.CreatedAt = now
	if err := r.dbx(dbc).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *quizAttemptRepo) GetByIdempotencyKey(dbc dbctx.Context, userID uuid.UUID, key string) (*types.QuizAttempt, error) {
	key = strings.TrimSpace(key)
	if userID == uuid.Nil || key == "" {
		return nil, nil
	}
	var a types.QuizAttempt
	err := r.dbx(dbc).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *quizAttemptRepo) CountCompleted(dbc dbctx.Context, userID, quizID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil || quizID == uuid.Nil {
		return 0, nil
	}
	err := r.dbx(dbc).Model(&types.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND completed = ?", userID, quizID, true).
		Count(&n).Error
	return n, err
}

func (r *quizAttemptRepo) CountDistinctQuizzes(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	err := r.dbx(dbc).Model(&types.QuizAttempt{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Distinct("quiz_id").
		Count(&n).Error
	return n, err
}

func (r *quizAttemptRepo) CountDistinctPerfect(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	err := r.dbx(dbc).Model(&types.QuizAttempt{}).
		Where("user_id = ? AND completed = ? AND max_score > 0 AND score = max_score", userID, true).
		Distinct("quiz_id").
		Count(&n).Error
	return n, err
}

func (r *quizAttemptRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, quizID *uuid.UUID, limit int) ([]*types.QuizAttempt, error) {
	out := []*types.QuizAttempt{}
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	q := r.dbx(dbc).Where("user_id = ?", userID)
	if quizID != nil && *quizID != uuid.Nil {
		q = q.Where("quiz_id = ?", *quizID)
	}
	if err := q.Order("completed_at DESC").Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *quizAttemptRepo) CourseMastery(dbc dbctx.Context, userID, courseID uuid.UUID) (int, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return 0, nil
	}
	var quizzes int64
	if err := r.dbx(dbc).Model(&types.Quiz{}).
		Where("course_id = ? AND published = ?", courseID, true).
		Count(&quizzes).Error; err != nil {
		return 0, err
	}
	if quizzes == 0 {
		return 100, nil
	}
	best := r.dbx(dbc).Model(&types.QuizAttempt{}).
		Select("MAX(quiz_attempt.percentage) AS best").
		Joins("JOIN quiz ON quiz.id = quiz_attempt.quiz_id AND quiz.deleted_at IS NULL").
		Where("quiz_attempt.user_id = ? AND quiz_attempt.completed = ?", userID, true).
		Where("quiz.course_id = ? AND quiz.published = ?", courseID, true).
		Group("quiz_attempt.quiz_id")
	var sum float64
	if err := r.dbx(dbc).Table("(?) AS b", best).Select("COALESCE(SUM(b.best), 0)").Row().Scan(&sum); err != nil {
		return 0, err
	}
	mastery := int(math.Floor(sum / float64(quizzes)))
	if mastery > 100 {
		mastery = 100
	}
	return mastery, nil
}
