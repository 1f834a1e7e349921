package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type CourseProgressRepo interface {
	GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error)
	// Upsert writes the row keyed by (user_id, course_id).
	Upsert(dbc dbctx.Context, row *types.CourseProgress) (*types.CourseProgress, error)
	CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CourseProgress, error)
}

type courseProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseProgressRepo(db *gorm.DB, baseLog *logger.Logger) CourseProgressRepo {
	return &courseProgressRepo{db: db, log: baseLog.With("repo", "CourseProgressRepo")}
}

func (r *courseProgressRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *courseProgressRepo) GetByUserAndCourse(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.CourseProgress, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.CourseProgress
	err := r.dbx(dbc).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *courseProgressRepo) Upsert(dbc dbctx.Context, row *types.CourseProgress) (*types.CourseProgress, error) {
	if row == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.LastAccessedAt.IsZero() {
		row.LastAccessedAt = now
	}
	row.UpdatedAt = now
	err := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progress",
			"completed_lessons",
			"last_accessed_at",
			"completed_at",
			"updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *courseProgressRepo) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	err := r.dbx(dbc).Model(&types.CourseProgress{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Count(&n).Error
	return n, err
}

func (r *courseProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.CourseProgress, error) {
	out := []*types.CourseProgress{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("user_id = ?", userID).
		Order("last_accessed_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
