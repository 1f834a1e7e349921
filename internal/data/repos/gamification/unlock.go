package gamification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type UnlockRepo interface {
	// CreateIfAbsent inserts the unlock unless (user, achievement) already
	// exists. It reports false, with no error, when the row was already there.
	CreateIfAbsent(dbc dbctx.Context, row *types.UserAchievementUnlock) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAchievementUnlock, error)
	UnlockedSet(dbc dbctx.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
}

type unlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnlockRepo(db *gorm.DB, baseLog *logger.Logger) UnlockRepo {
	return &unlockRepo{db: db, log: baseLog.With("repo", "UnlockRepo")}
}

func (r *unlockRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *unlockRepo) CreateIfAbsent(dbc dbctx.Context, row *types.UserAchievementUnlock) (bool, error) {
	if row == nil || row.UserID == uuid.Nil || row.AchievementID == uuid.Nil {
		return false, nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UnlockedAt.IsZero() {
		row.UnlockedAt = time.Now().UTC()
	}
	res := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *unlockRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserAchievementUnlock, error) {
	out := []*types.UserAchievementUnlock{}
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.dbx(dbc).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *unlockRepo) UnlockedSet(dbc dbctx.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	out := map[uuid.UUID]bool{}
	if userID == uuid.Nil {
		return out, nil
	}
	var ids []uuid.UUID
	if err := r.dbx(dbc).Model(&types.UserAchievementUnlock{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *unlockRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	if userID == uuid.Nil {
		return 0, nil
	}
	err := r.dbx(dbc).Model(&types.UserAchievementUnlock{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
