package gamification

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type AchievementRepo interface {
	GetByID(dbc dbctx.Context, achievementID uuid.UUID) (*types.Achievement, error)
	ListActive(dbc dbctx.Context) ([]*types.Achievement, error)
	ListAll(dbc dbctx.Context) ([]*types.Achievement, error)
	// UpsertByKey inserts or updates catalog entries keyed by their slug.
	UpsertByKey(dbc dbctx.Context, rows []*types.Achievement) ([]*types.Achievement, error)
}

type achievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) AchievementRepo {
	return &achievementRepo{db: db, log: baseLog.With("repo", "AchievementRepo")}
}

func (r *achievementRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *achievementRepo) GetByID(dbc dbctx.Context, achievementID uuid.UUID) (*types.Achievement, error) {
	if achievementID == uuid.Nil {
		return nil, nil
	}
	var a types.Achievement
	err := r.dbx(dbc).Where("id = ?", achievementID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *achievementRepo) ListActive(dbc dbctx.Context) ([]*types.Achievement, error) {
	out := []*types.Achievement{}
	if err := r.dbx(dbc).Where("active = ?", true).Order("achievement_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *achievementRepo) ListAll(dbc dbctx.Context) ([]*types.Achievement, error) {
	out := []*types.Achievement{}
	if err := r.dbx(dbc).Order("category ASC").Order("achievement_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *achievementRepo) UpsertByKey(dbc dbctx.Context, rows []*types.Achievement) ([]*types.Achievement, error) {
	if len(rows) == 0 {
		return []*types.Achievement{}, nil
	}
	now := time.Now().UTC()
	for _, a := range rows {
		if a == nil {
			continue
		}
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.Key = strings.TrimSpace(a.Key)
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
	}
	t := r.dbx(dbc)
	if err := t.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "achievement_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "category", "rarity", "criteria", "xp_reward", "active", "updated_at",
		}),
	}).Create(&rows).Error; err != nil {
		return nil, err
	}
	// Rows that already existed keep their original id; reload so callers see it.
	keys := make([]string, 0, len(rows))
	for _, a := range rows {
		if a != nil {
			keys = append(keys, a.Key)
		}
	}
	out := []*types.Achievement{}
	if err := t.Where("achievement_key IN ?", keys).Order("achievement_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
