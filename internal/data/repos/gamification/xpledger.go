package gamification

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type XPLedgerRepo interface {
	// Append records a grant. A duplicate (user, source type, source key) is
	// ignored and reported as false.
	Append(dbc dbctx.Context, entry *types.XPLedgerEntry) (bool, error)
	Exists(dbc dbctx.Context, userID uuid.UUID, source types.XPSource, sourceKey string) (bool, error)
	SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.XPLedgerEntry, error)
}

type xpLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewXPLedgerRepo(db *gorm.DB, baseLog *logger.Logger) XPLedgerRepo {
	return &xpLedgerRepo{db: db, log: baseLog.With("repo", "XPLedgerRepo")}
}

func (r *xpLedgerRepo) dbx(dbc dbctx.Context) *gorm.DB {
	return dbc.Pick(r.db)
}

func (r *xpLedgerRepo) Append(dbc dbctx.Context, entry *types.XPLedgerEntry) (bool, error) {
	if entry == nil || entry.UserID == uuid.Nil {
		return false, nil
	}
	entry.SourceKey = strings.TrimSpace(entry.SourceKey)
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Amount < 0 {
		entry.Amount = 0
	}
	entry.CreatedAt = time.Now().UTC()
	res := r.dbx(dbc).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "source_type"}, {Name: "source_key"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *xpLedgerRepo) Exists(dbc dbctx.Context, userID uuid.UUID, source types.XPSource, sourceKey string) (bool, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if userID == uuid.Nil || sourceKey == "" {
		return false, nil
	}
	var n int64
	err := r.dbx(dbc).Model(&types.XPLedgerEntry{}).
		Where("user_id = ? AND source_type = ? AND source_key = ?", userID, source, sourceKey).
		Count(&n).Error
	return n > 0, err
}

func (r *xpLedgerRepo) SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, nil
	}
	var sum int64
	err := r.dbx(dbc).Model(&types.XPLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *xpLedgerRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.XPLedgerEntry, error) {
	out := []*types.XPLedgerEntry{}
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	if err := r.dbx(dbc).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
