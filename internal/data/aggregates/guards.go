package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

// CASGuard writes rows that carry an integer version column. A write only
// lands when the stored version still equals the one the caller read.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) conn(dbc dbctx.Context) (*gorm.DB, error) {
	switch {
	case dbc.Tx != nil:
		return dbc.Tx.WithContext(dbc.Context()), nil
	case g.db != nil:
		return g.db.WithContext(dbc.Context()), nil
	}
	return nil, ValidationError("versioned write needs a db or transaction")
}

// UpdateByVersion applies updates and advances the version by one. It reports
// false when another writer got there first.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, version int64, updates map[string]any) (bool, error) {
	table = strings.TrimSpace(table)
	switch {
	case table == "" || id == uuid.Nil:
		return false, ValidationError("versioned write needs a table and id")
	case version < 0:
		return false, ValidationError("version must not be negative")
	case len(updates) == 0:
		return false, ValidationError("versioned write has nothing to update")
	}
	db, err := g.conn(dbc)
	if err != nil {
		return false, err
	}
	set := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		set[k] = v
	}
	set["version"] = version + 1
	res := db.Table(table).Where("id = ? AND version = ?", id, version).Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Advance is UpdateByVersion with a lost race reported as retryable, so the
// surrounding write reruns against fresh state.
func (g CASGuard) Advance(dbc dbctx.Context, table string, id uuid.UUID, version int64, updates map[string]any) error {
	ok, err := g.UpdateByVersion(dbc, table, id, version, updates)
	if err != nil {
		return err
	}
	if !ok {
		return RetryableError(fmt.Sprintf("%s %s changed concurrently", table, id))
	}
	return nil
}
