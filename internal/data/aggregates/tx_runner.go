package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

// TxRunner runs one attempt of a progress write. executeWrite owns retries,
// so implementations must not loop.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return gormTxRunner{db: db}
}

func (r gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "progress.tx", "no database configured for progress writes", nil)
	}
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
