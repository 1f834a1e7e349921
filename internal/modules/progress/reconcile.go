package progress

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/questline-backend/internal/domain"
	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
)

type ReconcileOutput struct {
	UserID   uuid.UUID `json:"user_id"`
	StoredXP int64     `json:"stored_xp"`
	LedgerXP int64     `json:"ledger_xp"`
	Drift    int64     `json:"drift"`
	Level    int       `json:"level"`
	Repaired bool      `json:"repaired"`
}

// ReconcileUser recomputes cached XP from the ledger and repairs any drift.
func (u Usecases) ReconcileUser(ctx context.Context, userID uuid.UUID) (out ReconcileOutput, err error) {
	ctx, span := startSpan(ctx, "ReconcileUser", userID)
	defer func() { endSpan(span, err) }()

	if userID == uuid.Nil {
		return out, domainagg.Sentinel(domainagg.CodeUnauthenticated, "progress.ReconcileUser", domainagg.ErrAuthenticationRequired)
	}
	res, err := u.deps.Aggregate.ReconcileXP(ctx, domainagg.ReconcileXPInput{UserID: userID})
	if err != nil {
		return out, err
	}
	out = ReconcileOutput{
		UserID:   userID,
		StoredXP: res.StoredXP,
		LedgerXP: res.LedgerXP,
		Drift:    res.Drift,
		Level:    res.Level.NewLevel,
		Repaired: res.Repaired,
	}
	if res.User != nil {
		out.Level = res.User.Level
	}
	// the sorted set is refreshed even without drift so a cold redis gets rebuilt
	u.afterCommit(ctx, res.User, types.TriggerQuiz, res.Level, nil)
	return out, nil
}

type ReconcileSummary struct {
	Users    int   `json:"users"`
	Repaired int   `json:"repaired"`
	Drift    int64 `json:"drift"`
	Failed   int   `json:"failed"`
}

// ReconcileAll walks every user in id order. Per-user failures are logged and
// counted; only a failure to page through users aborts the run.
func (u Usecases) ReconcileAll(ctx context.Context, batchSize int) (ReconcileSummary, error) {
	var sum ReconcileSummary
	if batchSize <= 0 {
		batchSize = 500
	}
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ids, err := u.deps.Users.ListIDs(dbctx.Context{Ctx: ctx}, after, batchSize)
		if err != nil {
			return sum, domainagg.Wrap(domainagg.CodeInternal, "progress.ReconcileAll", err)
		}
		if len(ids) == 0 {
			return sum, nil
		}
		for _, id := range ids {
			res, err := u.ReconcileUser(ctx, id)
			sum.Users++
			if err != nil {
				sum.Failed++
				u.deps.Log.Warn("reconcile user failed", "user_id", id, "error", err)
				continue
			}
			if res.Repaired {
				sum.Repaired++
				sum.Drift += res.Drift
			}
		}
		after = ids[len(ids)-1]
		if len(ids) < batchSize {
			return sum, nil
		}
	}
}
