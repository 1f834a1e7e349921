package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/yungbote/questline-backend/internal/domain/aggregates"
	"github.com/yungbote/questline-backend/internal/platform/dbctx"
	"github.com/yungbote/questline-backend/internal/platform/logger"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 15 * time.Millisecond
)

// RetryPolicy bounds how often a write is re-run after a retryable failure
// (serialization failure, deadlock, busy database, lost version race).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Retry    RetryPolicy
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Retry.MaxAttempts <= 0 {
		d.Retry.MaxAttempts = defaultMaxAttempts
	}
	if d.Retry.Backoff < 0 {
		d.Retry.Backoff = 0
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var mapped error
	for attempt := 1; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			break
		}
		deps.Hooks.IncRetry(op)
		if attempt >= deps.Retry.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Log.Debug("retrying aggregate write", "op", op, "attempt", attempt+1, "error", mapped)
		if !sleepCtx(ctx, backoffFor(deps.Retry, attempt)) {
			break
		}
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func backoffFor(p RetryPolicy, attempt int) time.Duration {
	base := p.Backoff
	if base == 0 {
		base = defaultRetryDelay
	}
	return time.Duration(attempt) * base
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
