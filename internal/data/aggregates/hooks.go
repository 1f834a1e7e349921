package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/questline-backend/internal/observability"
)

// Hooks receives write-path signals from the progress aggregate. Duplicate
// signals fire inside the transaction, so a retried write may report the same
// skip more than once.
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
	IncReplay(op string)
	IncDuplicate(kind string)
}

// DuplicateUnlock is the kind reported when an unlock row already existed.
const DuplicateUnlock = "unlock"

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncReplay(string)                               {}
func (noopHooks) IncDuplicate(string)                            {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks reports aggregate signals to m. A nil registry yields
// hooks that drop everything.
func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(strings.TrimSpace(op), strings.TrimSpace(status), dur)
}

func (h metricsHooks) IncConflict(op string) { h.m.IncAggregateConflict(strings.TrimSpace(op)) }
func (h metricsHooks) IncRetry(op string)    { h.m.IncAggregateRetry(strings.TrimSpace(op)) }
func (h metricsHooks) IncReplay(op string)   { h.m.IncProgressReplay(strings.TrimSpace(op)) }

func (h metricsHooks) IncDuplicate(kind string) {
	h.m.IncDuplicateGrant(strings.TrimSpace(kind))
}
