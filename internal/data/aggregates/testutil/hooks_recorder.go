package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/questline-backend/internal/data/aggregates"
)

// HooksRecorder keeps every aggregate signal so tests can assert on retries,
// replays and skipped grants. Safe for concurrent writers.
type HooksRecorder struct {
	mu sync.Mutex

	Operations []Operation
	Conflicts  []string
	Retries    []string
	Replays    []string
	Duplicates []string
}

type Operation struct {
	Op       string
	Status   string
	Duration time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(op, status string, dur time.Duration) {
	h.mu.Lock()
	h.Operations = append(h.Operations, Operation{Op: op, Status: status, Duration: dur})
	h.mu.Unlock()
}

func (h *HooksRecorder) IncConflict(op string)    { h.add(&h.Conflicts, op) }
func (h *HooksRecorder) IncRetry(op string)       { h.add(&h.Retries, op) }
func (h *HooksRecorder) IncReplay(op string)      { h.add(&h.Replays, op) }
func (h *HooksRecorder) IncDuplicate(kind string) { h.add(&h.Duplicates, kind) }

// Statuses returns the recorded statuses for op in call order.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, o := range h.Operations {
		if o.Op == op {
			out = append(out, o.Status)
		}
	}
	return out
}

func (h *HooksRecorder) add(dst *[]string, v string) {
	h.mu.Lock()
	*dst = append(*dst, v)
	h.mu.Unlock()
}
