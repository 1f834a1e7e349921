package aggregates

import "slices"

// Write operation labels. They appear in logs, metric labels and error ops.
const (
	OpCompleteQuiz         = "progress.complete_quiz"
	OpRecordCourseProgress = "progress.record_course_progress"
	OpUnlockAchievement    = "progress.unlock_achievement"
	OpReconcileXP          = "progress.reconcile_xp"
)

// Contract lists the writes an aggregate performs and which of them accept an
// idempotency key. Each write runs in one transaction owned by the aggregate.
type Contract struct {
	Name       string
	Ops        []string
	Idempotent []string
	Tables     []string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) Owns(op string) bool {
	return slices.Contains(c.Ops, op)
}

// Replayable reports whether a repeated call with the same key returns the
// first result instead of writing again.
func (c Contract) Replayable(op string) bool {
	return slices.Contains(c.Idempotent, op)
}
