package gamification

import (
	"sort"

	"github.com/google/uuid"
	types "github.com/yungbote/questline-backend/internal/domain"
)

// Evaluator selects the catalog entries an event newly satisfies.
type Evaluator struct{}

// Candidates returns active achievements that are not yet unlocked, can be
// affected by the trigger and whose criteria hold for stats. Results are
// ordered by key so unlock order is deterministic.
func (Evaluator) Candidates(catalog []*types.Achievement, unlocked map[uuid.UUID]bool, stats types.Stats, trigger types.Trigger) []*types.Achievement {
	out := make([]*types.Achievement, 0)
	for _, a := range catalog {
		if a == nil || !a.Active || unlocked[a.ID] {
			continue
		}
		c := a.Criteria.Data()
		if !c.AffectedBy(trigger) {
			continue
		}
		if c.Evaluate(stats) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
