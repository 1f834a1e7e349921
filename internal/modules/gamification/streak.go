package gamification

import "time"

type StreakState struct {
	Length       int
	LastActiveAt *time.Time
}

type StreakResult struct {
	Length       int
	LastActiveAt time.Time
	Incremented  bool
	Reset        bool
}

// StreakTracker counts consecutive activity. It has no deduplication key:
// callers invoke RecordActivity at most once per logical event.
type StreakTracker struct {
	Window time.Duration
}

func (t StreakTracker) window() time.Duration {
	if t.Window <= 0 {
		return DefaultStreakWindow
	}
	return t.Window
}

// RecordActivity applies one activity at now.
//
//   - no previous activity: the streak starts at 1
//   - within the window: the streak grows by one
//   - past the window with maintained set: the streak restarts at 1
//   - past the window otherwise: the streak is left as is
//
// LastActiveAt always moves to now.
func (t StreakTracker) RecordActivity(s StreakState, now time.Time, maintained bool) StreakResult {
	out := StreakResult{Length: s.Length, LastActiveAt: now}
	if s.LastActiveAt == nil {
		out.Length = 1
		out.Incremented = true
		return out
	}
	elapsed := now.Sub(*s.LastActiveAt)
	switch {
	case elapsed <= t.window():
		out.Length = s.Length + 1
		out.Incremented = true
	case maintained:
		out.Length = 1
		out.Reset = true
	}
	return out
}
