package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.AddXPAwarded("quiz_attempt", 10)
	m.IncUnlock("rare")
	m.IncCacheLookup("quiz", true)
	m.IncProgressReplay("progress.complete_quiz")
	m.IncDuplicateGrant("unlock")
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil write: %v", err)
	}
}

func TestWritePrometheusIncludesProgressionSeries(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/quizzes/:id/attempts", "201", 20*time.Millisecond)
	m.ObserveAPI("POST", "/api/quizzes/:id/attempts", "500", 2*time.Second)
	m.AddXPAwarded("quiz_attempt", 100)
	m.AddXPAwarded("quiz_attempt", 0)
	m.IncLevelUp("quiz")
	m.IncUnlock("")
	m.ObserveQuizSubmission("scored", 85)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`ql_api_requests_total{method="POST",route="/api/quizzes/:id/attempts",status="201"} 1.000000`,
		`ql_xp_awarded_total{source="quiz_attempt"} 100.000000`,
		`ql_level_ups_total{trigger="quiz"} 1.000000`,
		`ql_achievement_unlocks_total{rarity="common"} 1.000000`,
		`ql_quiz_score_percentage_bucket{le="90"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if got := m.apiReqError.Value(); got != 1 {
		t.Fatalf("5xx counter: got=%v", got)
	}
	if got := m.apiReqGood.Value(); got != 1 {
		t.Fatalf("good counter: got=%v", got)
	}
}

func TestAggregateFailuresFeedWriteCounters(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("progress.complete_quiz", "success", time.Millisecond)
	m.ObserveAggregateOperation("progress.unlock_achievement", "conflict", time.Millisecond)
	m.ObserveAggregateOperation("progress.complete_quiz", "retryable", time.Millisecond)
	if m.writeTotal.Value() != 3 || m.writeFailed.Value() != 1 {
		t.Fatalf("writes: total=%v failed=%v", m.writeTotal.Value(), m.writeFailed.Value())
	}
	if got := m.aggregateOps.Value("progress.complete_quiz", "success"); got != 1 {
		t.Fatalf("op counter: got=%v", got)
	}
}

func TestReplayAndDuplicateCounters(t *testing.T) {
	m := NewMetrics()
	m.IncProgressReplay("progress.complete_quiz")
	m.IncProgressReplay("progress.complete_quiz")
	m.IncDuplicateGrant("")
	m.IncDuplicateGrant("achievement")
	if got := m.replays.Value("progress.complete_quiz"); got != 2 {
		t.Fatalf("replays: got=%v", got)
	}
	if got := m.duplicates.Value("unknown"); got != 1 {
		t.Fatalf("unknown kind: got=%v", got)
	}
	if got := m.duplicates.Value("achievement"); got != 1 {
		t.Fatalf("achievement kind: got=%v", got)
	}
}
