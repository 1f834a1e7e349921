package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/questline-backend/internal/platform/envutil"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

// rollingSum keeps the last len(values) samples and their sum.
type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	return &rollingSum{values: make([]float64, max(size, 1))}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx = (r.idx + 1) % len(r.values)
}

// objective is one SLO. read returns cumulative total and bad event counts;
// the evaluator turns them into per-tick deltas over the rolling window.
type objective struct {
	name   string
	target float64
	read   func(m *Metrics) (total, bad float64)

	total, bad         *rollingSum
	lastTotal, lastBad float64
}

func (o *objective) observe(m *Metrics) (total, bad float64) {
	t, b := o.read(m)
	o.total.add(counterDelta(t, o.lastTotal))
	o.bad.add(counterDelta(b, o.lastBad))
	o.lastTotal, o.lastBad = t, b
	return o.total.total, o.bad.total
}

// counterDelta treats a drop as a counter reset.
func counterDelta(cur, prev float64) float64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}

type sloStatus struct {
	SLI    float64
	Budget float64
	Burn   float64
}

// burnRate is the observed error rate divided by the rate the target allows.
// An idle window counts as fully compliant.
func burnRate(total, bad, target float64) sloStatus {
	if total <= 0 {
		return sloStatus{SLI: 1, Budget: 1}
	}
	st := sloStatus{SLI: clamp01(1 - bad/total)}
	if target < 1 {
		st.Burn = (1 - st.SLI) / (1 - target)
	}
	st.Budget = clamp01(1 - st.Burn)
	return st
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func progressionObjectives(size int) []*objective {
	defs := []struct {
		name   string
		env    string
		target float64
		read   func(m *Metrics) (float64, float64)
	}{
		{"api_availability", "SLO_API_AVAIL_TARGET", 0.995, func(m *Metrics) (float64, float64) {
			return m.apiReqTotal.Value(), m.apiReqError.Value()
		}},
		{"api_latency", "SLO_API_LATENCY_TARGET", 0.95, func(m *Metrics) (float64, float64) {
			total := m.apiReqTotal.Value()
			return total, total - m.apiReqGood.Value()
		}},
		{"progress_write_success", "SLO_PROGRESS_WRITE_TARGET", 0.999, func(m *Metrics) (float64, float64) {
			return m.writeTotal.Value(), m.writeFailed.Value()
		}},
	}
	out := make([]*objective, 0, len(defs))
	for _, d := range defs {
		out = append(out, &objective{
			name:   d.name,
			target: clamp01(envutil.Float(d.env, d.target)),
			read:   d.read,
			total:  newRollingSum(size),
			bad:    newRollingSum(size),
		})
	}
	return out
}

// SLOEvaluator publishes compliance, remaining budget and burn rate for each
// objective on every tick, and posts to a webhook when burn crosses a threshold.
type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	interval    time.Duration
	windowLabel string
	objectives  []*objective
	alerts      *burnAlerter
}

func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger) {
	if m == nil || !envutil.Bool("SLO_ENABLED", false) {
		return
	}
	if log == nil {
		log = logger.Nop()
	}
	e := newSLOEvaluator(m, log)
	go e.run(ctx)
	log.Info("SLO evaluator started", "window", e.windowLabel, "interval", e.interval.String())
}

func newSLOEvaluator(m *Metrics, log *logger.Logger) *SLOEvaluator {
	interval := envutil.Duration("SLO_EVAL_INTERVAL_SECONDS", time.Minute, time.Second)
	if interval <= 0 {
		interval = time.Minute
	}
	window := time.Duration(envutil.Float("SLO_WINDOW_HOURS", 720) * float64(time.Hour))
	if window < time.Hour {
		window = 24 * time.Hour
	}
	return &SLOEvaluator{
		metrics:     m,
		log:         log,
		interval:    interval,
		windowLabel: windowLabel(window),
		objectives:  progressionObjectives(int(window / interval)),
		alerts:      newBurnAlerter(),
	}
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *SLOEvaluator) tick(ctx context.Context) {
	for _, o := range e.objectives {
		total, bad := o.observe(e.metrics)
		st := burnRate(total, bad, o.target)
		e.publish(o.name, st)
		if e.alerts != nil {
			e.alerts.maybeSend(ctx, e.log, o.name, e.windowLabel, o.target, st)
		}
	}
}

func (e *SLOEvaluator) publish(name string, st sloStatus) {
	e.metrics.sloCompliance.Set(st.SLI, name, e.windowLabel)
	e.metrics.sloBudget.Set(st.Budget, name, e.windowLabel)
	e.metrics.sloBurn.Set(st.Burn, name, e.windowLabel)
}

func windowLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return fmt.Sprintf("%dm", d/time.Minute)
}

// burnAlerter posts at most one alert per objective and severity within gap.
type burnAlerter struct {
	webhook string
	owner   string
	runbook string
	warn    float64
	crit    float64
	gap     time.Duration
	client  *http.Client
	now     func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// newBurnAlerter returns nil unless both a webhook and an owner are configured.
func newBurnAlerter() *burnAlerter {
	a := &burnAlerter{
		webhook: envutil.String("SLO_ALERT_WEBHOOK_URL", ""),
		owner:   envutil.String("SLO_ALERT_OWNER", ""),
		runbook: envutil.String("SLO_ALERT_RUNBOOK_URL", ""),
		warn:    envutil.Float("SLO_ALERT_BURN_RATE_WARN", 2),
		crit:    envutil.Float("SLO_ALERT_BURN_RATE_CRIT", 10),
		gap:     envutil.Duration("SLO_ALERT_MIN_INTERVAL_SECONDS", 15*time.Minute, time.Second),
		client:  &http.Client{Timeout: 5 * time.Second},
		now:     time.Now,
		sent:    map[string]time.Time{},
	}
	if a.webhook == "" || a.owner == "" {
		return nil
	}
	return a
}

func (a *burnAlerter) severity(burn float64) string {
	switch {
	case burn >= a.crit:
		return "critical"
	case burn >= a.warn:
		return "warning"
	}
	return ""
}

// claim reports whether an alert for key may be sent now and records it.
func (a *burnAlerter) claim(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	if last, ok := a.sent[key]; ok && now.Sub(last) < a.gap {
		return false
	}
	a.sent[key] = now
	return true
}

type burnAlert struct {
	Title           string  `json:"title"`
	Severity        string  `json:"severity"`
	Owner           string  `json:"owner"`
	SLO             string  `json:"slo"`
	Window          string  `json:"window"`
	SLI             float64 `json:"sli"`
	Target          float64 `json:"target"`
	BurnRate        float64 `json:"burn_rate"`
	BudgetRemaining float64 `json:"error_budget_remaining"`
	Runbook         string  `json:"runbook,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

func (a *burnAlerter) maybeSend(ctx context.Context, log *logger.Logger, slo, window string, target float64, st sloStatus) {
	sev := a.severity(st.Burn)
	if sev == "" || !a.claim(slo+":"+sev) {
		return
	}
	body, err := json.Marshal(burnAlert{
		Title:           "SLO burn rate alert",
		Severity:        sev,
		Owner:           a.owner,
		SLO:             slo,
		Window:          window,
		SLI:             st.SLI,
		Target:          target,
		BurnRate:        st.Burn,
		BudgetRemaining: st.Budget,
		Runbook:         a.runbook,
		Timestamp:       a.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn("slo alert encode failed", "slo", slo, "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhook, bytes.NewReader(body))
	if err != nil {
		log.Warn("slo alert request invalid", "slo", slo, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		log.Warn("slo alert post failed", "slo", slo, "error", err)
		return
	}
	_ = resp.Body.Close()
	log.Info("slo alert sent", "slo", slo, "severity", sev, "status", resp.StatusCode)
}
