package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/platform/envutil"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter
	apiReqGood  *Counter

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec
	writeTotal         *Counter
	writeFailed        *Counter
	replays            *CounterVec
	duplicates         *CounterVec

	quizSubmissions *CounterVec
	quizScore       *HistogramVec
	xpAwarded       *CounterVec
	levelUps        *CounterVec
	unlocks         *CounterVec
	streakResets    *Counter
	cacheLookups    *CounterVec

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	sloCompliance *GaugeVec
	sloBudget     *GaugeVec
	sloBurn       *GaugeVec

	sloLatencyThreshold float64
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Duration("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second, time.Second)
}

// Init returns the process-wide registry, or nil when metrics are disabled.
// Every recording method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled", "slo_latency_threshold_seconds", instance.sloLatencyThreshold)
		}
	})
	return instance
}

// NewMetrics builds an unshared registry.
func NewMetrics() *Metrics {
	latencyThreshold := envutil.Float("SLO_API_LATENCY_THRESHOLD_SECONDS", 0.5)
	if latencyThreshold <= 0 {
		latencyThreshold = 0.5
	}
	opBuckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}
	return &Metrics{
		apiRequests: NewCounterVec("ql_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ql_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("ql_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("ql_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("ql_api_requests_error_total", "API requests answered with a 5xx status."),
		apiReqGood:  NewCounter("ql_api_requests_good_total", "API requests answered within the latency threshold."),

		aggregateOps:       NewCounterVec("ql_aggregate_operations_total", "Aggregate write operations by op/status.", []string{"op", "status"}),
		aggregateLatency:   NewHistogramVec("ql_aggregate_operation_duration_seconds", "Aggregate write latency in seconds by op/status.", []string{"op", "status"}, opBuckets),
		aggregateConflicts: NewCounterVec("ql_aggregate_conflicts_total", "Aggregate writes rejected with a conflict.", []string{"op"}),
		aggregateRetries:   NewCounterVec("ql_aggregate_retries_total", "Aggregate write attempts that failed with a retryable error.", []string{"op"}),
		writeTotal:         NewCounter("ql_progress_writes_total", "Progress writes attempted."),
		writeFailed:        NewCounter("ql_progress_writes_failed_total", "Progress writes that failed for internal or retryable reasons."),
		replays:            NewCounterVec("ql_progress_replays_total", "Progress writes answered from a prior idempotent result.", []string{"op"}),
		duplicates:         NewCounterVec("ql_progress_duplicate_grants_total", "Ledger or unlock inserts skipped because the row already existed.", []string{"kind"}),

		quizSubmissions: NewCounterVec("ql_quiz_submissions_total", "Quiz submissions by outcome.", []string{"outcome"}),
		quizScore:       NewHistogramVec("ql_quiz_score_percentage", "Quiz score percentage.", nil, []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}),
		xpAwarded:       NewCounterVec("ql_xp_awarded_total", "XP granted by ledger source.", []string{"source"}),
		levelUps:        NewCounterVec("ql_level_ups_total", "Level increases by trigger.", []string{"trigger"}),
		unlocks:         NewCounterVec("ql_achievement_unlocks_total", "Achievement unlocks by rarity.", []string{"rarity"}),
		streakResets:    NewCounter("ql_streak_resets_total", "Streaks restarted after a gap."),
		cacheLookups:    NewCounterVec("ql_cache_lookups_total", "Cache lookups by cache/result.", []string{"cache", "result"}),

		dbStats:   NewGaugeVec("ql_db_pool_stats", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("ql_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing: NewGauge("ql_redis_ping_seconds", "Redis ping latency in seconds."),

		sloCompliance: NewGaugeVec("ql_slo_compliance_ratio", "SLI over the SLO window.", []string{"slo", "window"}),
		sloBudget:     NewGaugeVec("ql_slo_error_budget_remaining_ratio", "Remaining error budget.", []string{"slo", "window"}),
		sloBurn:       NewGaugeVec("ql_slo_burn_rate", "Error budget burn rate.", []string{"slo", "window"}),

		sloLatencyThreshold: latencyThreshold,
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError, m.apiReqGood,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries, m.writeTotal, m.writeFailed, m.replays, m.duplicates,
		m.quizSubmissions, m.quizScore, m.xpAwarded, m.levelUps, m.unlocks, m.streakResets, m.cacheLookups,
		m.dbStats, m.redisUp, m.redisPing,
		m.sloCompliance, m.sloBudget, m.sloBurn,
	}
	for _, mw := range all {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
	if m.sloLatencyThreshold > 0 && dur.Seconds() <= m.sloLatencyThreshold {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op, status)
	m.writeTotal.Inc()
	if isWriteFailure(status) {
		m.writeFailed.Inc()
	}
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

func (m *Metrics) IncProgressReplay(op string) {
	if m == nil {
		return
	}
	m.replays.Inc(op)
}

// IncDuplicateGrant counts a grant skipped by a uniqueness guard. kind is an
// XP source or "unlock".
func (m *Metrics) IncDuplicateGrant(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.duplicates.Inc(kind)
}

// ObserveQuizSubmission records outcome ("scored", "retake", "replayed") and the score.
func (m *Metrics) ObserveQuizSubmission(outcome string, percentage float64) {
	if m == nil {
		return
	}
	m.quizSubmissions.Inc(outcome)
	if outcome != "replayed" {
		m.quizScore.Observe(percentage)
	}
}

func (m *Metrics) AddXPAwarded(source string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.xpAwarded.Add(float64(amount), source)
}

func (m *Metrics) IncLevelUp(trigger string) {
	if m == nil {
		return
	}
	m.levelUps.Inc(trigger)
}

func (m *Metrics) IncUnlock(rarity string) {
	if m == nil {
		return
	}
	if rarity == "" {
		rarity = "common"
	}
	m.unlocks.Inc(rarity)
}

func (m *Metrics) IncStreakReset() {
	if m == nil {
		return
	}
	m.streakResets.Inc()
}

func (m *Metrics) IncCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(cache, result)
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings the shared client on the scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func isWriteFailure(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "internal", "retryable", "failure":
		return true
	default:
		return false
	}
}
