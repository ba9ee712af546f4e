package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/enrichment-backend/internal/platform/envutil"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// Metrics is the process-wide registry served in Prometheus text format.
// Every method is safe on a nil receiver so callers never branch on
// whether metrics are enabled.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	claims        *CounterVec
	claimLatency  *HistogramVec
	completions   *CounterVec
	reconciled    *CounterVec
	notifications *CounterVec
	lockErrors    *CounterVec

	queueDepth *GaugeVec
	pgStats    *GaugeVec
	redisUp    *Gauge
	redisPing  *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return time.Duration(envutil.PositiveInt("METRICS_SCRAPE_INTERVAL_SECONDS", 10)) * time.Second
}

// Init builds the registry once. It returns nil when metrics are disabled.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics registry initialized")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("enr_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"enr_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("enr_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("enr_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("enr_api_requests_5xx_total", "Total API requests answered with 5xx."),

		claims: NewCounterVec("enr_claims_total", "Claim attempts by stage and result.", []string{"stage", "result"}),
		claimLatency: NewHistogramVec(
			"enr_claim_duration_seconds",
			"Claim latency in seconds by stage.",
			[]string{"stage"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		completions:   NewCounterVec("enr_completions_total", "Stage completions by stage, reported outcome and result.", []string{"stage", "outcome", "result"}),
		reconciled:    NewCounterVec("enr_reconciler_failures_total", "Jobs failed by the reconciler by reason.", []string{"reason"}),
		notifications: NewCounterVec("enr_notifications_total", "Webhook deliveries by recorded status code.", []string{"code"}),
		lockErrors:    NewCounterVec("enr_lock_errors_total", "Lock service errors by operation.", []string{"op"}),

		queueDepth: NewGaugeVec("enr_enrichments_by_status", "Enrichments per status.", []string{"status"}),
		pgStats:    NewGaugeVec("enr_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:    NewGauge("enr_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:  NewGauge("enr_redis_ping_seconds", "Redis ping latency in seconds."),
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

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	families := []family{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.claims, m.claimLatency, m.completions, m.reconciled, m.notifications, m.lockErrors,
		m.queueDepth, m.pgStats, m.redisUp, m.redisPing,
	}
	for _, f := range families {
		if err := f.WritePrometheus(w); err != nil {
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

// Claim results.
const (
	ClaimClaimed   = "claimed"
	ClaimEmpty     = "empty"
	ClaimContended = "contended"
	ClaimError     = "error"
)

func (m *Metrics) ObserveClaim(stage, result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.claims.Inc(stage, result)
	m.claimLatency.Observe(dur.Seconds(), stage)
}

func (m *Metrics) IncCompletion(stage, outcome, result string) {
	if m == nil {
		return
	}
	m.completions.Inc(stage, outcome, result)
}

func (m *Metrics) IncReconcilerFailure(reason string) {
	if m == nil {
		return
	}
	m.reconciled.Inc(reason)
}

func (m *Metrics) IncNotification(code int) {
	if m == nil {
		return
	}
	m.notifications.Inc(strconv.Itoa(code))
}

func (m *Metrics) IncLockError(op string) {
	if m == nil {
		return
	}
	m.lockErrors.Inc(op)
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}
