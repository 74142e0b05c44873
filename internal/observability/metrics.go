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

	types "github.com/yungbote/mediahub-backend/internal/domain"
	domainmedia "github.com/yungbote/mediahub-backend/internal/domain/media"
	"github.com/yungbote/mediahub-backend/internal/platform/envutil"
	"github.com/yungbote/mediahub-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	ingest            *CounterVec
	ingestLatency     *HistogramVec
	sideEffectFailure *CounterVec
	repairs           *CounterVec
	searchLatency     *HistogramVec
	vectorOps         *HistogramVec

	degraded  *GaugeVec
	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when disabled.
// Every method is safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered Metrics. Init is the process-wide entry point.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("mh_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"mh_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("mh_api_inflight_requests", "In-flight API requests."),
		ingest:      NewCounterVec("mh_ingest_total", "Ingestion runs by outcome.", []string{"outcome"}),
		ingestLatency: NewHistogramVec(
			"mh_ingest_duration_seconds",
			"Ingestion latency in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		sideEffectFailure: NewCounterVec("mh_side_effect_failures_total", "Post-commit side effect failures by step.", []string{"step"}),
		repairs:           NewCounterVec("mh_repair_total", "Repair task outcomes by status.", []string{"status"}),
		searchLatency: NewHistogramVec(
			"mh_search_duration_seconds",
			"Search latency in seconds by kind/status.",
			[]string{"kind", "status"},
			[]float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		vectorOps: NewHistogramVec(
			"mh_vector_operation_duration_seconds",
			"Vector index operation latency by operation/status.",
			[]string{"operation", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		degraded:  NewGaugeVec("mh_media_degraded", "Media rows with an incomplete side effect, by step.", []string{"step"}),
		pgStats:   NewGaugeVec("mh_postgres_stats", "Postgres connection stats.", []string{"metric"}),
		redisUp:   NewGauge("mh_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing: NewGauge("mh_redis_ping_seconds", "Redis ping latency in seconds."),
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
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.ingest, m.ingestLatency, m.sideEffectFailure, m.repairs, m.searchLatency, m.vectorOps,
		m.degraded, m.pgStats, m.redisUp, m.redisPing,
	} {
		if err := c.WritePrometheus(w); err != nil {
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
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
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

// ObserveIngest records one ingestion run. outcome is "stored", "degraded",
// or the error code the run failed with.
func (m *Metrics) ObserveIngest(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ingest.Inc(outcome)
	m.ingestLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) IncSideEffectFailure(step string) {
	if m == nil {
		return
	}
	m.sideEffectFailure.Inc(step)
}

func (m *Metrics) ObserveRepair(status string) {
	if m == nil {
		return
	}
	m.repairs.Inc(status)
}

func (m *Metrics) ObserveSearch(kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.searchLatency.Observe(dur.Seconds(), kind, status)
}

func (m *Metrics) ObserveVectorOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.Observe(dur.Seconds(), operation, status)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go every(ctx, scrapeInterval(), func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: postgres stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
		m.pgStats.Set(float64(stats.InUse), "in_use")
		m.pgStats.Set(float64(stats.Idle), "idle")
		m.pgStats.Set(float64(stats.WaitCount), "wait_count")
		m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		<-ctx.Done()
		_ = rdb.Close()
	}()
	go every(ctx, scrapeInterval(), func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

// StartDegradedCollector samples how many media rows still wait on a
// post-commit step.
func (m *Metrics) StartDegradedCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go every(ctx, scrapeInterval(), func() {
		if err := m.sampleDegraded(ctx, db); err != nil && log != nil {
			log.Warn("metrics: degraded media query failed", "error", err)
		}
	})
}

func (m *Metrics) sampleDegraded(ctx context.Context, db *gorm.DB) error {
	for step, column := range map[string]string{"vector_insert": "vector_state", "blob_write": "blob_state"} {
		var n int64
		if err := db.WithContext(ctx).
			Model(&types.Media{}).
			Where(column+" <> ?", domainmedia.StateOK).
			Count(&n).Error; err != nil {
			return err
		}
		m.degraded.Set(float64(n), step)
	}
	return nil
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
