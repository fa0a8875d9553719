package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. Sheet-facing
// counters matter most here: the upstream store has a hard request quota,
// so write volume is the first thing to check when mutations start failing.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sheetReads      *prometheus.HistogramVec
	sheetWriteCells prometheus.Counter
	sheetWriteCalls *prometheus.CounterVec
	snapshotAge     prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sheetReads := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheet_read_duration_seconds",
		Help:    "Duration of full grid reads against the upstream store",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	sheetWriteCells := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sheet_write_cells_total",
		Help: "Total number of cells written upstream",
	})

	sheetWriteCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheet_write_calls_total",
		Help: "Total write calls against the upstream store",
	}, []string{"kind", "outcome"})

	snapshotAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_age_seconds",
		Help: "Seconds since the record snapshot was last refreshed",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sheetReads, sheetWriteCells, sheetWriteCalls, snapshotAge, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sheetReads:      sheetReads,
		sheetWriteCells: sheetWriteCells,
		sheetWriteCalls: sheetWriteCalls,
		snapshotAge:     snapshotAge,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSheetRead records one full grid read.
func (m *MetricsService) ObserveSheetRead(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.sheetReads.WithLabelValues(outcomeLabel(err)).Observe(duration.Seconds())
	if err == nil {
		m.snapshotAge.Set(0)
	}
}

// ObserveSheetWrite records one write call and the cells it carried.
func (m *MetricsService) ObserveSheetWrite(kind string, cells int, err error) {
	if m == nil {
		return
	}
	m.sheetWriteCalls.WithLabelValues(kind, outcomeLabel(err)).Inc()
	if err == nil && cells > 0 {
		m.sheetWriteCells.Add(float64(cells))
	}
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// SetSnapshotAge publishes the age of the in-cache snapshot.
func (m *MetricsService) SetSnapshotAge(age time.Duration) {
	if m == nil {
		return
	}
	m.snapshotAge.Set(age.Seconds())
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
