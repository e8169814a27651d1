package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты вызова Content API для меток
const (
	ResultOK             = "ok"
	ResultRemoteError    = "remote_error"
	ResultTransportError = "transport_error"
)

// SyncMetrics метрики синхронизации с Google Merchant
type SyncMetrics struct {
	remoteCalls    *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	tokenRefreshes *prometheus.CounterVec
	syncOutcomes   *prometheus.CounterVec
	lockConflicts  prometheus.Counter
}

// NewSyncMetrics регистрирует метрики синхронизации в reg
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		remoteCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "google_content_api_calls_total",
			Help: "Количество вызовов Content API",
		}, []string{"operation", "result"}),
		remoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "google_content_api_call_duration_seconds",
			Help:    "Длительность вызовов Content API",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		tokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "google_oauth_refreshes_total",
			Help: "Количество попыток обновления access token",
		}, []string{"result"}),
		syncOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "google_product_sync_outcomes_total",
			Help: "Результаты синхронизации товаров",
		}, []string{"operation", "status"}),
		lockConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "google_product_lock_conflicts_total",
			Help: "Количество команд, пропущенных из-за блокировки записи",
		}),
	}
}

// ObserveRemoteCall учитывает один вызов Content API
func (m *SyncMetrics) ObserveRemoteCall(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(operation, result).Inc()
	m.remoteDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveTokenRefresh учитывает попытку обновления токена
func (m *SyncMetrics) ObserveTokenRefresh(success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "ok"
	}
	m.tokenRefreshes.WithLabelValues(result).Inc()
}

// ObserveOutcome учитывает итог синхронизации
func (m *SyncMetrics) ObserveOutcome(operation, status string) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(operation, status).Inc()
}

// ObserveLockConflict учитывает команду, не получившую блокировку записи
func (m *SyncMetrics) ObserveLockConflict() {
	if m == nil {
		return
	}
	m.lockConflicts.Inc()
}

// WorkerMetrics метрики обработки команд воркером
type WorkerMetrics struct {
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	active    prometheus.Gauge
}

// NewWorkerMetrics регистрирует метрики воркера в reg
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_processed_total",
			Help: "Общее количество обработанных сообщений",
		}, []string{"topic", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_message_processing_duration_seconds",
			Help:    "Длительность обработки сообщений",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Количество активных горутин-обработчиков",
		}),
	}
}

// Start отмечает начало обработки и возвращает функцию завершения
func (m *WorkerMetrics) Start(topic string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.active.Inc()
	return func(status string) {
		m.active.Dec()
		m.processed.WithLabelValues(topic, status).Inc()
		m.duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}
}

// HTTPMetrics метрики HTTP API
type HTTPMetrics struct {
	durations      *prometheus.HistogramVec
	requests       *prometheus.CounterVec
	activeRequests prometheus.Gauge
}

// NewHTTPMetrics регистрирует метрики HTTP в reg
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_durations_seconds",
			Help:    "Длительность HTTP запросов",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		}, []string{"path", "method", "status"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Количество активных HTTP запросов",
		}),
	}
}

// Middleware собирает метрики по шаблону маршрута chi
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.activeRequests.Inc()
		defer m.activeRequests.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{path, r.Method, strconv.Itoa(status)}

		m.requests.WithLabelValues(labels...).Inc()
		m.durations.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
