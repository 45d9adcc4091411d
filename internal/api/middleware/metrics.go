// metrics.go — Prometheus HTTP метрики сервиса songlet.
// Регистрирует метрики: sl_http_requests_total, sl_http_request_duration_seconds.
// Бизнес-метрики (загрузки, кэш, очистка) регистрируются в своих пакетах
// и обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_http_requests_total",
			Help: "Общее количество HTTP-запросов к songlet",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sl_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к songlet в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// UploadsTotal — количество загрузок по результату.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_uploads_total",
			Help: "Общее количество загрузок клипов",
		},
		[]string{"result"},
	)

	// DeletesTotal — количество удалений по результату.
	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_deletes_total",
			Help: "Общее количество удалений клипов",
		},
		[]string{"result"},
	)

	// AdmissionTripsTotal — количество срабатываний admission control.
	AdmissionTripsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sl_admission_trips_total",
			Help: "Количество разорванных admission control запросов",
		},
		[]string{"path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath нормализует путь для лейблов метрик: фиксированные endpoint'ы
// остаются как есть, отдача файлов и статики сворачивается в общие лейблы,
// чтобы не взрывать кардинальность.
func normalizePath(path string) string {
	switch path {
	case "/verify", "/create", "/read", "/delete", "/clean",
		"/health/live", "/health/ready", "/metrics":
		return path
	}
	if strings.HasPrefix(path, "/files/") {
		return "/files/{name}"
	}
	return "/static"
}
