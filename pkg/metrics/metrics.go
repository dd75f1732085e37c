// Package metrics, Prometheus metriklerini tanımlar.
//
// Metrics aynı zamanda bir audit.Sink'tir: her audit olayı
// authgate_auth_events_total sayacını artırır.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/akinalp/authgate/pkg/audit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics, uygulamanın tüm Prometheus metrikleri.
type Metrics struct {
	AuthEventsTotal     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SweptTokensTotal    prometheus.Counter

	registry *prometheus.Registry
}

// New, metrikleri oluşturur ve registry'ye kaydeder.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_auth_events_total",
				Help: "Authentication and authorization events by outcome",
			},
			[]string{"event", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SweptTokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authgate_refresh_tokens_swept_total",
				Help: "Expired refresh tokens removed by the sweeper",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.AuthEventsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SweptTokensTotal,
	)
	return m
}

// Record, audit.Sink implementasyonu.
// outcome başarılı olaylarda "success", aksi halde hata nedenidir.
func (m *Metrics) Record(_ context.Context, e audit.Event) {
	outcome := "success"
	if !e.Success {
		outcome = "failure"
		if e.Reason != "" {
			outcome = e.Reason
		}
	}
	m.AuthEventsTotal.WithLabelValues(string(e.Type), outcome).Inc()
}

// Handler, /metrics endpoint'i.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware, her isteği sayar ve süresini ölçer.
//
// route etiketi ServeMux'un eşleştirdiği pattern'dir (ör: "GET /users/{id}/sessions"),
// path değil; böylece kullanıcı id'leri etiket kardinalitesini şişirmez.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
