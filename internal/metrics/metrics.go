// metrics — Prometheus-метрики сервиса: события аутентификации и HTTP-запросы.
// Методы безопасны для nil-получателя, поэтому метрики можно не подключать.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// События аутентификации.
const (
	EventSignup = "signup"
	EventSignin = "signin"
	EventGuard  = "guard"
	EventLogout = "logout"
)

type Metrics struct {
	authEvents   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New создаёт и регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cookie_auth",
			Name:      "auth_events_total",
			Help:      "Auth operations by event and outcome.",
		}, []string{"event", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cookie_auth",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cookie_auth",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.authEvents, m.httpRequests, m.httpDuration)

	return m
}

// AuthEvent учитывает исход операции (ok, email_taken, renewed, rejected...).
func (m *Metrics) AuthEvent(event, result string) {
	if m == nil {
		return
	}

	m.authEvents.WithLabelValues(event, result).Inc()
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
