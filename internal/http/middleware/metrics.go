package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
)

// Metrics учитывает запросы по шаблону маршрута chi, а не по сырому пути,
// чтобы не плодить метки. Неизвестные маршруты попадают в "unmatched".
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rm := meter(w)
			start := time.Now()
			next.ServeHTTP(rm, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}

			m.ObserveHTTP(r.Method, route, rm.Status(), time.Since(start))
		})
	}
}
