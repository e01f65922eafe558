package middleware

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/go-cookie-auth/internal/pkg/log"
)

// Logging кладёт в контекст логгер с request_id и пишет одну запись "http"
// по завершении запроса. 5xx пишется с уровнем Error, 4xx с Warn.
// Ставится после RequestID.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base
			if rid := RequestIDFrom(r.Context()); rid != "" {
				l = l.With(slog.String("request_id", rid))
			}

			m := meter(w)
			start := time.Now()
			next.ServeHTTP(m, r.WithContext(logctx.Into(r.Context(), l)))

			l.LogAttrs(r.Context(), levelFor(m.Status()), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", m.Status()),
				slog.Int("bytes", m.bytes),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
