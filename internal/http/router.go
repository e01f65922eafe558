package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	"github.com/pribylovaa/go-cookie-auth/internal/http/handlers"
	"github.com/pribylovaa/go-cookie-auth/internal/http/middleware"
	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
)

// Service — всё, что роутеру нужно от сервисного слоя.
type Service interface {
	handlers.AuthService
	middleware.Authenticator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger        *slog.Logger
	Timeout       time.Duration
	BasePath      string // например, "/api"; если пустой — роуты регистрируются на корне.
	ClientOrigins []string
	Cookies       *cookies.Jar
	Metrics       *metrics.Metrics // может быть nil
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                // безопасно ловим паники
		middleware.RequestID(),              // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),     // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),    // счётчики по шаблону маршрута
		middleware.SecureHeaders(),          // защитные заголовки
		middleware.CORS(opts.ClientOrigins), // SPA с cookie; preflight завершается здесь
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	root.NotFound(handlers.NotFound)
	root.MethodNotAllowed(handlers.MethodNotAllowed)

	h := handlers.New(svc, opts.Cookies)
	guard := middleware.Guard(svc, opts.Cookies)

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		sub.NotFound(handlers.NotFound)
		sub.MethodNotAllowed(handlers.MethodNotAllowed)
		registerRoutes(sub, h, guard)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, guard)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, guard middleware.Middleware) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/signin", h.Signin)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Get("/auth/me", h.Me)
		r.Get("/auth/logout", h.Logout)
	})
}
