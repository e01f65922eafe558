package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	apierrors "github.com/pribylovaa/go-cookie-auth/internal/http/errors"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	logctx "github.com/pribylovaa/go-cookie-auth/internal/pkg/log"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
)

// Authenticator проверяет пару токенов запроса.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, refreshToken string) (*service.AuthResult, error)
}

// Guard пропускает запрос дальше, только если Authenticator его допустил.
// Новый access-токен, если он был выпущен, отдаётся клиенту в Set-Cookie;
// профиль пользователя кладётся в контекст (см. IdentityFrom).
func Guard(a Authenticator, jar *cookies.Jar) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, refresh := cookies.Read(r)

			res, err := a.Authenticate(r.Context(), access, refresh)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			if res.Renewed != nil {
				jar.SetAccess(w, *res.Renewed)
			}

			ctx := WithIdentity(r.Context(), res.User)
			ctx = logctx.With(ctx, slog.String("user_id", res.User.ID.String()))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom возвращает профиль, положенный Guard.
func IdentityFrom(ctx context.Context) (models.PublicUser, bool) {
	u, ok := ctx.Value(ctxIdentity).(models.PublicUser)
	return u, ok
}

// WithIdentity кладёт профиль в контекст.
func WithIdentity(ctx context.Context, u models.PublicUser) context.Context {
	return context.WithValue(ctx, ctxIdentity, u)
}
