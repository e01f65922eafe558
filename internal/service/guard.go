package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	"github.com/pribylovaa/go-cookie-auth/internal/pkg/log"
	"github.com/pribylovaa/go-cookie-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-cookie-auth/internal/storage"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
)

// State — как запрос был допущен guard'ом.
type State string

const (
	// StateAccessValid — действующий access-токен.
	StateAccessValid State = "access_valid"
	// StateRenewed — access-токена нет или он недействителен, но refresh-токен
	// совпал с сохранённым и выпущен новый access-токен.
	StateRenewed State = "renewed"
)

// AuthResult — итог проверки запроса.
// Renewed не nil, только если выпущен новый access-токен: транспорт
// должен отдать его клиенту в cookie.
type AuthResult struct {
	User    models.PublicUser
	State   State
	Renewed *models.IssuedToken
}

// Authenticate проверяет пару токенов из запроса.
//
//  1. Действующий access-токен -> пользователь по id -> допуск.
//  2. Иначе refresh-токен: отсутствует, недействителен или истёк -> отказ.
//  3. Пользователь по id из refresh-токена; сохранённый токен должен в точности
//     совпасть с предъявленным -> иначе отказ.
//  4. Выпускается только новый access-токен, refresh-токен не ротируется.
//
// Продление выполняется не более одного раза за запрос. Любой отказ —
// ErrUnauthorized; ошибки хранилища возвращаются как есть.
func (s *Service) Authenticate(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	const op = "service.guard.Authenticate"

	lg := log.From(ctx)

	if accessToken == "" && refreshToken == "" {
		return nil, s.reject(ctx, op, "no_token")
	}

	if accessToken != "" {
		claims, err := s.codec.VerifyAccess(accessToken)
		if err == nil && !token.Expired(claims, s.codec.Now()) {
			user, err := s.identity(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, s.reject(ctx, op, "user_not_found")
				}

				return nil, fmt.Errorf("%s: %w", op, err)
			}

			s.metrics.AuthEvent(metrics.EventGuard, string(StateAccessValid))
			return &AuthResult{User: *user, State: StateAccessValid}, nil
		}

		lg.Debug("access_token_rejected", slog.String("reason", tokenReason(err)))
	}

	if refreshToken == "" {
		return nil, s.reject(ctx, op, "no_refresh_token")
	}

	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil || token.Expired(claims, s.codec.Now()) {
		return nil, s.reject(ctx, op, "refresh_"+tokenReason(err))
	}

	user, err := s.storage.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, s.reject(ctx, op, "user_not_found")
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stored := user.StoredRefreshToken()
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		lg.Warn("refresh_mismatch",
			slog.String("user_id", user.ID.String()),
			slog.String("presented", redact.Token(refreshToken)),
		)
		return nil, s.reject(ctx, op, "refresh_mismatch")
	}

	access, err := s.codec.SignAccess(token.Data{ID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pub := user.Public()
	s.remember(ctx, pub)

	s.metrics.AuthEvent(metrics.EventGuard, string(StateRenewed))
	lg.Info("access_token_renewed", slog.String("user_id", user.ID.String()))

	return &AuthResult{User: pub, State: StateRenewed, Renewed: &access}, nil
}

// identity возвращает публичный профиль: сначала из кэша, затем из хранилища.
// Ошибки кэша не фатальны. С включённым кэшем удалённый пользователь
// с действующим access-токеном допускается, пока не истечёт TTL записи.
func (s *Service) identity(ctx context.Context, id uuid.UUID) (*models.PublicUser, error) {
	if s.cache != nil {
		u, ok, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			log.From(ctx).Warn("identity_cache_get_failed", slog.String("err", err.Error()))
		case ok:
			return u, nil
		}
	}

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pub := user.Public()
	s.remember(ctx, pub)

	return &pub, nil
}

func (s *Service) remember(ctx context.Context, u models.PublicUser) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, u); err != nil {
		log.From(ctx).Warn("identity_cache_set_failed", slog.String("err", err.Error()))
	}
}

func (s *Service) reject(ctx context.Context, op, reason string) error {
	s.metrics.AuthEvent(metrics.EventGuard, "rejected")
	log.From(ctx).Info("guard_rejected", slog.String("reason", reason))

	return fmt.Errorf("%s: %s: %w", op, reason, ErrUnauthorized)
}

func tokenReason(err error) string {
	switch {
	case err == nil, errors.Is(err, token.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
