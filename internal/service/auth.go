package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	"github.com/pribylovaa/go-cookie-auth/internal/pkg/log"
	"github.com/pribylovaa/go-cookie-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-cookie-auth/internal/storage"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
)

// Signup регистрирует пользователя и сразу выдаёт ему сессию.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*models.PublicUser, *models.Session, error) {
	const op = "service.auth.Signup"

	lg := log.From(ctx)

	in, err := ValidateSignup(in)
	if err != nil {
		s.metrics.AuthEvent(metrics.EventSignup, "invalid")
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, in.Email)
	if err == nil {
		s.metrics.AuthEvent(metrics.EventSignup, "email_taken")
		lg.Info("signup_email_taken", slog.String("email", redact.Email(in.Email)))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.codec.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sess, err := s.signSession(user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	// Пользователь создаётся сразу с refresh-токеном: одна запись вместо двух.
	user.RefreshToken = &sess.Refresh.Token

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.metrics.AuthEvent(metrics.EventSignup, "email_taken")
			return nil, nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AuthEvent(metrics.EventSignup, "ok")
	lg.Info("signup_ok",
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	pub := user.Public()
	return &pub, sess, nil
}

// Signin выполняет вход по email+пароль. Любая неудача, включая неверную
// форму запроса, возвращается как ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, in SigninInput) (*models.PublicUser, *models.Session, error) {
	const op = "service.auth.Signin"

	lg := log.From(ctx)

	in, err := ValidateSignin(in)
	if err != nil {
		s.metrics.AuthEvent(metrics.EventSignin, "invalid_credentials")
		lg.Info("signin_failed", slog.String("reason", "malformed_input"))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.CompareDummy(in.Password)
			s.metrics.AuthEvent(metrics.EventSignin, "invalid_credentials")
			lg.Info("signin_failed",
				slog.String("reason", "unknown_email"),
				slog.String("email", redact.Email(in.Email)),
			)
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Compare(user.PasswordHash, in.Password) {
		s.metrics.AuthEvent(metrics.EventSignin, "invalid_credentials")
		lg.Info("signin_failed",
			slog.String("reason", "wrong_password"),
			slog.String("user_id", user.ID.String()),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	sess, err := s.issueSession(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AuthEvent(metrics.EventSignin, "ok")
	lg.Info("signin_ok", slog.String("user_id", user.ID.String()))

	pub := user.Public()
	return &pub, sess, nil
}

// Revoke завершает сессию пользователя. Cookie очищает транспорт;
// сохранённый refresh-токен стирается, только если включён auth.revoke_on_logout.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	const op = "service.auth.Revoke"

	lg := log.From(ctx)

	if !s.cfg.RevokeOnLogout {
		s.metrics.AuthEvent(metrics.EventLogout, "ok")
		lg.Info("logout", slog.String("user_id", userID.String()), slog.Bool("revoked", false))
		return nil
	}

	empty := ""
	err := s.storage.UpdateUser(ctx, userID, models.UserPatch{RefreshToken: &empty})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.metrics.AuthEvent(metrics.EventLogout, "error")
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, userID); err != nil {
			lg.Warn("identity_cache_delete_failed", slog.String("err", err.Error()))
		}
	}

	s.metrics.AuthEvent(metrics.EventLogout, "ok")
	lg.Info("logout", slog.String("user_id", userID.String()), slog.Bool("revoked", true))

	return nil
}

// signSession подписывает пару токенов с claims {id, email}.
func (s *Service) signSession(user *models.User) (*models.Session, error) {
	const op = "service.auth.signSession"

	data := token.Data{ID: user.ID, Email: user.Email}

	access, err := s.codec.SignAccess(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.codec.SignRefresh(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Session{Access: access, Refresh: refresh}, nil
}

// issueSession выпускает пару токенов и сохраняет refresh-токен пользователю.
// Перезапись сохранённого токена — точка ротации: предыдущий перестаёт действовать.
// При гонке двух входов выигрывает последняя запись.
func (s *Service) issueSession(ctx context.Context, user *models.User) (*models.Session, error) {
	const op = "service.auth.issueSession"

	sess, err := s.signSession(user)
	if err != nil {
		log.From(ctx).Error("token_sign_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdateUser(ctx, user.ID, models.UserPatch{RefreshToken: &sess.Refresh.Token}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user.RefreshToken = &sess.Refresh.Token
	user.UpdatedAt = time.Now().UTC()

	return sess, nil
}
