package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
)

type keySet struct {
	secret []byte
	ttl    time.Duration
}

// Codec выпускает и проверяет access- и refresh-токены.
// Безопасен для конкурентного использования.
type Codec struct {
	access  keySet
	refresh keySet
	issuer  string
	now     func() time.Time
}

// NewCodec создаёт Codec из конфигурации.
func NewCodec(cfg config.AuthConfig) (*Codec, error) {
	const op = "token.NewCodec"

	switch {
	case cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "":
		return nil, fmt.Errorf("%s: %w", op, errors.New("token secrets must be set"))
	case cfg.AccessTokenSecret == cfg.RefreshTokenSecret:
		return nil, fmt.Errorf("%s: %w", op, errors.New("access and refresh secrets must differ"))
	case cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0:
		return nil, fmt.Errorf("%s: %w", op, errors.New("token ttl must be positive"))
	}

	return &Codec{
		access:  keySet{secret: []byte(cfg.AccessTokenSecret), ttl: cfg.AccessTokenTTL},
		refresh: keySet{secret: []byte(cfg.RefreshTokenSecret), ttl: cfg.RefreshTokenTTL},
		issuer:  cfg.Issuer,
		now:     time.Now,
	}, nil
}

// SetClock подменяет источник времени (для тестов).
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// Now возвращает текущее время по часам Codec.
func (c *Codec) Now() time.Time {
	return c.now()
}

// AccessTTL — время жизни access-токена.
func (c *Codec) AccessTTL() time.Duration { return c.access.ttl }

// RefreshTTL — время жизни refresh-токена.
func (c *Codec) RefreshTTL() time.Duration { return c.refresh.ttl }

// SignAccess выпускает access-токен.
func (c *Codec) SignAccess(data Data) (models.IssuedToken, error) {
	return c.issue(data, c.access)
}

// SignRefresh выпускает refresh-токен.
func (c *Codec) SignRefresh(data Data) (models.IssuedToken, error) {
	return c.issue(data, c.refresh)
}

// VerifyAccess проверяет access-токен.
func (c *Codec) VerifyAccess(tok string) (*Claims, error) {
	return c.check(tok, c.access)
}

// VerifyRefresh проверяет refresh-токен.
func (c *Codec) VerifyRefresh(tok string) (*Claims, error) {
	return c.check(tok, c.refresh)
}

func (c *Codec) issue(data Data, ks keySet) (models.IssuedToken, error) {
	signed, claims, err := sign(data, ks.secret, ks.ttl, c.now(), c.issuer)
	if err != nil {
		return models.IssuedToken{}, err
	}

	return models.IssuedToken{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		TTL:       ks.ttl,
	}, nil
}

func (c *Codec) check(tok string, ks keySet) (*Claims, error) {
	now := c.now()

	claims, err := verify(tok, ks.secret, now, c.issuer)
	if err != nil {
		return nil, err
	}

	if Expired(claims, now) {
		return nil, fmt.Errorf("token.check: %w", ErrTokenExpired)
	}

	return claims, nil
}
