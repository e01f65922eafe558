// token подписывает и проверяет JWT сессии (HS256).
//
// Пакетные функции Sign/Verify работают с произвольным секретом; Codec
// связывает их с двумя наборами ключей (access и refresh) из конфигурации.
// Access- и refresh-токены подписываются разными секретами, поэтому токен
// одного вида никогда не проходит проверку как токен другого.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken — подпись не сходится, токен повреждён или подписан другим алгоритмом.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
)

// Data — полезная нагрузка, которую токен несёт о пользователе.
type Data struct {
	ID    uuid.UUID
	Email string
}

// Claims — содержимое токена: {id, email, iat, exp, jti} и iss, если задан.
// jti случаен, поэтому два токена, выпущенные в одну секунду, различаются.
type Claims struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// Data возвращает пользовательскую часть claims.
func (c *Claims) Data() Data {
	return Data{ID: c.UserID, Email: c.Email}
}

// Sign подписывает токен с iat=now и exp=now+ttl.
func Sign(data Data, secret []byte, ttl time.Duration, now time.Time) (string, Claims, error) {
	return sign(data, secret, ttl, now, "")
}

func sign(data Data, secret []byte, ttl time.Duration, now time.Time, issuer string) (string, Claims, error) {
	const op = "token.Sign"

	if len(secret) == 0 {
		return "", Claims{}, fmt.Errorf("%s: empty secret", op)
	}

	claims := Claims{
		UserID: data.ID,
		Email:  data.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, claims, nil
}

// Verify проверяет подпись и срок действия токена на момент now.
// Возвращает ErrTokenExpired для истёкших токенов и ErrInvalidToken для всего остального.
func Verify(tokenStr string, secret []byte, now time.Time) (*Claims, error) {
	return verify(tokenStr, secret, now, "")
}

func verify(tokenStr string, secret []byte, now time.Time, issuer string) (*Claims, error) {
	const op = "token.Verify"

	if tokenStr == "" || len(secret) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}

			return secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !tok.Valid || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// Expired сообщает, что exp <= now. Вызывающий код проверяет это повторно
// после Verify, чтобы решение о сроке не зависело от настроек парсера.
func Expired(c *Claims, now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}

	return !now.Before(c.ExpiresAt.Time)
}
