package models

import "time"

// IssuedToken — подписанный токен и момент его истечения.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	TTL       time.Duration
}

// Session — пара токенов, выдаваемая при регистрации/входе.
type Session struct {
	Access  IssuedToken
	Refresh IssuedToken
}
