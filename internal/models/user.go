package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя в хранилище.
// PasswordHash и RefreshToken никогда не покидают сервисный слой:
// наружу отдаётся только PublicUser.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string

	// RefreshToken — единственный действующий refresh-токен пользователя (nil — нет сессии).
	RefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser — санитизированное представление пользователя для ответов API.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// Public возвращает представление без пароля и refresh-токена.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}

// StoredRefreshToken возвращает сохранённый refresh-токен или "".
func (u *User) StoredRefreshToken() string {
	if u.RefreshToken == nil {
		return ""
	}

	return *u.RefreshToken
}

// UserPatch — частичное обновление пользователя; nil-поля не меняются.
// RefreshToken, указывающий на пустую строку, стирает сохранённый токен.
type UserPatch struct {
	Name         *string
	RefreshToken *string
}
