// storage описывает контракт хранилища пользователей и общие ошибки реализаций.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-cookie-auth/internal/models"
)

var (
	// ErrNotFound — пользователь не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (без учёта регистра).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateUser применяет частичное обновление; последняя запись выигрывает.
	UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch) error
}

// Storage — хранилище с управлением жизненным циклом.
type Storage interface {
	UserStorage
	Ping(ctx context.Context) error
	Close()
}
