package service

// Тесты сервисного слоя.
//
// Подготовка окружения:
//   # 1) Сгенерировать моки интерфейсов хранилища и кэша:
//   mockgen -source=./internal/storage/storage.go -destination=./mocks/storage.go -package=mocks
//   mockgen -source=./internal/cache/cache.go -destination=./mocks/cache.go -package=mocks
//
//   # 2) Запустить тесты:
//   go test ./internal/service -v -race -count=1

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	"github.com/pribylovaa/go-cookie-auth/internal/password"
	"github.com/pribylovaa/go-cookie-auth/internal/storage"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
	"github.com/pribylovaa/go-cookie-auth/mocks"
)

const testPassword = "abc12345!"

var testStart = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	}
}

// testClock — управляемые часы для Codec.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newService поднимает сервис с заданным хранилищем и управляемыми часами.
func newService(t *testing.T, st storage.UserStorage, mutate ...func(*config.AuthConfig)) (*Service, *testClock) {
	t.Helper()

	cfg := testAuthConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	codec, err := token.NewCodec(cfg)
	require.NoError(t, err)

	clock := &testClock{now: testStart}
	codec.SetClock(clock.Now)

	hasher, err := password.NewHasher(cfg.BcryptCost)
	require.NoError(t, err)

	return New(st, codec, hasher, cfg), clock
}

// newServiceWithMocks — сервис с моком хранилища.
func newServiceWithMocks(t *testing.T) (*Service, *mocks.MockUserStorage, *testClock) {
	t.Helper()

	ctrl := gomock.NewController(t)
	ms := mocks.NewMockUserStorage(ctrl)
	s, clock := newService(t, ms)

	return s, ms, clock
}

// mustUser собирает пользователя с bcrypt-хэшем testPassword.
func mustUser(t *testing.T, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Alice",
		PasswordHash: string(hash),
		CreatedAt:    testStart,
		UpdatedAt:    testStart,
	}
}

func strPtr(s string) *string { return &s }
