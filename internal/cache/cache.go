// cache — Redis-кэш публичных профилей пользователей.
// Кэшируется только PublicUser: пароль и refresh-токен в Redis не попадают,
// а сверка refresh-токена всегда идёт в основное хранилище.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-cookie-auth/internal/models"
)

// IdentityCache — минимальный контракт кэша профилей.
type IdentityCache interface {
	// Get возвращает профиль и признак его наличия в кэше.
	Get(ctx context.Context, id uuid.UUID) (*models.PublicUser, bool, error)
	// Set сохраняет профиль с TTL кэша.
	Set(ctx context.Context, u models.PublicUser) error
	// Delete удаляет профиль (идемпотентно).
	Delete(ctx context.Context, id uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:user:".
func NewRedisCache(ctx context.Context, redisURL, prefix string, ttl time.Duration) (IdentityCache, error) {
	const op = "cache.NewRedisCache"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewFromClient(rdb, prefix, ttl), nil
}

// NewFromClient оборачивает готовый клиент.
func NewFromClient(rdb *redis.Client, prefix string, ttl time.Duration) IdentityCache {
	if prefix == "" {
		prefix = "auth:user:"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisCache) key(id uuid.UUID) string { return c.prefix + id.String() }

// Храним как Redis Hash с полями: id, email, name.
func (c *redisCache) Get(ctx context.Context, id uuid.UUID) (*models.PublicUser, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(id)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["id"])
	if err != nil {
		return nil, false, err
	}
	if uid != id {
		return nil, false, errors.New("cache: id mismatch")
	}

	return &models.PublicUser{
		ID:    uid,
		Email: m["email"],
		Name:  m["name"],
	}, true, nil
}

func (c *redisCache) Set(ctx context.Context, u models.PublicUser) error {
	kv := map[string]string{
		"id":    u.ID.String(),
		"email": u.Email,
		"name":  u.Name,
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(u.ID), kv)
	pipe.Expire(ctx, c.key(u.ID), c.ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }
