// service содержит бизнес-логику аутентификации:
// регистрацию и вход, выпуск пары токенов, guard с тихим продлением
// access-токена и отзыв сессии.
//
// Service не хранит состояние запроса и безопасен для конкурентного
// использования, если переданное хранилище потокобезопасно.
// Ошибки возвращаются как сентинелы пакета и маппятся транспортом на HTTP-коды.
package service

import (
	"github.com/pribylovaa/go-cookie-auth/internal/cache"
	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
	"github.com/pribylovaa/go-cookie-auth/internal/password"
	"github.com/pribylovaa/go-cookie-auth/internal/storage"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage storage.UserStorage
	codec   *token.Codec
	hasher  *password.Hasher
	cfg     config.AuthConfig
	cache   cache.IdentityCache // может быть nil, если кэш не сконфигурирован
	metrics *metrics.Metrics    // может быть nil
}

// New создаёт новый экземпляр Service.
func New(st storage.UserStorage, codec *token.Codec, hasher *password.Hasher, cfg config.AuthConfig) *Service {
	return &Service{
		storage: st,
		codec:   codec,
		hasher:  hasher,
		cfg:     cfg,
	}
}

// SetIdentityCache устанавливает кэш профилей (опционально).
func (s *Service) SetIdentityCache(c cache.IdentityCache) {
	s.cache = c
}

// SetMetrics подключает метрики (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}
