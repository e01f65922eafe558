// password хэширует и сверяет пароли пользователей (bcrypt).
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost — 10 раундов, как у исходной реализации.
const DefaultCost = 10

// MaxLength — предел bcrypt в байтах; более длинный пароль Hash отвергает.
const MaxLength = 72

// Пароль для хэша-заглушки; его значение ни с чем не совпадает по смыслу.
const dummyPassword = "dummy-password-for-timing"

// Hasher хэширует пароли с фиксированной стоимостью.
type Hasher struct {
	cost  int
	dummy []byte // хэш-заглушка той же стоимости, см. CompareDummy
}

// NewHasher создаёт Hasher; cost вне диапазона bcrypt — ошибка, 0 — DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	const op = "password.NewHasher"

	if cost == 0 {
		cost = DefaultCost
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%s: cost %d out of range [%d, %d]", op, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash хэширует пароль с солью.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Compare сравнивает пароль с хэшем. Любая ошибка (в т.ч. битый хэш) — несовпадение.
func (h *Hasher) Compare(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CompareDummy тратит на сравнение столько же времени, сколько Compare с
// настоящим хэшем. Вызывается, когда пользователь не найден, чтобы время
// ответа не выдавало, зарегистрирован ли email.
func (h *Hasher) CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
