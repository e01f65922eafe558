// handlers — REST-обработчики /auth/*.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	apierrors "github.com/pribylovaa/go-cookie-auth/internal/http/errors"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
)

// Предел размера тела запроса.
const maxBodyBytes = 1 << 20

// AuthService — операции сервиса, нужные обработчикам.
type AuthService interface {
	Signup(ctx context.Context, in service.SignupInput) (*models.PublicUser, *models.Session, error)
	Signin(ctx context.Context, in service.SigninInput) (*models.PublicUser, *models.Session, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	auth AuthService
	jar  *cookies.Jar
}

func New(auth AuthService, jar *cookies.Jar) *Handlers {
	return &Handlers{auth: auth, jar: jar}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля,
// хвост после объекта и тела больше maxBodyBytes.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrMalformedBody, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apierrors.ErrMalformedBody
	}

	return nil
}
