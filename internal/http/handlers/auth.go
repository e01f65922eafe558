package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/go-cookie-auth/internal/http/errors"
	"github.com/pribylovaa/go-cookie-auth/internal/http/middleware"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Signup — POST /auth/signup: 201 + cookie + публичный профиль.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var in signupRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, sess, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:    in.Email,
		Name:     in.Name,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.jar.SetSession(w, sess)
	writeJSON(w, http.StatusCreated, user)
}

// Signin — POST /auth/signin: 200 + cookie + публичный профиль.
func (h *Handlers) Signin(w http.ResponseWriter, r *http.Request) {
	var in signinRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, sess, err := h.auth.Signin(r.Context(), service.SigninInput{
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.jar.SetSession(w, sess)
	writeJSON(w, http.StatusOK, user)
}

// Me — GET /auth/me (за Guard): профиль текущего пользователя.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// Logout — GET /auth/logout (за Guard): очищает обе cookie.
// Cookie очищаются и тогда, когда отзыв на сервере не удался.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthorized)
		return
	}

	h.jar.Clear(w)

	if err := h.auth.Revoke(r.Context(), user.ID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// NotFound и MethodNotAllowed отдают ошибки в общем формате.
func NotFound(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, r, apierrors.ErrNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, r, apierrors.ErrMethodNotAllowed)
}
