package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	apierrors "github.com/pribylovaa/go-cookie-auth/internal/http/errors"
	"github.com/pribylovaa/go-cookie-auth/internal/http/middleware"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
)

// fakeAuth — AuthService на функциях; незаданный метод валит тест.
type fakeAuth struct {
	t      *testing.T
	signup func(service.SignupInput) (*models.PublicUser, *models.Session, error)
	signin func(service.SigninInput) (*models.PublicUser, *models.Session, error)
	revoke func(uuid.UUID) error
}

func (f *fakeAuth) Signup(_ context.Context, in service.SignupInput) (*models.PublicUser, *models.Session, error) {
	if f.signup == nil {
		f.t.Fatal("unexpected Signup call")
	}
	return f.signup(in)
}

func (f *fakeAuth) Signin(_ context.Context, in service.SigninInput) (*models.PublicUser, *models.Session, error) {
	if f.signin == nil {
		f.t.Fatal("unexpected Signin call")
	}
	return f.signin(in)
}

func (f *fakeAuth) Revoke(_ context.Context, id uuid.UUID) error {
	if f.revoke == nil {
		f.t.Fatal("unexpected Revoke call")
	}
	return f.revoke(id)
}

var testUser = models.PublicUser{ID: uuid.MustParse("0b6f4a8e-2c1d-4e3f-9a5b-7c8d9e0f1a2b"), Email: "a@b.co", Name: "Ann"}

func testSession() *models.Session {
	exp := time.Now().Add(time.Hour)
	return &models.Session{
		Access:  models.IssuedToken{Token: "acc", ExpiresAt: exp, TTL: 15 * time.Minute},
		Refresh: models.IssuedToken{Token: "ref", ExpiresAt: exp, TTL: 24 * time.Hour},
	}
}

func newHandlers(f *fakeAuth) *Handlers {
	return New(f, cookies.New(config.CookieConfig{SameSite: "lax"}))
}

func post(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookieMap(rr *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()

	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestSignup_Created(t *testing.T) {
	var got service.SignupInput
	h := newHandlers(&fakeAuth{t: t, signup: func(in service.SignupInput) (*models.PublicUser, *models.Session, error) {
		got = in
		u := testUser
		return &u, testSession(), nil
	}})

	rr := httptest.NewRecorder()
	h.Signup(rr, post(`{"email":"a@b.co","name":"Ann","password":"Passw0rd!"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Equal(t, service.SignupInput{Email: "a@b.co", Name: "Ann", Password: "Passw0rd!"}, got)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, testUser.ID.String(), body["id"])
	require.NotContains(t, body, "password")
	require.NotContains(t, body, "refresh_token")

	cs := cookieMap(rr)
	require.Equal(t, "acc", cs[cookies.AccessName].Value)
	require.Equal(t, "ref", cs[cookies.RefreshName].Value)
	require.True(t, cs[cookies.AccessName].HttpOnly)
}

func TestSignup_StrictBody(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"email":"a@b.co","name":"Ann","password":"Passw0rd!","admin":true}`,
		"malformed":     `{"email":`,
		"trailing data": `{"email":"a@b.co"}{}`,
		"empty":         ``,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHandlers(&fakeAuth{t: t})

			rr := httptest.NewRecorder()
			h.Signup(rr, post(body))

			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, "invalid_argument", decodeError(t, rr).Code)
			require.Empty(t, rr.Result().Cookies())
		})
	}
}

func TestSignup_ServiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"validation", &service.ValidationError{Fields: []service.FieldError{{Field: "email", Message: "bad"}}}, http.StatusBadRequest},
		{"internal", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandlers(&fakeAuth{t: t, signup: func(service.SignupInput) (*models.PublicUser, *models.Session, error) {
				return nil, nil, tc.err
			}})

			rr := httptest.NewRecorder()
			h.Signup(rr, post(`{"email":"a@b.co","name":"Ann","password":"Passw0rd!"}`))

			require.Equal(t, tc.status, rr.Code)
			require.Empty(t, rr.Result().Cookies())
		})
	}
}

func TestSignin(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newHandlers(&fakeAuth{t: t, signin: func(in service.SigninInput) (*models.PublicUser, *models.Session, error) {
			require.Equal(t, "a@b.co", in.Email)
			u := testUser
			return &u, testSession(), nil
		}})

		rr := httptest.NewRecorder()
		h.Signin(rr, post(`{"email":"a@b.co","password":"Passw0rd!"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, cookieMap(rr), 2)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		h := newHandlers(&fakeAuth{t: t, signin: func(service.SigninInput) (*models.PublicUser, *models.Session, error) {
			return nil, nil, service.ErrInvalidCredentials
		}})

		rr := httptest.NewRecorder()
		h.Signin(rr, post(`{"email":"a@b.co","password":"wrong-pass"}`))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Equal(t, "unauthenticated", decodeError(t, rr).Code)
		require.Empty(t, rr.Result().Cookies())
	})
}

func TestMe(t *testing.T) {
	h := newHandlers(&fakeAuth{t: t})

	t.Run("identity in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.WithIdentity(req.Context(), testUser))

		rr := httptest.NewRecorder()
		h.Me(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got models.PublicUser
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Equal(t, testUser, got)
	})

	t.Run("no identity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Me(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLogout(t *testing.T) {
	var revoked uuid.UUID
	h := newHandlers(&fakeAuth{t: t, revoke: func(id uuid.UUID) error {
		revoked = id
		return nil
	}})

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), testUser))

	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"ok":true}`, rr.Body.String())
	require.Equal(t, testUser.ID, revoked)

	cs := cookieMap(rr)
	require.Len(t, cs, 2)
	for _, name := range []string{cookies.AccessName, cookies.RefreshName} {
		require.Empty(t, cs[name].Value)
		require.Less(t, cs[name].MaxAge, 0)
	}
}

func TestLogout_RevokeFailureStillClearsCookies(t *testing.T) {
	h := newHandlers(&fakeAuth{t: t, revoke: func(uuid.UUID) error {
		return context.DeadlineExceeded
	}})

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), testUser))

	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)
	require.Len(t, cookieMap(rr), 2)
}

func TestFallbackHandlers(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	MethodNotAllowed(rr, httptest.NewRequest(http.MethodPut, "/auth/me", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
