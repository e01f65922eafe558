package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/http/cookies"
	"github.com/pribylovaa/go-cookie-auth/internal/metrics"
	"github.com/pribylovaa/go-cookie-auth/internal/password"
	"github.com/pribylovaa/go-cookie-auth/internal/service"
	"github.com/pribylovaa/go-cookie-auth/internal/storage/memory"
	"github.com/pribylovaa/go-cookie-auth/internal/token"
)

const (
	testOrigin   = "http://localhost:5173"
	testPassword = "Passw0rd!"
)

// clock — управляемые часы, общие для Codec и теста.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	handler http.Handler
	clock   *clock
	reg     *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	authCfg := config.AuthConfig{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    24 * time.Hour,
		BcryptCost:         bcrypt.MinCost,
	}

	codec, err := token.NewCodec(authCfg)
	require.NoError(t, err)

	clk := &clock{now: time.Now().UTC()}
	codec.SetClock(clk.Now)

	hasher, err := password.NewHasher(authCfg.BcryptCost)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := service.New(memory.New(), codec, hasher, authCfg)
	svc.SetMetrics(m)

	h := NewRouter(svc, Options{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout:       5 * time.Second,
		BasePath:      "/api",
		ClientOrigins: []string{testOrigin},
		Cookies:       cookies.New(config.CookieConfig{SameSite: "lax"}),
		Metrics:       m,
	})

	return &testServer{handler: h, clock: clk, reg: reg}
}

func (s *testServer) do(method, path, body string, cs ...*http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cs {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// counter возвращает значение счётчика с заданными метками (0, если серии нет).
func (s *testServer) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := s.reg.Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}

	return 0
}

func responseCookies(rr *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rr.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

const signupBody = `{"email":"Ann@Example.com","name":"Ann","password":"` + testPassword + `"}`

func TestRouter_SignupSigninMe(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 3)
	require.Equal(t, "ann@example.com", body["email"])
	require.Equal(t, "Ann", body["name"])
	require.NotEmpty(t, body["id"])

	cs := responseCookies(rr)
	require.Len(t, cs, 2)
	for _, c := range cs {
		require.True(t, c.HttpOnly)
		require.Equal(t, "/", c.Path)
		require.NotEmpty(t, c.Value)
	}
	require.Equal(t, int((15 * time.Minute).Seconds()), cs[cookies.AccessName].MaxAge)
	require.Equal(t, int((24 * time.Hour).Seconds()), cs[cookies.RefreshName].MaxAge)

	// Дубликат e-mail: 409 и никаких cookie.
	rr = s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	// Неверный пароль: 401 и никаких cookie.
	rr = s.do(http.MethodPost, "/api/auth/signin", `{"email":"ann@example.com","password":"Wrong0rd!"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	rr = s.do(http.MethodPost, "/api/auth/signin", `{"email":"ANN@example.com","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	cs = responseCookies(rr)
	require.Len(t, cs, 2)

	rr = s.do(http.MethodGet, "/api/auth/me", "", cs[cookies.AccessName])
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Result().Cookies())
	require.Contains(t, rr.Body.String(), `"email":"ann@example.com"`)
}

func TestRouter_SilentRenewal(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	cs := responseCookies(rr)
	access, refresh := cs[cookies.AccessName], cs[cookies.RefreshName]

	s.clock.Advance(16 * time.Minute)

	// Только access: он истёк, refresh не предъявлен.
	rr = s.do(http.MethodGet, "/api/auth/me", "", access)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/api/auth/me", "", access, refresh)
	require.Equal(t, http.StatusOK, rr.Code)

	renewed := responseCookies(rr)
	require.Len(t, renewed, 1)
	require.Contains(t, renewed, cookies.AccessName)
	require.NotEqual(t, access.Value, renewed[cookies.AccessName].Value)

	// Новый access работает без refresh.
	rr = s.do(http.MethodGet, "/api/auth/me", "", renewed[cookies.AccessName])
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	// После истечения refresh продление невозможно.
	s.clock.Advance(24 * time.Hour)
	rr = s.do(http.MethodGet, "/api/auth/me", "", renewed[cookies.AccessName], refresh)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	require.Equal(t, float64(1), s.counter(t, "cookie_auth_auth_events_total", map[string]string{
		"event":  metrics.EventGuard,
		"result": string(service.StateRenewed),
	}))
}

func TestRouter_RefreshRotatedBySignin(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	oldRefresh := responseCookies(rr)[cookies.RefreshName]

	rr = s.do(http.MethodPost, "/api/auth/signin", `{"email":"ann@example.com","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// Старый refresh больше не совпадает с сохранённым.
	rr = s.do(http.MethodGet, "/api/auth/me", "", oldRefresh)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_NoCookies(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/auth/me", "/api/auth/logout"} {
		rr := s.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code, path)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestRouter_Logout(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	cs := responseCookies(rr)

	rr = s.do(http.MethodGet, "/api/auth/logout", "", cs[cookies.AccessName], cs[cookies.RefreshName])
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"ok":true}`, rr.Body.String())

	cleared := responseCookies(rr)
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}
}

func TestRouter_LogoutWithExpiredAccessSendsNoToken(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/api/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	cs := responseCookies(rr)

	// Access истёк, guard продлевает его по refresh, но logout не должен его отдать.
	s.clock.Advance(16 * time.Minute)

	rr = s.do(http.MethodGet, "/api/auth/logout", "", cs[cookies.AccessName], cs[cookies.RefreshName])
	require.Equal(t, http.StatusOK, rr.Code)

	set := rr.Result().Cookies()
	require.Len(t, set, 2)
	for _, c := range set {
		require.Empty(t, c.Value, c.Name)
		require.Less(t, c.MaxAge, 0)
	}
}

func TestRouter_SignupPasswordTooLong(t *testing.T) {
	s := newTestServer(t)

	// Проходит правило алфавита, но длиннее предела bcrypt в 72 байта.
	long := testPassword + strings.Repeat("a", 70)
	rr := s.do(http.MethodPost, "/api/auth/signup", `{"email":"ann@example.com","name":"Ann","password":"`+long+`"}`)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, rr.Result().Cookies())

	var resp struct {
		Error struct {
			Code   string `json:"code"`
			Fields []struct {
				Field string `json:"field"`
			} `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "invalid_argument", resp.Error.Code)
	require.Len(t, resp.Error.Fields, 1)
	require.Equal(t, "password", resp.Error.Fields[0].Field)
}

func TestRouter_Fallbacks(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), `"not_found"`)

	rr = s.do(http.MethodGet, "/api/auth/signup", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = s.do(http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, testOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/api/auth/me", "")
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	require.Equal(t, float64(1), s.counter(t, "cookie_auth_http_requests_total", map[string]string{
		"method": http.MethodGet,
		"route":  "/api/auth/me",
		"code":   "401",
	}))
}
