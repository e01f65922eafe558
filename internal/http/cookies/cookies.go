// cookies выставляет и читает HttpOnly-cookie с токенами сессии.
package cookies

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-cookie-auth/internal/config"
	"github.com/pribylovaa/go-cookie-auth/internal/models"
)

// Имена cookie.
const (
	AccessName  = "access_token"
	RefreshName = "refresh_token"
)

// Jar собирает cookie с едиными атрибутами: HttpOnly, Path=/,
// Secure/SameSite/Domain из конфигурации.
type Jar struct {
	secure   bool
	sameSite http.SameSite
	domain   string
}

// New создаёт Jar.
func New(cfg config.CookieConfig) *Jar {
	return &Jar{
		secure:   cfg.Secure,
		sameSite: cfg.SameSiteMode(),
		domain:   cfg.Domain,
	}
}

// SetSession выставляет обе cookie.
func (j *Jar) SetSession(w http.ResponseWriter, sess *models.Session) {
	j.SetAccess(w, sess.Access)
	j.set(w, RefreshName, sess.Refresh)
}

// SetAccess выставляет только access-cookie (тихое продление).
func (j *Jar) SetAccess(w http.ResponseWriter, tok models.IssuedToken) {
	j.set(w, AccessName, tok)
}

// Clear удаляет обе cookie. Ранее выставленные в этом ответе токены
// (например, продлённый guard'ом access) из заголовков убираются.
func (j *Jar) Clear(w http.ResponseWriter) {
	dropPending(w.Header())

	for _, name := range []string{AccessName, RefreshName} {
		c := j.base(name, "")
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// Read возвращает значения cookie; отсутствующая cookie — пустая строка.
func Read(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessName); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshName); err == nil {
		refresh = c.Value
	}

	return access, refresh
}

// dropPending убирает из ответа ещё не отправленные Set-Cookie с токенами.
func dropPending(h http.Header) {
	pending := h.Values("Set-Cookie")
	if len(pending) == 0 {
		return
	}

	kept := pending[:0:0]
	for _, line := range pending {
		if c, err := http.ParseSetCookie(line); err == nil && (c.Name == AccessName || c.Name == RefreshName) {
			continue
		}
		kept = append(kept, line)
	}

	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
}

func (j *Jar) set(w http.ResponseWriter, name string, tok models.IssuedToken) {
	c := j.base(name, tok.Token)
	c.MaxAge = int(tok.TTL / time.Second)
	c.Expires = tok.ExpiresAt.UTC()
	http.SetCookie(w, c)
}

func (j *Jar) base(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.domain,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: j.sameSite,
	}
}
