package inbound

import (
	"net/http"
	"sync"
	"time"

	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
)

// SessionCookieName holds the SessionToken issued by the backend.
const SessionCookieName = "selfieauth_session"

// cookieTokens is the TokenStore of one request. It reads the incoming cookie
// once and then answers from its own slot, so a write is visible to the next
// read of the same request before the browser ever sees the Set-Cookie.
type cookieTokens struct {
	mu     sync.Mutex
	r      *router.Request
	secure bool

	loaded bool
	token  string
}

func newCookieTokens(r *router.Request, secure bool) *cookieTokens {
	return &cookieTokens{r: r, secure: secure}
}

func (c *cookieTokens) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loaded = true
		if ck, err := c.r.Cookie(SessionCookieName); err == nil {
			c.token = ck.Value
		}
	}

	return c.token, c.token != ""
}

func (c *cookieTokens) SetToken(token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = true
	c.token = token

	ck := c.cookie(token)
	if !expiresAt.IsZero() {
		ck.Expires = expiresAt.UTC()
	}
	c.r.SetCookie(ck)
}

func (c *cookieTokens) ClearToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loaded = true
	c.token = ""

	ck := c.cookie("")
	ck.MaxAge = -1
	c.r.SetCookie(ck)
}

func (c *cookieTokens) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
