package jwt

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type clocker interface {
	Now() time.Time
}

// Inspector extracts expiry information from backend tokens.
type Inspector struct {
	parser *jwt.Parser
	clock  clocker
	// leeway shortens the usable lifetime so a token is not sent moments
	// before it expires.
	leeway time.Duration
}

// NewInspector builds an Inspector using clock as time source.
func NewInspector(clock clocker, leeway time.Duration) *Inspector {
	return &Inspector{
		parser: jwt.NewParser(),
		clock:  clock,
		leeway: leeway,
	}
}

// ExpiresAt returns the exp claim of token. ok is false when the token is
// opaque or carries no exp.
func (i *Inspector) ExpiresAt(token string) (exp time.Time, ok bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := i.parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.Time, true
}

// Expired reports whether token has an exp claim that is already in the
// past. Opaque tokens never expire from the service's point of view.
func (i *Inspector) Expired(token string) bool {
	exp, ok := i.ExpiresAt(token)
	if !ok {
		return false
	}
	return !i.clock.Now().Add(i.leeway).Before(exp)
}
