package entity

import (
	"net/http"
	"time"
)

// TokenStore persists the SessionToken issued by the backend. A ClearToken
// is visible to the very next Token call.
type TokenStore interface {
	Token() (string, bool)
	// SetToken stores token. A zero expiresAt keeps it for the browser session.
	SetToken(token string, expiresAt time.Time)
	ClearToken()
}

// BackendReply is the interpreted answer of the remote authentication backend.
type BackendReply struct {
	StatusCode int
	Success    bool
	Message    string
	Token      string
	ImageURL   string
}

// OK reports a 2xx status without an explicit success:false.
func (r BackendReply) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices && r.Success
}

// Unauthorized reports a rejected session token.
func (r BackendReply) Unauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized
}

// MessageOr returns the backend message, or fallback when it sent none.
func (r BackendReply) MessageOr(fallback string) string {
	if r.Message == "" {
		return fallback
	}
	return r.Message
}

// Portrait is what gets uploaded to the backend.
type Portrait struct {
	Image    SelfieImage
	Username string
	Token    string
}
