package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/selfieauth/internal/pkg/hash"
	"github.com/shandysiswandi/selfieauth/internal/pkg/uid"
)

// FlowCookieName carries the signed flow id between the browser and the service.
const FlowCookieName = "selfieauth_flow"

//nolint:gochecknoglobals // read-only
var insecureEnvs = []string{"local", "dev", "development", "test"}

type flowIDKey struct{}

// FlowID returns the flow id resolved by the flow middleware, or "".
func FlowID(ctx context.Context) string {
	id, _ := ctx.Value(flowIDKey{}).(string)
	return id
}

// WithFlowID stores id as the current flow id.
func WithFlowID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, flowIDKey{}, id)
}

// SecureCookies reports whether cookies must carry the Secure attribute in env.
func SecureCookies(env string) bool {
	return !lo.Contains(insecureEnvs, strings.ToLower(strings.TrimSpace(env)))
}

// FlowCookie configures how the flow cookie is issued and verified.
type FlowCookie struct {
	Signer hash.Hash
	IDs    uid.StringID
	Secure bool
	// TTL is refreshed on every request so the cookie lives as long as the
	// stored flow.
	TTL time.Duration
}

func (fc FlowCookie) resolve(r *http.Request) (id string, fresh bool) {
	c, err := r.Cookie(FlowCookieName)
	if err == nil {
		id, sig, ok := strings.Cut(c.Value, ".")
		if ok && uid.Valid(id) && fc.Signer.Verify(sig, id) {
			return id, false
		}
		slog.WarnContext(r.Context(), "flow cookie rejected, issuing a new flow")
	}

	return fc.IDs.Generate(), true
}

func (fc FlowCookie) cookie(id string) (*http.Cookie, error) {
	sig, err := fc.Signer.Hash(id)
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     FlowCookieName,
		Value:    id + "." + string(sig),
		Path:     "/",
		MaxAge:   int(fc.TTL.Seconds()),
		HttpOnly: true,
		Secure:   fc.Secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// middlewareFlow binds every API request to a flow id, issuing a fresh one
// when the cookie is missing or tampered with.
func middlewareFlow(fc FlowCookie) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fc.Signer == nil || fc.IDs == nil || !strings.HasPrefix(r.URL.Path, apiPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			id, fresh := fc.resolve(r)
			c, err := fc.cookie(id)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to sign flow cookie", "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, c)
			if fresh {
				slog.DebugContext(r.Context(), "new flow issued", "flow_id", id)
			}

			next.ServeHTTP(w, r.WithContext(WithFlowID(r.Context(), id)))
		})
	}
}
