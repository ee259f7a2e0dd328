package router

import (
	"net/http"
	"strings"

	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/uid"
)

// HeaderRequestID is an accepted alternative header name used by some proxies.
const HeaderRequestID = "X-Request-ID"

func middlewareCorrelationID(ids uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cid := incomingCID(r)
			if cid == "" && ids != nil {
				cid = ids.Generate()
			}

			if cid != "" {
				w.Header().Set(instrument.CorrelationIDHeader, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func incomingCID(r *http.Request) string {
	for _, h := range []string{instrument.CorrelationIDHeader, HeaderRequestID} {
		if v := strings.TrimSpace(r.Header.Get(h)); instrument.ValidCorrelationID(v) {
			return v
		}
	}
	return ""
}
