package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/selfieauth/internal/pkg/config"
)

// middlewareMaintenance blocks the routes listed in app.maintenance.endpoints.
// "*" blocks every route except the health probe. The list is read per
// request so a config reload takes effect without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil {
				next.ServeHTTP(w, r)
				return
			}

			route := matchedRoutePath(r)
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if slices.Contains(blocked, route) || (slices.Contains(blocked, "*") && route != healthPath) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
