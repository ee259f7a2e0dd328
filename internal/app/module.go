package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/selfieauth/internal/auth"
	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
)

func (a *App) initModules() {
	if err := auth.New(auth.Dependency{
		CacheConn:     a.cacheConn,
		Goroutine:     a.goroutine,
		Router:        a.router,
		Idempotency:   a.idemp,
		Messaging:     a.messaging,
		Config:        a.config,
		Instrument:    a.ins,
		Clock:         a.clock,
		Validator:     a.validator,
		JWT:           a.jwt,
		SecureCookies: router.SecureCookies(a.env),
	}); err != nil {
		slog.Error("failed to init module auth", "error", err)
		os.Exit(1)
	}
}
