package app

import (
	"context"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/selfieauth/internal/pkg/clock"
	"github.com/shandysiswandi/selfieauth/internal/pkg/config"
	"github.com/shandysiswandi/selfieauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/selfieauth/internal/pkg/hash"
	"github.com/shandysiswandi/selfieauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/selfieauth/internal/pkg/instrument"
	"github.com/shandysiswandi/selfieauth/internal/pkg/jwt"
	"github.com/shandysiswandi/selfieauth/internal/pkg/messaging"
	"github.com/shandysiswandi/selfieauth/internal/pkg/router"
	"github.com/shandysiswandi/selfieauth/internal/pkg/uid"
	"github.com/shandysiswandi/selfieauth/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation
	env    string

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uuid      uid.StringID
	jwt       *jwt.Inspector

	// resources
	cacheConn redis.UniversalClient
	idemp     idempotency.Idempotency
	messaging messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initCache()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
