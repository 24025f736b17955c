package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/quill/internal/auth/http"
	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/jwtx"
	"github.com/aussiebroadwan/quill/pkg/slogx"
	"github.com/aussiebroadwan/quill/pkg/totpx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	hasher *cryptox.Hasher
	signer *jwtx.HMACSigner
	totp   *totpx.Provider

	// Services
	tokens          *service.TokenIssuer
	guard           *service.Guard
	authService     *service.AuthService
	mfaService      *service.MFAService
	identityService *service.IdentityService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper, cfg.HashConcurrency)

	signer, err := InitSigner(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer
	app.totp = totpx.NewProvider(cfg.MFAIssuer)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run seeds the first admin if configured, starts the server and blocks
// until shutdown is requested.
func (app *Application) Run() error {
	if err := app.seedAdmin(context.Background()); err != nil {
		return err
	}

	app.logger.Info("auth service starting",
		slog.Int("port", app.cfg.Port),
		slog.String("version", BuildVersion),
		slog.String("api_prefix", app.cfg.APIPrefix),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the routed API, mostly for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	version, _, err := db.SchemaVersion()
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	app.logger.Info("database migrations applied successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokens = &service.TokenIssuer{
		Signer:    app.signer,
		AccessTTL: app.cfg.JWTExpiration,
	}
	app.guard = &service.Guard{Tokens: app.tokens}

	app.authService = &service.AuthService{
		Store:  app.db,
		Hasher: app.hasher,
		TOTP:   app.totp,
		Tokens: app.tokens,
	}
	app.mfaService = &service.MFAService{
		Store: app.db,
		TOTP:  app.totp,
	}
	app.identityService = &service.IdentityService{
		Store:  app.db,
		Hasher: app.hasher,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.cfg.APIPrefix, BuildVersion, app.db, app.logger)

	router.Guard = app.guard
	router.Tokens = app.tokens
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.IdentityService = app.identityService
	router.RateLimit = app.cfg.RateLimit()
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// seedAdmin creates the first admin when the store is empty. A generated
// password is logged exactly once.
func (app *Application) seedAdmin(ctx context.Context) error {
	if !app.cfg.SeedsAdmin() {
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	password, created, err := app.identityService.SeedAdmin(ctx, service.SeedAdmin{
		Username: app.cfg.AdminUsername,
		Email:    app.cfg.AdminEmail,
		Password: app.cfg.AdminPassword,
	})
	if err != nil {
		return err
	}

	if created && app.cfg.AdminPassword == "" {
		app.logger.Warn("generated admin password, change it after first login",
			slog.String("username", app.cfg.AdminUsername),
			slog.String("password", password),
		)
	}
	return nil
}
