package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/quill/internal/auth/service"
	"github.com/aussiebroadwan/quill/internal/auth/store"
	"github.com/aussiebroadwan/quill/pkg/httpx"
	"github.com/aussiebroadwan/quill/pkg/slogx"

	_ "github.com/aussiebroadwan/quill/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultAPIPrefix is mounted in front of every API route. Health and docs
// endpoints live at the root.
const DefaultAPIPrefix = "/api/v1"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	prefix       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Guard           *service.Guard
	Tokens          *service.TokenIssuer
	AuthService     *service.AuthService
	MFAService      *service.MFAService
	IdentityService *service.IdentityService

	// RateLimit applies per client IP to registration. Login, refresh and
	// MFA submission are never throttled.
	RateLimit httpx.RateLimitConfig
}

func NewRouter(prefix, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		prefix:       prefix,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		httpx.Recover(),
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Quill Authentication API
//	@version		0.1.0
//	@description	Login, MFA step-up, token refresh and user management for the Quill blog platform.
//	@description
//	@description				Tokens are HS256 JWTs. Access tokens authorize API calls; refresh tokens are only accepted by /auth/refresh.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/quill
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:3001
//	@BasePath					/api/v1
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under method and the API prefix, guarded by the policy
// of op. Extra middleware runs outside the guard.
func (r *Router) handle(method, path string, op Operation, h http.HandlerFunc, extra ...httpx.Middleware) {
	mws := make([]httpx.Middleware, 0, len(extra)+1)
	mws = append(mws, extra...)
	mws = append(mws, r.authorize(op))

	r.Mux.Handle(method+" "+r.prefix+path, httpx.Chain(h, mws...))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:     r.AuthService,
		IdentityService: r.IdentityService,
	}

	r.handle(http.MethodPost, "/auth/login", OpLogin, h.HandleLogin)
	r.handle(http.MethodPost, "/auth/refresh", OpRefresh, h.HandleRefresh)
	r.handle(http.MethodGet, "/auth/profile", OpProfile, h.HandleProfile)
	r.handle(http.MethodGet, "/auth/admin", OpAdminCheck, h.HandleAdmin)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.handle(http.MethodPost, "/auth/mfa/setup", OpMFAEnroll, h.HandleSetup)
	r.handle(http.MethodPost, "/auth/mfa/verify", OpMFAConfirm, h.HandleVerify)
	r.handle(http.MethodPost, "/auth/mfa/disable", OpMFADisable, h.HandleDisable)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		IdentityService: r.IdentityService,
		Check:           r.check,
	}

	r.handle(http.MethodPost, "/users", OpRegister, h.HandleCreate, httpx.RateLimitByIP(r.RateLimit))
	r.handle(http.MethodGet, "/users", OpListUsers, h.HandleList)
	r.handle(http.MethodGet, "/users/{id}", OpGetUser, h.HandleGet)
	r.handle(http.MethodPut, "/users/{id}", OpUpdateUser, h.HandleUpdate)
	r.handle(http.MethodDelete, "/users/{id}", OpDeleteUser, h.HandleDelete)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Tokens))
}
