package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	verifier    auth.TokenVerifier

	public    []RouteRegistrar
	authed    []RouteRegistrar
	moderator []RouteRegistrar
	admin     []RouteRegistrar
	webhooks  []RouteRegistrar
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 60 * time.Second
)

// NewRouter constructs the chi router with shared middleware and the route
// groups. Authenticated groups are only mounted when a token verifier is
// configured.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.healthz)

	r.Route(cfg.basePath, func(api chi.Router) {
		register(api, cfg.public)
		register(api, cfg.webhooks)

		if cfg.verifier == nil {
			return
		}

		api.Group(func(group chi.Router) {
			group.Use(auth.RequireAuth(cfg.verifier))
			register(group, cfg.authed)
		})

		api.Group(func(group chi.Router) {
			group.Use(auth.RequireAuth(cfg.verifier))
			group.Use(auth.RequireRole(domain.RoleModerator))
			register(group, cfg.moderator)
		})

		api.Group(func(group chi.Router) {
			group.Use(auth.RequireAuth(cfg.verifier))
			group.Use(auth.RequireRole(domain.RoleAdmin))
			register(group, cfg.admin)
		})
	})

	return r
}

func register(r chi.Router, registrars []RouteRegistrar) {
	for _, reg := range registrars {
		if reg != nil {
			reg(r)
		}
	}
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for the /healthz endpoint.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithTokenVerifier configures the verifier guarding authenticated groups.
func WithTokenVerifier(verifier auth.TokenVerifier) Option {
	return func(cfg *routerConfig) {
		cfg.verifier = verifier
	}
}

// WithPublicRoutes appends registrars for unauthenticated endpoints.
func WithPublicRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = append(cfg.public, reg...)
	}
}

// WithAuthedRoutes appends registrars requiring a valid bearer token.
func WithAuthedRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.authed = append(cfg.authed, reg...)
	}
}

// WithModeratorRoutes appends registrars requiring the moderator role.
func WithModeratorRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.moderator = append(cfg.moderator, reg...)
	}
}

// WithAdminRoutes appends registrars requiring the admin role.
func WithAdminRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.admin = append(cfg.admin, reg...)
	}
}

// WithWebhookRoutes appends registrars for gateway webhook endpoints. Webhook
// deliveries authenticate with signatures, not bearer tokens.
func WithWebhookRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.webhooks = append(cfg.webhooks, reg...)
	}
}
