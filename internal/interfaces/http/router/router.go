// Package router assembles the gin engine for the sync service.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/YKLee98/naver-sub003/internal/infrastructure/logger"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config selects the middleware stack
type Config struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	// WebhookMaxBodySize overrides MaxBodySize under /webhooks
	WebhookMaxBodySize int64
	RateLimiter        *middleware.RateLimiter
	TrustedProxies     []string
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	webhooks   RouteRegistrar
	cfg        Config
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithWebhooks mounts a registrar outside the rate limiter. Shopify retries
// throttled deliveries, so limiting them only adds redelivery traffic.
func WithWebhooks(registrar RouteRegistrar) RouterOption {
	return func(r *Router) {
		r.webhooks = registrar
	}
}

// New builds a gin engine with recovery, request ids, tracing and access logs
func New(cfg Config, log *zap.Logger, opts ...RouterOption) (*Router, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Annotate())
	engine.Use(logger.GinMiddleware(log, "/health", "/health/live", "/metrics"))

	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Engine exposes the gin engine for unversioned routes
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Handler returns the engine as an http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	if r.webhooks != nil {
		limit := r.cfg.WebhookMaxBodySize
		if limit <= 0 {
			limit = r.cfg.MaxBodySize
		}
		r.webhooks.RegisterRoutes(api.Group("", middleware.BodyCap(limit)))
	}

	rest := api.Group("", middleware.BodyLimit(r.cfg.MaxBodySize))
	if r.cfg.RateLimiter != nil {
		rest.Use(middleware.RateLimit(r.cfg.RateLimiter))
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(rest)
	}
}
