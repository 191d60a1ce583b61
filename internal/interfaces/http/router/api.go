package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/dronestore/storefront/docs"
	cartapp "github.com/dronestore/storefront/internal/application/cart"
	"github.com/dronestore/storefront/internal/infrastructure/auth"
	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/dronestore/storefront/internal/infrastructure/logger"
	"github.com/dronestore/storefront/internal/interfaces/http/handler"
	"github.com/dronestore/storefront/internal/interfaces/http/middleware"
)

// APIConfig carries everything the storefront API is built from
type APIConfig struct {
	Name    string
	HTTP    config.HTTPConfig
	Tracing bool

	Logger   *zap.Logger
	Meter    metric.Meter // nil disables HTTP metrics
	JWT      *auth.JWTService
	Carts    *cartapp.Service
	Products *cartapp.ProductService
	Health   handler.Pinger // nil reports the database as disabled
}

// API is the assembled storefront HTTP handler
type API struct {
	engine  *gin.Engine
	limiter *middleware.RateLimiter
}

// NewAPI builds the gin engine serving /health, /swagger when enabled and
// the /api/v1 routes:
//
//	GET    /products          public
//	GET    /products/:id      public
//	GET    /cart              bearer token
//	DELETE /cart              bearer token
//	POST   /cart/items        bearer token
//	PATCH  /cart/items/:id    bearer token
//	DELETE /cart/items/:id    bearer token
func NewAPI(cfg APIConfig) (*API, error) {
	if cfg.JWT == nil || cfg.Carts == nil || cfg.Products == nil {
		return nil, errors.New("router: JWT, Carts and Products are required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log, logger.WithQuietPaths("/health")),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.Name, Enabled: cfg.Tracing}),
		middleware.SpanErrorMarker(),
		metrics,
	)
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	system := handler.NewSystemHandler(cfg.Name, cfg.Health)
	engine.GET("/health", system.Health)
	if cfg.HTTP.SwaggerEnabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := &API{engine: engine}

	cartAuth := []gin.HandlerFunc{middleware.JWTAuth(middleware.JWTAuthConfig{
		Verifier: cfg.JWT,
		Logger:   log,
	})}
	if cfg.HTTP.RateLimitEnabled {
		api.limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		cartAuth = append(cartAuth, middleware.RateLimit(api.limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	products := handler.NewProductHandler(cfg.Products)
	carts := handler.NewCartHandler(cfg.Carts)

	routes := NewRouter(engine, "v1").Mount(
		Group{
			Name:   "system",
			Prefix: "/system",
			Endpoints: []Endpoint{
				Handle(http.MethodGet, "/info", system.GetSystemInfo),
				Handle(http.MethodGet, "/ping", system.Ping),
			},
		},
		Group{
			Name:   "catalog",
			Prefix: "/products",
			Endpoints: []Endpoint{
				Handle(http.MethodGet, "", products.List),
				Handle(http.MethodGet, "/:id", products.Get),
			},
		},
		Group{
			Name:       "cart",
			Prefix:     "/cart",
			Middleware: cartAuth,
			Endpoints: []Endpoint{
				Handle(http.MethodGet, "", carts.Get),
				Handle(http.MethodDelete, "", carts.Clear),
			},
			Subgroups: []Group{{
				Name:   "cart_items",
				Prefix: "/items",
				Endpoints: []Endpoint{
					Handle(http.MethodPost, "", carts.AddItem),
					Handle(http.MethodPatch, "/:id", carts.SetQuantity),
					Handle(http.MethodDelete, "/:id", carts.RemoveItem),
				},
			}},
		},
	)
	for _, route := range routes {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	engine.NoRoute(handler.RouteNotFound)

	return api, nil
}

// ServeHTTP implements http.Handler
func (a *API) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	a.engine.ServeHTTP(w, req)
}

// Engine returns the underlying gin engine
func (a *API) Engine() *gin.Engine {
	return a.engine
}

// Close stops background work owned by the API
func (a *API) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
}
