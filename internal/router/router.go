package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/skartik/commerce-api/internal/handler/auth"
	"github.com/skartik/commerce-api/internal/handler/catalog"
	"github.com/skartik/commerce-api/internal/handler/contact"
	"github.com/skartik/commerce-api/internal/handler/health"
	"github.com/skartik/commerce-api/internal/handler/order"
	"github.com/skartik/commerce-api/internal/handler/page"
	"github.com/skartik/commerce-api/internal/handler/settings"
	"github.com/skartik/commerce-api/internal/middleware"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	healthH   *health.Handler
	authH     *auth.Handler
	catalogH  *catalog.Handler
	orderH    *order.Handler
	pageH     *page.Handler
	contactH  *contact.Handler
	settingsH *settings.Handler
}

func New(
	authMW *middleware.AuthMiddleware,
	healthH *health.Handler,
	authH *auth.Handler,
	catalogH *catalog.Handler,
	orderH *order.Handler,
	pageH *page.Handler,
	contactH *contact.Handler,
	settingsH *settings.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(config.CORSConfig),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return &Router{
		engine:    engine,
		auth:      authMW,
		healthH:   healthH,
		authH:     authH,
		catalogH:  catalogH,
		orderH:    orderH,
		pageH:     pageH,
		contactH:  contactH,
		settingsH: settingsH,
	}
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	// Public storefront routes
	r.authH.RegisterRoutes(api)
	r.catalogH.RegisterRoutes(api)
	r.orderH.RegisterRoutes(api)
	r.pageH.RegisterRoutes(api)
	r.contactH.RegisterRoutes(api)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate(), r.auth.RequireAdmin())
	{
		r.catalogH.RegisterAdminRoutes(admin)
		r.orderH.RegisterAdminRoutes(admin)
		r.pageH.RegisterAdminRoutes(admin)
		r.settingsH.RegisterAdminRoutes(admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
