package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/kanso-dashboard/docs"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-dashboard/internal/adapters/metrics"
)

const healthCheckTimeout = 2 * time.Second

const (
	statusConnected   = "connected"
	statusUnreachable = "unreachable"
	statusDisabled    = "disabled"
)

// RouterDependencies wires the HTTP surface. DB, Redis and Metrics are
// optional: a nil DB means in-memory storage, a nil Redis disables rate
// limiting, a nil Metrics hides /metrics.
type RouterDependencies struct {
	AuthHandler  *AuthHandler
	HabitHandler *HabitHandler
	EntryHandler *EntryHandler
	StatsHandler *StatsHandler
	Tokens       middleware.TokenValidator
	DB           *sqlx.DB
	Redis        *redis.Client
	RateLimit    middleware.RateLimitConfig
	Metrics      *metrics.Exporter
	Swagger      bool
	StartTime    time.Time
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", healthHandler(deps))

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiV1 := router.Group("/api/v1")
	if deps.Redis != nil && deps.RateLimit.Limit > 0 {
		apiV1.Use(middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit))
	}

	deps.AuthHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		deps.HabitHandler.RegisterRoutes(protected)
		deps.EntryHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
	}

	return router
}

// healthHandler reports 503 only when a configured backend is down.
func healthHandler(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		res := healthResponse{
			Status:   "ok",
			Database: statusDisabled,
			Redis:    statusDisabled,
			Uptime:   time.Since(deps.StartTime).Round(time.Second).String(),
		}

		if deps.DB != nil {
			res.Database = statusConnected
			if err := deps.DB.PingContext(ctx); err != nil {
				res.Database = statusUnreachable
			}
		}
		if deps.Redis != nil {
			res.Redis = statusConnected
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				res.Redis = statusUnreachable
			}
		}

		code := http.StatusOK
		if res.Database == statusUnreachable || res.Redis == statusUnreachable {
			res.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, res)
	}
}
