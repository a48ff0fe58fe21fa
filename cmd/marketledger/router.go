package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ledgerhttp "github.com/wyfcoding/marketledger/internal/ledger/interfaces/http"
	markethttp "github.com/wyfcoding/marketledger/internal/marketdata/interfaces/http"
	"github.com/wyfcoding/marketledger/pkg/middleware"
	"github.com/wyfcoding/marketledger/pkg/ratelimit"
)

// router 组装中间件与路由，/api/health 与 /metrics 免鉴权
func (a *App) router() *gin.Engine {
	if a.cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(a.metrics),
		middleware.GinCORSMiddleware(),
	)
	if a.cfg.Auth.Enabled {
		r.Use(middleware.APIKeyAuthMiddleware(a.cfg.Auth.APIKeys, "/api/health", "/metrics"))
	}
	if a.cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(a.limiter, ratelimit.Limit{
			Rate:   a.cfg.RateLimit.Requests,
			Period: a.cfg.RateLimit.Period,
			Burst:  a.cfg.RateLimit.Burst,
		}))
	}

	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", a.health)
	markethttp.NewMarketDataHandler(a.quotes, a.indicators).RegisterRoutes(api)
	ledgerhttp.NewTransactionHandler(a.ledger).RegisterRoutes(api)
	return r
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "UP", http.StatusOK
	database := "UP"
	if err := a.db.Ping(ctx); err != nil {
		database, status, code = "DOWN", "DOWN", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   a.cfg.ServiceName,
		"version":   a.cfg.Version,
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
