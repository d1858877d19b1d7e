package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/carefinder/internal/infra/config"
	"github.com/yanqian/carefinder/internal/infra/telemetry"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, metrics *telemetry.Metrics) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		metricsMiddleware(metrics),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1", rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.GET("/states", handler.States)
		api.POST("/recommendations", handler.Recommend)
		api.POST("/evaluations", handler.Evaluate)
		api.POST("/catalog/refresh", handler.RefreshCatalog)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
