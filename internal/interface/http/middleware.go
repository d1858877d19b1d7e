package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/carefinder/internal/infra/telemetry"
)

// metricsMiddleware labels requests by the matched route so path parameters
// and unknown URLs do not explode label cardinality.
func metricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// errorHandlingMiddleware renders the last error attached to the context as
// {"error":{"code":...,"message":...}} unless a handler already wrote a body.
func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		level := slog.LevelWarn
		if httpErr.Status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			"code", httpErr.Code,
			"status", httpErr.Status,
			"path", c.Request.URL.Path,
			"error", httpErr.Err,
		)

		c.JSON(httpErr.Status, errorBody{Error: errorDetail{Code: httpErr.Code, Message: httpErr.publicMessage()}})
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
