package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = "600"

// corsMiddleware answers preflights from the browser frontend. An empty
// allow list or a "*" entry admits any origin; otherwise only listed
// origins receive CORS headers.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := len(allowed) == 0
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		origins[strings.ToLower(o)] = struct{}{}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := origins[strings.ToLower(origin)]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
			}
		}

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
