package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds cross-origin settings for the API surface. An empty
// AllowedOrigins list allows every origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// DefaultCORSConfig returns a config that allows every origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{}
}

// allows reports whether the given origin may call the API.
func (cfg CORSConfig) allows(origin string) bool {
	if len(cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Disallowed origins pass through without CORS headers; browsers then block
// the response on their side.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && !cfg.allows(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Credentials", "false")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		h.Set("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
