package middlewares

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/utils"
)

// Query parameters that carry credentials: websocket access tokens, email
// confirmation tokens and login-link codes.
var redactedParams = []string{"token", "code"}

func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + redactQuery(raw)
		}

		if status >= 500 {
			utils.ErrorLogger.Printf("%s | %3d | %13v | %15s | %s", c.Request.Method, status, latency, c.ClientIP(), path)
			return
		}
		utils.InfoLogger.Printf("%s | %3d | %13v | %15s | %s", c.Request.Method, status, latency, c.ClientIP(), path)
	}
}

func redactQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparseable query]"
	}
	for _, key := range redactedParams {
		if _, ok := values[key]; ok {
			values.Set(key, "REDACTED")
		}
	}
	return values.Encode()
}
