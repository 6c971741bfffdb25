package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

// WebSocketAuthMiddleware reads the access token from ?token=, since
// browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("token query parameter missing"))
			return
		}
		authenticate(c, db, token)
	}
}
