package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

const (
	ctxUserID        = "user_id"
	ctxRole          = "role"
	ctxUser          = "user"
	ctxEstablishment = "establishment"
)

// AuthMiddleware accepts "Authorization: Bearer <token>" and loads the user
// behind it.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Authorization header must use the Bearer scheme"))
			return
		}

		authenticate(c, db, strings.TrimPrefix(authHeader, "Bearer "))
	}
}

func authenticate(c *gin.Context, db *gorm.DB, tokenString string) {
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
		return
	}

	var user models.User
	if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("Account no longer exists"))
			return
		}
		utils.ErrorLogger.Printf("Failed to load user %d: %v", claims.UserID, err)
		utils.AbortWithError(c, http.StatusInternalServerError, errors.New("Failed to load account"))
		return
	}

	c.Set(ctxUserID, user.ID)
	c.Set(ctxRole, user.Role)
	c.Set(ctxUser, &user)
	c.Next()
}

// CurrentUser returns the user set by AuthMiddleware or WebSocketAuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
