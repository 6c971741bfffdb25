package middlewares

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/services"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

// EstablishmentAccess loads :establishment_id and lets through its owner and
// staff. Must run after an auth middleware.
func EstablishmentAccess(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("establishment_id"), 10, 64)
		if err != nil {
			utils.AbortWithError(c, http.StatusBadRequest, errors.New("Invalid establishment ID"))
			return
		}

		var est models.Establishment
		if err := db.WithContext(c.Request.Context()).First(&est, uint(id)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.AbortWithError(c, http.StatusNotFound, errors.New("Establishment not found"))
				return
			}
			utils.ErrorLogger.Printf("Failed to load establishment %d: %v", id, err)
			utils.AbortWithError(c, http.StatusInternalServerError, errors.New("Failed to load establishment"))
			return
		}

		if !services.CanView(CurrentUser(c), &est) {
			utils.AbortWithError(c, http.StatusForbidden, errors.New("You do not work at this establishment"))
			return
		}

		c.Set(ctxEstablishment, &est)
		c.Next()
	}
}

// RequireManage restricts a route to the establishment's owner.
func RequireManage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !services.CanManage(CurrentUser(c), CurrentEstablishment(c)) {
			utils.AbortWithError(c, http.StatusForbidden, errors.New("Only the owner can do this"))
			return
		}
		c.Next()
	}
}

// RequireRole lets through users with one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ctxRole)
		if !exists {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}
		utils.AbortWithError(c, http.StatusForbidden, errors.New("Your role cannot access this resource"))
	}
}

func CurrentEstablishment(c *gin.Context) *models.Establishment {
	if v, ok := c.Get(ctxEstablishment); ok {
		if est, ok := v.(*models.Establishment); ok {
			return est
		}
	}
	return nil
}
