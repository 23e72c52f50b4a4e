package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	appErrors "github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

// RequireAdmin gates a route to active admin accounts. It must run after Auth.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		var user models.User
		err := db.Take(&user, "id = ? AND is_active = ?", userID, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if err != nil {
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}

		if user.Role != models.RoleAdmin {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
