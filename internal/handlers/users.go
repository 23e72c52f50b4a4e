package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	appErrors "github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

// UserHandler exposes the staff-only user administration routes.
type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var users []models.User
	if err := h.db.Order("created_at DESC").Find(&users).Error; err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	payload := make([]gin.H, 0, len(users))
	for i := range users {
		payload = append(payload, userPayload(&users[i]))
	}

	response.Success(c, http.StatusOK, gin.H{"users": payload})
}
