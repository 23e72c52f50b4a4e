package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/middleware"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

// ProfileHandler covers the authenticated self-service account routes.
type ProfileHandler struct {
	auth *iauth.AuthService
}

func NewProfileHandler(auth *iauth.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: auth}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// PATCH /api/users/update-my-password
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), middleware.UserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// GET /api/users/send-email-change-otp?newEmail=...
//
// The code is delivered to the requested address: receiving it is what
// proves ownership before the switch is confirmed.
func (h *ProfileHandler) SendEmailChangeOTP(c *gin.Context) {
	newEmail := strings.TrimSpace(c.Query("newEmail"))
	if newEmail == "" {
		response.Error(c, errors.NewBadRequest("newEmail query parameter is required"))
		return
	}

	err := h.auth.RequestEmailChange(c.Request.Context(), middleware.UserID(c), newEmail)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type changeEmailRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

// PATCH /api/users/update-my-email
func (h *ProfileHandler) ChangeEmail(c *gin.Context) {
	var req changeEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.auth.ConfirmEmailChange(c.Request.Context(), middleware.UserID(c), req.NewEmail, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userPayload(user)})
}
