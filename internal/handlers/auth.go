package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/middleware"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/models"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/errors"
	"github.com/DanSmirnov48/techno-trades-sub000/pkg/response"
)

// AuthHandler exposes the account flows over HTTP.
type AuthHandler struct {
	auth *iauth.AuthService
	jwt  *iauth.JWTService
}

func NewAuthHandler(auth *iauth.AuthService, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{auth: auth, jwt: jwt}
}

// userPayload is the safe projection of a user returned to clients.
func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"avatar":         user.Avatar,
		"role":           user.Role,
		"email_verified": user.EmailVerified,
		"created_at":     user.CreatedAt,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=64"`
	LastName  string `json:"lastName" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), iauth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": userPayload(user)})
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.VerifyEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/resend-verification-email
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	setAuthCookies(c, pair, h.jwt.AccessTokenTTL(), h.jwt.RefreshTokenTTL())
	response.Success(c, http.StatusCreated, gin.H{
		"user":   userPayload(user),
		"tokens": pair,
	})
}

// GET /api/auth/send-login-otp?email=...
func (h *AuthHandler) SendLoginOTP(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Error(c, errors.NewBadRequest("email query parameter is required"))
		return
	}

	if err := h.auth.SendLoginOTP(c.Request.Context(), email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"sent": true})
}

type loginWithOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// POST /api/auth/login-with-otp
func (h *AuthHandler) LoginWithOTP(c *gin.Context) {
	var req loginWithOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.auth.LoginWithOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	setAuthCookies(c, pair, h.jwt.AccessTokenTTL(), h.jwt.RefreshTokenTTL())
	response.Success(c, http.StatusCreated, gin.H{
		"user":   userPayload(user),
		"tokens": pair,
	})
}

type googleSignInRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// POST /api/auth/google
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req googleSignInRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.auth.GoogleSignIn(c.Request.Context(), req.Credential)
	if err != nil {
		response.Error(c, err)
		return
	}

	setAuthCookies(c, pair, h.jwt.AccessTokenTTL(), h.jwt.RefreshTokenTTL())
	response.Success(c, http.StatusCreated, gin.H{
		"user":   userPayload(user),
		"tokens": pair,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := c.Cookie(refreshTokenCookie); err == nil {
			token = strings.TrimSpace(cookie)
		}
	}
	if token == "" {
		response.Error(c, errors.ErrInvalidOrExpiredToken)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	setAuthCookies(c, pair, h.jwt.AccessTokenTTL(), h.jwt.RefreshTokenTTL())
	response.Success(c, http.StatusCreated, gin.H{"tokens": pair})
}

// GET /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.UserID(c)
	token := middleware.AccessToken(c)
	if userID == "" || token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), userID, token); err != nil {
		response.Error(c, err)
		return
	}

	clearAuthCookies(c)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/validate
func (h *AuthHandler) Validate(c *gin.Context) {
	user, err := h.auth.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userPayload(user)})
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sent": true})
}

type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// POST /api/auth/set-new-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true})
}
