package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/handlers"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, db *gorm.DB, jwt *iauth.JWTService, authService *iauth.AuthService) {
	authHandler := handlers.NewAuthHandler(authService, jwt)

	auth := r.Group("/api/auth")
	auth.Use(middleware.RateLimit(authRateLimit, time.Minute))
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-verification-email", authHandler.ResendVerification)
		auth.POST("/login", authHandler.Login)
		auth.GET("/send-login-otp", authHandler.SendLoginOTP)
		auth.POST("/login-with-otp", authHandler.LoginWithOTP)
		auth.POST("/google", authHandler.GoogleSignIn)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/set-new-password", authHandler.ResetPassword)
	}

	requireAuth := middleware.Auth(jwt)
	auth.GET("/logout", requireAuth, authHandler.Logout)
	auth.GET("/validate", requireAuth, authHandler.Validate)
}
