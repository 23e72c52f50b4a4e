package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/handlers"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/middleware"
)

func registerUserRoutes(r *gin.Engine, db *gorm.DB, jwt *iauth.JWTService, authService *iauth.AuthService) {
	profileHandler := handlers.NewProfileHandler(authService)
	userHandler := handlers.NewUserHandler(db)

	users := r.Group("/api/users")
	users.Use(middleware.Auth(jwt))
	{
		users.PATCH("/update-my-password", profileHandler.ChangePassword)
		users.GET("/send-email-change-otp", profileHandler.SendEmailChangeOTP)
		users.PATCH("/update-my-email", profileHandler.ChangeEmail)

		users.GET("", middleware.RequireAdmin(db), userHandler.List)
	}
}
