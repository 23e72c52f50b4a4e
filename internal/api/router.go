package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/DanSmirnov48/techno-trades-sub000/internal/auth"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/handlers"
	"github.com/DanSmirnov48/techno-trades-sub000/internal/middleware"
)

// authRateLimit is the tighter budget applied to the credential endpoints.
const authRateLimit = 20

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, auth *iauth.AuthService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if auth == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(100, time.Minute))

	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(r, db, jwt, auth)
	registerUserRoutes(r, db, jwt, auth)

	return r, nil
}
