package main

import (
	"fmt"
	"log/slog"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/user-service/config"
	"github.com/arunvm123/tourismbooking/user-service/repository/postgres"
	"github.com/arunvm123/tourismbooking/user-service/service"
	"github.com/gin-gonic/gin"
)

func SetupRouter(cfg *config.Config, log *slog.Logger) (*gin.Engine, error) {
	repo, err := postgres.NewUserRepository(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, "user-service")

	accounts := service.NewAccountService(repo, jwtService, service.AccountOptions{
		TokenTTL:    cfg.Auth.TokenTTL(),
		BcryptCost:  cfg.Auth.BcryptCost,
		IsAdminMail: cfg.Auth.IsAdminEmail,
	}, log)

	gin.SetMode(logging.GinMode(cfg.Env))
	return newRouter(NewUserHandler(accounts, repo, log), jwtService, log), nil
}

func newRouter(handler *UserHandler, jwtService *auth.JWTService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(auth.CORSMiddleware())
	r.Use(logging.RequestLogger(log))

	// Health check endpoint (no auth required)
	r.GET("/health", handler.HealthCheck)

	users := r.Group("/api/users")

	// Public endpoints (no auth required)
	users.POST("/register", handler.RegisterUser)
	users.POST("/login", handler.LoginUser)

	users.GET("/me", auth.AuthMiddleware(jwtService), handler.GetMe)

	return r
}
