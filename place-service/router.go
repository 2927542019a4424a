package main

import (
	"fmt"
	"log/slog"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/place-service/cache"
	"github.com/arunvm123/tourismbooking/place-service/config"
	"github.com/arunvm123/tourismbooking/place-service/repository/postgres"
	"github.com/arunvm123/tourismbooking/place-service/service"
	"github.com/gin-gonic/gin"
)

func SetupRouter(cfg *config.Config, log *slog.Logger) (*gin.Engine, error) {
	repo, err := postgres.NewPlaceRepository(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	store := cache.NewStore(clock.Real(), cfg.Cache.DefaultTTL())
	store.Register(cache.NamespacePlaces, cfg.Cache.PlacesTTL())
	store.Register(cache.NamespaceFavorites, cfg.Cache.FavoritesTTL())

	catalog := cache.NewCatalogCache(store, repo, log)
	favoritesCache := cache.NewFavoritesCache(store, repo, log)

	placeService := service.NewPlaceService(repo, catalog, favoritesCache, log)
	favoritesService := service.NewFavoritesService(repo, repo, favoritesCache, log)

	handler := NewPlaceHandler(placeService, favoritesService, store, repo, log)
	jwtService := auth.NewJWTService(cfg.JWTSecret, "place-service")

	gin.SetMode(logging.GinMode(cfg.Env))
	return newRouter(handler, jwtService, log), nil
}

func newRouter(handler *PlaceHandler, jwtService *auth.JWTService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(auth.CORSMiddleware())
	r.Use(logging.RequestLogger(log))

	// Health check endpoint (no auth required)
	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")

	// Public catalog endpoints
	places := api.Group("/places")
	places.GET("", handler.ListPlaces)
	places.GET("/categories", handler.ListCategories)
	places.GET("/:id", handler.GetPlace)

	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(jwtService))

	favorites := protected.Group("/favorites")
	favorites.GET("", handler.ListFavorites)
	favorites.POST("", handler.AddFavorite)
	favorites.POST("/toggle", handler.ToggleFavorite)
	favorites.GET("/check/:placeId", handler.CheckFavorite)
	favorites.DELETE("/:placeId", handler.RemoveFavorite)

	admin := protected.Group("")
	admin.Use(auth.RequireRole(auth.RoleAdmin))

	admin.POST("/places", handler.CreatePlace)
	admin.PUT("/places/:id", handler.UpdatePlace)
	admin.DELETE("/places/:id", handler.DeletePlace)

	admin.GET("/admin/cache/stats", handler.CacheStats)
	admin.DELETE("/admin/cache/:namespace", handler.ClearCache)
	admin.POST("/admin/cache/preload", handler.PreloadCache)

	return r
}
