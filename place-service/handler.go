package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/arunvm123/tourismbooking/internal/auth"
	"github.com/arunvm123/tourismbooking/place-service/cache"
	"github.com/arunvm123/tourismbooking/place-service/model"
	"github.com/arunvm123/tourismbooking/place-service/service"
	"github.com/gin-gonic/gin"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type PlaceHandler struct {
	places    *service.PlaceService
	favorites *service.FavoritesService
	store     *cache.Store
	db        pinger
	log       *slog.Logger
}

func NewPlaceHandler(places *service.PlaceService, favorites *service.FavoritesService, store *cache.Store, db pinger, log *slog.Logger) *PlaceHandler {
	return &PlaceHandler{
		places:    places,
		favorites: favorites,
		store:     store,
		db:        db,
		log:       log,
	}
}

// writeError maps service errors onto HTTP responses
func (h *PlaceHandler) writeError(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "validation_failed", Message: verr.Error()})
	case errors.Is(err, model.ErrPlaceNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: "Place not found"})
	case errors.Is(err, model.ErrAlreadyFavorite):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "already_favorite", Message: "Place already in favorites"})
	case errors.Is(err, model.ErrNotFavorite):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "not_favorite", Message: "Place not in favorites"})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal_error", Message: "Internal server error"})
	}
}

func (h *PlaceHandler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "validation_failed",
		Message: err.Error(),
	})
}

// ListPlaces handles GET /api/places?category=
func (h *PlaceHandler) ListPlaces(c *gin.Context) {
	places, err := h.places.ListPlaces(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.PlaceListResponse{
		Places: model.ToPlaceResponses(places),
		Total:  len(places),
	})
}

func (h *PlaceHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": service.Categories()})
}

func (h *PlaceHandler) GetPlace(c *gin.Context) {
	place, err := h.places.GetPlace(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, place.ToPlaceResponse())
}

func (h *PlaceHandler) CreatePlace(c *gin.Context) {
	var req model.CreatePlaceAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	place, err := h.places.CreatePlace(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, place.ToPlaceResponse())
}

func (h *PlaceHandler) UpdatePlace(c *gin.Context) {
	var req model.UpdatePlaceAPIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	place, err := h.places.UpdatePlace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, place.ToPlaceResponse())
}

func (h *PlaceHandler) DeletePlace(c *gin.Context) {
	if err := h.places.DeletePlace(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFavorites returns the caller's favorites with place details
func (h *PlaceHandler) ListFavorites(c *gin.Context) {
	userID := auth.UserID(c)
	places, err := h.favorites.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.FavoritesResponse{
		UserID:    userID,
		Favorites: model.ToPlaceResponses(places),
		Total:     len(places),
	})
}

func (h *PlaceHandler) AddFavorite(c *gin.Context) {
	var req model.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	if err := h.favorites.AddFavorite(c.Request.Context(), auth.UserID(c), req.PlaceID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.FavoriteStatusResponse{
		PlaceID:    req.PlaceID,
		IsFavorite: true,
		Message:    "Place added to favorites",
	})
}

func (h *PlaceHandler) RemoveFavorite(c *gin.Context) {
	placeID := c.Param("placeId")
	if err := h.favorites.RemoveFavorite(c.Request.Context(), auth.UserID(c), placeID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.FavoriteStatusResponse{
		PlaceID:    placeID,
		IsFavorite: false,
		Message:    "Place removed from favorites",
	})
}

func (h *PlaceHandler) ToggleFavorite(c *gin.Context) {
	var req model.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	isFavorite, err := h.favorites.ToggleFavorite(c.Request.Context(), auth.UserID(c), req.PlaceID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	msg := "Place removed from favorites"
	if isFavorite {
		msg = "Place added to favorites"
	}
	c.JSON(http.StatusOK, model.FavoriteStatusResponse{
		PlaceID:    req.PlaceID,
		IsFavorite: isFavorite,
		Message:    msg,
	})
}

func (h *PlaceHandler) CheckFavorite(c *gin.Context) {
	placeID := c.Param("placeId")
	isFavorite, err := h.favorites.IsFavorite(c.Request.Context(), auth.UserID(c), placeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.FavoriteStatusResponse{PlaceID: placeID, IsFavorite: isFavorite})
}

func toCacheStatsResponse(st cache.Stats) model.CacheStatsResponse {
	resp := model.CacheStatsResponse{
		Namespace:  st.Namespace,
		EntryCount: st.EntryCount,
		Version:    st.Version,
		TTLSeconds: st.TTL.Seconds(),
		IsValid:    st.IsValid,
	}
	if !st.LastInvalidation.IsZero() {
		t := st.LastInvalidation
		resp.LastInvalidation = &t
	}
	return resp
}

// CacheStats handles GET /api/admin/cache/stats[?namespace=]
func (h *PlaceHandler) CacheStats(c *gin.Context) {
	if ns := c.Query("namespace"); ns != "" {
		st, ok := h.store.Stats(ns)
		if !ok {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: "Unknown cache namespace"})
			return
		}
		c.JSON(http.StatusOK, toCacheStatsResponse(st))
		return
	}

	resp := model.CacheStatsListResponse{Namespaces: []model.CacheStatsResponse{}}
	for _, ns := range h.store.Namespaces() {
		if st, ok := h.store.Stats(ns); ok {
			resp.Namespaces = append(resp.Namespaces, toCacheStatsResponse(st))
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ClearCache handles DELETE /api/admin/cache/:namespace. "all" clears
// every namespace.
func (h *PlaceHandler) ClearCache(c *gin.Context) {
	ns := c.Param("namespace")

	var targets []string
	if ns == "all" {
		targets = h.store.Namespaces()
	} else {
		if _, ok := h.store.Stats(ns); !ok {
			c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not_found", Message: "Unknown cache namespace"})
			return
		}
		targets = []string{ns}
	}

	for _, target := range targets {
		h.store.InvalidateNamespace(target)
	}
	h.log.Info("cache cleared", "namespaces", targets, "by", auth.UserID(c))

	c.JSON(http.StatusOK, model.CacheClearResponse{
		Cleared: targets,
		Message: "Cache cleared",
	})
}

// PreloadCache handles POST /api/admin/cache/preload[?user_id=]
func (h *PlaceHandler) PreloadCache(c *gin.Context) {
	res, err := h.places.Preload(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HealthCheck handles health check endpoint
func (h *PlaceHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "service_unavailable",
			Message: "Database ping failed",
		})
		return
	}

	c.JSON(http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Service:   "place-service",
		Timestamp: time.Now(),
	})
}
