package repository

import (
	"context"

	"github.com/arunvm123/tourismbooking/place-service/model"
)

// PlaceRepository defines the interface for place data operations
type PlaceRepository interface {
	CreatePlace(ctx context.Context, req model.CreatePlaceRequest) (*model.Place, error)
	GetPlaceByID(ctx context.Context, id string) (*model.Place, error)
	UpdatePlace(ctx context.Context, id string, req model.UpdatePlaceRequest) (*model.Place, error)
	DeletePlace(ctx context.Context, id string) error
	ListPlaces(ctx context.Context) ([]model.Place, error)
	ListPlacesByCategory(ctx context.Context, category string) ([]model.Place, error)
	GetPlacesByIDs(ctx context.Context, ids []string) ([]model.Place, error)

	// Health check
	Ping(ctx context.Context) error
}

// FavoritesRepository stores each user's ordered favorite place ids.
// Add and remove are atomic so concurrent requests for the same user
// cannot lose an update.
type FavoritesRepository interface {
	GetFavorites(ctx context.Context, userID string) ([]string, error)
	// AddFavorite appends placeID and reports false if it was already present.
	AddFavorite(ctx context.Context, userID, placeID string) (bool, error)
	// RemoveFavorite reports false if placeID was not present.
	RemoveFavorite(ctx context.Context, userID, placeID string) (bool, error)
}
