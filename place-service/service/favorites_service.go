package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arunvm123/tourismbooking/place-service/cache"
	"github.com/arunvm123/tourismbooking/place-service/model"
	"github.com/arunvm123/tourismbooking/place-service/repository"
)

type FavoritesService struct {
	places    repository.PlaceRepository
	repo      repository.FavoritesRepository
	favorites *cache.FavoritesCache
	log       *slog.Logger
}

func NewFavoritesService(places repository.PlaceRepository, repo repository.FavoritesRepository, favorites *cache.FavoritesCache, log *slog.Logger) *FavoritesService {
	return &FavoritesService{
		places:    places,
		repo:      repo,
		favorites: favorites,
		log:       log,
	}
}

func (s *FavoritesService) ListFavorites(ctx context.Context, userID string) ([]model.Place, error) {
	return s.favorites.GetFavorites(ctx, userID)
}

// AddFavorite fails with ErrPlaceNotFound for unknown places and
// ErrAlreadyFavorite for duplicates.
func (s *FavoritesService) AddFavorite(ctx context.Context, userID, placeID string) error {
	if _, err := s.places.GetPlaceByID(ctx, placeID); err != nil {
		return err
	}

	added, err := s.repo.AddFavorite(ctx, userID, placeID)
	if err != nil {
		return err
	}
	if !added {
		return model.ErrAlreadyFavorite
	}
	s.favorites.OnFavoritesMutated(userID)

	s.log.Debug("favorite added", "user_id", userID, "place_id", placeID)
	return nil
}

func (s *FavoritesService) RemoveFavorite(ctx context.Context, userID, placeID string) error {
	removed, err := s.repo.RemoveFavorite(ctx, userID, placeID)
	if err != nil {
		return err
	}
	if !removed {
		return model.ErrNotFavorite
	}
	s.favorites.OnFavoritesMutated(userID)

	s.log.Debug("favorite removed", "user_id", userID, "place_id", placeID)
	return nil
}

// ToggleFavorite removes placeID if present, otherwise adds it. It
// returns whether the place is a favorite afterwards.
func (s *FavoritesService) ToggleFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	err := s.RemoveFavorite(ctx, userID, placeID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, model.ErrNotFavorite):
		return false, err
	}

	err = s.AddFavorite(ctx, userID, placeID)
	if errors.Is(err, model.ErrAlreadyFavorite) {
		// lost a race with a concurrent add; the end state is the same
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoritesService) IsFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	places, err := s.favorites.GetFavorites(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range places {
		if p.ID == placeID {
			return true, nil
		}
	}
	return false, nil
}
