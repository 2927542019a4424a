package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arunvm123/tourismbooking/place-service/cache"
	"github.com/arunvm123/tourismbooking/place-service/model"
	"github.com/arunvm123/tourismbooking/place-service/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PlaceService owns place writes and the catalog read path. Every
// successful write invalidates the catalog and favorites caches before
// returning.
type PlaceService struct {
	repo      repository.PlaceRepository
	catalog   *cache.CatalogCache
	favorites *cache.FavoritesCache
	log       *slog.Logger
}

func NewPlaceService(repo repository.PlaceRepository, catalog *cache.CatalogCache, favorites *cache.FavoritesCache, log *slog.Logger) *PlaceService {
	return &PlaceService{
		repo:      repo,
		catalog:   catalog,
		favorites: favorites,
		log:       log,
	}
}

func (s *PlaceService) onPlacesChanged() {
	s.catalog.OnPlaceMutated()
	s.favorites.OnPlacesChanged()
}

func (s *PlaceService) CreatePlace(ctx context.Context, req model.CreatePlaceAPIRequest) (*model.Place, error) {
	if !model.IsValidCategory(req.Category) {
		return nil, &model.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", req.Category)}
	}

	place, err := s.repo.CreatePlace(ctx, req.ToCreatePlaceRequest(uuid.NewString()))
	if err != nil {
		return nil, err
	}
	s.onPlacesChanged()

	s.log.Info("place created", "place_id", place.ID, "category", place.Category)
	return place, nil
}

func (s *PlaceService) UpdatePlace(ctx context.Context, id string, req model.UpdatePlaceAPIRequest) (*model.Place, error) {
	if req.Category != nil && !model.IsValidCategory(*req.Category) {
		return nil, &model.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", *req.Category)}
	}

	place, err := s.repo.UpdatePlace(ctx, id, req.ToUpdatePlaceRequest())
	if err != nil {
		return nil, err
	}
	s.onPlacesChanged()

	s.log.Info("place updated", "place_id", place.ID)
	return place, nil
}

func (s *PlaceService) DeletePlace(ctx context.Context, id string) error {
	if err := s.repo.DeletePlace(ctx, id); err != nil {
		return err
	}
	s.onPlacesChanged()

	s.log.Info("place deleted", "place_id", id)
	return nil
}

// GetPlace reads straight from the store; single lookups are not cached.
func (s *PlaceService) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	return s.repo.GetPlaceByID(ctx, id)
}

// ListPlaces returns every place, or only those in category when set.
func (s *PlaceService) ListPlaces(ctx context.Context, category string) ([]model.Place, error) {
	if category == "" {
		return s.catalog.GetAllPlaces(ctx)
	}
	if !model.IsValidCategory(category) {
		return nil, &model.ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}
	return s.catalog.GetPlacesByCategory(ctx, category)
}

// Categories lists the known categories in name order.
func Categories() []string {
	out := make([]string, 0, len(model.CategoryDefaultPrices))
	for c := range model.CategoryDefaultPrices {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Preload warms the catalog views and, when userID is set, that user's
// favorites. Loads run concurrently; the first failure cancels the rest.
func (s *PlaceService) Preload(ctx context.Context, userID string) (*model.PreloadResponse, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		placesLoaded    int
		favoritesLoaded int
	)

	g.Go(func() error {
		places, err := s.catalog.GetAllPlaces(gctx)
		if err != nil {
			return err
		}
		placesLoaded = len(places)
		return nil
	})

	categories := Categories()
	for _, category := range categories {
		g.Go(func() error {
			_, err := s.catalog.GetPlacesByCategory(gctx, category)
			return err
		})
	}

	if userID != "" {
		g.Go(func() error {
			favs, err := s.favorites.GetFavorites(gctx, userID)
			if err != nil {
				return err
			}
			favoritesLoaded = len(favs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to preload cache: %w", err)
	}

	s.log.Info("cache preloaded", "places", placesLoaded, "favorites", favoritesLoaded, "user_id", userID)
	return &model.PreloadResponse{
		PlacesLoaded:    placesLoaded,
		FavoritesLoaded: favoritesLoaded,
		Categories:      len(categories),
	}, nil
}
