package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arunvm123/tourismbooking/place-service/model"
	"golang.org/x/sync/singleflight"
)

// FavoritesSource resolves a user's favorite ids into places.
type FavoritesSource interface {
	GetFavorites(ctx context.Context, userID string) ([]string, error)
	GetPlacesByIDs(ctx context.Context, ids []string) ([]model.Place, error)
}

// FavoritesCache caches each user's populated favorites list under the
// user id.
type FavoritesCache struct {
	store  *Store
	source FavoritesSource
	group  singleflight.Group
	log    *slog.Logger
}

func NewFavoritesCache(store *Store, source FavoritesSource, log *slog.Logger) *FavoritesCache {
	if log == nil {
		log = slog.Default()
	}
	return &FavoritesCache{store: store, source: source, log: log}
}

// GetFavorites returns the user's favorite places in the order they were
// added. Ids whose place no longer exists are skipped.
func (c *FavoritesCache) GetFavorites(ctx context.Context, userID string) ([]model.Place, error) {
	return readThrough(ctx, c.store, &c.group, c.log, NamespaceFavorites, userID,
		func(ctx context.Context) ([]model.Place, error) {
			return c.load(ctx, userID)
		})
}

func (c *FavoritesCache) load(ctx context.Context, userID string) ([]model.Place, error) {
	ids, err := c.source.GetFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite ids: %w", err)
	}
	if len(ids) == 0 {
		return []model.Place{}, nil
	}

	places, err := c.source.GetPlacesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get favorite places: %w", err)
	}

	byID := make(map[string]model.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}

	ordered := make([]model.Place, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// OnFavoritesMutated must be called after a user's favorites change.
func (c *FavoritesCache) OnFavoritesMutated(userID string) {
	c.store.InvalidateKey(NamespaceFavorites, userID)
}

// OnPlacesChanged drops every user's list since cached lists embed place
// details.
func (c *FavoritesCache) OnPlacesChanged() {
	c.store.InvalidateNamespace(NamespaceFavorites)
}
