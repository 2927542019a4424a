package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arunvm123/tourismbooking/place-service/model"
	"golang.org/x/sync/singleflight"
)

const (
	NamespacePlaces    = "places"
	NamespaceFavorites = "favorites"

	keyAllPlaces = "all"
)

func categoryKey(category string) string {
	return "category:" + category
}

// PlaceLoader is the backing store read on a catalog miss.
type PlaceLoader interface {
	ListPlaces(ctx context.Context) ([]model.Place, error)
	ListPlacesByCategory(ctx context.Context, category string) ([]model.Place, error)
}

// CatalogCache serves the "all places" and "places by category" views.
type CatalogCache struct {
	store  *Store
	loader PlaceLoader
	group  singleflight.Group
	log    *slog.Logger
}

func NewCatalogCache(store *Store, loader PlaceLoader, log *slog.Logger) *CatalogCache {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogCache{store: store, loader: loader, log: log}
}

func (c *CatalogCache) GetAllPlaces(ctx context.Context) ([]model.Place, error) {
	return readThrough(ctx, c.store, &c.group, c.log, NamespacePlaces, keyAllPlaces, c.loader.ListPlaces)
}

func (c *CatalogCache) GetPlacesByCategory(ctx context.Context, category string) ([]model.Place, error) {
	return readThrough(ctx, c.store, &c.group, c.log, NamespacePlaces, categoryKey(category),
		func(ctx context.Context) ([]model.Place, error) {
			return c.loader.ListPlacesByCategory(ctx, category)
		})
}

// OnPlaceMutated must be called after every successful place write.
func (c *CatalogCache) OnPlaceMutated() {
	c.store.InvalidateNamespace(NamespacePlaces)
	c.log.Debug("catalog cache invalidated", "version", c.store.Version(NamespacePlaces))
}

// readThrough returns the cached places under key or loads and caches
// them. Concurrent misses for the same key and version share one load.
// Load errors are returned and never cached.
func readThrough(
	ctx context.Context,
	store *Store,
	group *singleflight.Group,
	log *slog.Logger,
	ns, key string,
	load func(ctx context.Context) ([]model.Place, error),
) ([]model.Place, error) {
	if v, ok := store.Get(ns, key); ok {
		return clonePlaces(v.([]model.Place)), nil
	}

	version := store.Version(ns)
	flight := fmt.Sprintf("%s/%s@%d", ns, key, version)

	v, err, _ := group.Do(flight, func() (any, error) {
		places, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if places == nil {
			places = []model.Place{}
		}
		if !store.PutIfVersion(ns, key, places, version) {
			log.Debug("dropped cache fill after invalidation", "namespace", ns, "key", key)
		}
		return places, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", ns, key, err)
	}
	return clonePlaces(v.([]model.Place)), nil
}

func clonePlaces(in []model.Place) []model.Place {
	out := make([]model.Place, len(in))
	copy(out, in)
	return out
}
