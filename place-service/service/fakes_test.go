package service

import (
	"context"
	"sync"
	"time"

	"github.com/arunvm123/tourismbooking/internal/clock"
	"github.com/arunvm123/tourismbooking/internal/logging"
	"github.com/arunvm123/tourismbooking/place-service/cache"
	"github.com/arunvm123/tourismbooking/place-service/model"
)

// memRepo is an in-memory PlaceRepository and FavoritesRepository.
type memRepo struct {
	mu        sync.Mutex
	places    map[string]model.Place
	order     []string
	favorites map[string][]string
	listCalls int

	ListPlacesErr error
}

func newMemRepo() *memRepo {
	return &memRepo{places: map[string]model.Place{}, favorites: map[string][]string{}}
}

func (m *memRepo) CreatePlace(_ context.Context, req model.CreatePlaceRequest) (*model.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := model.Place{
		ID:             req.ID,
		NameEng:        req.NameEng,
		NameSom:        req.NameSom,
		Location:       req.Location,
		Category:       req.Category,
		PricePerPerson: req.PricePerPerson,
		MaxCapacity:    req.MaxCapacity,
	}
	m.places[p.ID] = p
	m.order = append(m.order, p.ID)
	return &p, nil
}

func (m *memRepo) GetPlaceByID(_ context.Context, id string) (*model.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[id]
	if !ok {
		return nil, model.ErrPlaceNotFound
	}
	return &p, nil
}

func (m *memRepo) UpdatePlace(_ context.Context, id string, req model.UpdatePlaceRequest) (*model.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[id]
	if !ok {
		return nil, model.ErrPlaceNotFound
	}
	if req.NameEng != nil {
		p.NameEng = *req.NameEng
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.PricePerPerson != nil {
		p.PricePerPerson = *req.PricePerPerson
	}
	m.places[id] = p
	return &p, nil
}

func (m *memRepo) DeletePlace(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.places[id]; !ok {
		return model.ErrPlaceNotFound
	}
	delete(m.places, id)
	return nil
}

func (m *memRepo) ListPlaces(_ context.Context) ([]model.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.ListPlacesErr != nil {
		return nil, m.ListPlacesErr
	}
	var out []model.Place
	for _, id := range m.order {
		if p, ok := m.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) ListPlacesByCategory(ctx context.Context, category string) ([]model.Place, error) {
	all, err := m.ListPlaces(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Place
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) GetPlacesByIDs(_ context.Context, ids []string) ([]model.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Place
	for _, id := range ids {
		if p, ok := m.places[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Ping(context.Context) error { return nil }

func (m *memRepo) GetFavorites(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.favorites[userID]...), nil
}

func (m *memRepo) AddFavorite(_ context.Context, userID, placeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.favorites[userID] {
		if id == placeID {
			return false, nil
		}
	}
	m.favorites[userID] = append(m.favorites[userID], placeID)
	return true, nil
}

func (m *memRepo) RemoveFavorite(_ context.Context, userID, placeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.favorites[userID]
	for i, id := range ids {
		if id == placeID {
			m.favorites[userID] = append(ids[:i:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fixture struct {
	repo      *memRepo
	store     *cache.Store
	places    *PlaceService
	favorites *FavoritesService
}

func newFixture() *fixture {
	repo := newMemRepo()
	store := cache.NewStore(clock.NewManual(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), 5*time.Minute)
	store.Register(cache.NamespacePlaces, 5*time.Minute)
	store.Register(cache.NamespaceFavorites, 5*time.Minute)

	log := logging.Discard()
	catalog := cache.NewCatalogCache(store, repo, log)
	favCache := cache.NewFavoritesCache(store, repo, log)

	return &fixture{
		repo:      repo,
		store:     store,
		places:    NewPlaceService(repo, catalog, favCache, log),
		favorites: NewFavoritesService(repo, repo, favCache, log),
	}
}
