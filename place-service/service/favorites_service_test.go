package service

import (
	"context"
	"errors"
	"testing"

	"github.com/arunvm123/tourismbooking/place-service/model"
)

func TestFavoritesService(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, string) {
		t.Helper()
		f := newFixture()
		p, err := f.places.CreatePlace(ctx, beachRequest())
		if err != nil {
			t.Fatal(err)
		}
		return f, p.ID
	}

	t.Run("Given an unknown place, When added, Then ErrPlaceNotFound", func(t *testing.T) {
		f, _ := setup(t)
		if err := f.favorites.AddFavorite(ctx, "u1", "nope"); !errors.Is(err, model.ErrPlaceNotFound) {
			t.Errorf("expected ErrPlaceNotFound, got %v", err)
		}
	})

	t.Run("Given a favorite, When added again, Then ErrAlreadyFavorite", func(t *testing.T) {
		f, id := setup(t)
		if err := f.favorites.AddFavorite(ctx, "u1", id); err != nil {
			t.Fatal(err)
		}
		if err := f.favorites.AddFavorite(ctx, "u1", id); !errors.Is(err, model.ErrAlreadyFavorite) {
			t.Errorf("expected ErrAlreadyFavorite, got %v", err)
		}
	})

	t.Run("Given no favorite, When removed, Then ErrNotFavorite", func(t *testing.T) {
		f, id := setup(t)
		if err := f.favorites.RemoveFavorite(ctx, "u1", id); !errors.Is(err, model.ErrNotFavorite) {
			t.Errorf("expected ErrNotFavorite, got %v", err)
		}
	})

	t.Run("Given a cached list, When a favorite is added then removed, Then reads follow each write", func(t *testing.T) {
		f, id := setup(t)
		if favs, _ := f.favorites.ListFavorites(ctx, "u1"); len(favs) != 0 {
			t.Fatalf("expected empty favorites, got %d", len(favs))
		}

		f.favorites.AddFavorite(ctx, "u1", id)
		if ok, _ := f.favorites.IsFavorite(ctx, "u1", id); !ok {
			t.Error("expected place to be a favorite after add")
		}

		f.favorites.RemoveFavorite(ctx, "u1", id)
		if ok, _ := f.favorites.IsFavorite(ctx, "u1", id); ok {
			t.Error("expected place not to be a favorite after remove")
		}
	})

	t.Run("Given a place, When toggled twice, Then it flips on and off", func(t *testing.T) {
		f, id := setup(t)
		on, err := f.favorites.ToggleFavorite(ctx, "u1", id)
		if err != nil || !on {
			t.Fatalf("expected toggle on, got %v, %v", on, err)
		}
		on, err = f.favorites.ToggleFavorite(ctx, "u1", id)
		if err != nil || on {
			t.Fatalf("expected toggle off, got %v, %v", on, err)
		}
	})

	t.Run("Given an unknown place, When toggled, Then ErrPlaceNotFound", func(t *testing.T) {
		f, _ := setup(t)
		if _, err := f.favorites.ToggleFavorite(ctx, "u1", "nope"); !errors.Is(err, model.ErrPlaceNotFound) {
			t.Errorf("expected ErrPlaceNotFound, got %v", err)
		}
	})

	t.Run("Given two users, When one adds, Then the other's list is unchanged", func(t *testing.T) {
		f, id := setup(t)
		f.favorites.ListFavorites(ctx, "u2")
		f.favorites.AddFavorite(ctx, "u1", id)
		if favs, _ := f.favorites.ListFavorites(ctx, "u2"); len(favs) != 0 {
			t.Errorf("expected u2 to have no favorites, got %d", len(favs))
		}
	})
}
