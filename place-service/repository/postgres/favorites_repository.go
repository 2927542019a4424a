package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/arunvm123/tourismbooking/place-service/model"
	"gorm.io/gorm"
)

func (r *PostgresPlaceRepository) GetFavorites(ctx context.Context, userID string) ([]string, error) {
	var fav model.UserFavorites
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&fav).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}
	return []string(fav.PlaceIDs), nil
}

// AddFavorite upserts the user's row and appends placeID unless it is
// already there, in a single statement.
func (r *PostgresPlaceRepository) AddFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO user_favorites (user_id, place_ids, updated_at)
		VALUES (?, ARRAY[?::text], NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET place_ids = array_append(user_favorites.place_ids, ?::text), updated_at = NOW()
		WHERE NOT (?::text = ANY(user_favorites.place_ids))`,
		userID, placeID, placeID, placeID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to add favorite: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresPlaceRepository) RemoveFavorite(ctx context.Context, userID, placeID string) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE user_favorites
		SET place_ids = array_remove(place_ids, ?::text), updated_at = NOW()
		WHERE user_id = ? AND ?::text = ANY(place_ids)`,
		placeID, userID, placeID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
