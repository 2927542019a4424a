package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arunvm123/tourismbooking/place-service/config"
	"github.com/arunvm123/tourismbooking/place-service/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresPlaceRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(cfg *config.Database, log *slog.Logger) (*PostgresPlaceRepository, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := db.AutoMigrate(&model.Place{}, &model.UserFavorites{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("database connected and place tables migrated")

	return &PostgresPlaceRepository{db: db}, nil
}

// NewPlaceRepositoryFromDB wraps an existing connection. Used by tests.
func NewPlaceRepositoryFromDB(db *gorm.DB) *PostgresPlaceRepository {
	return &PostgresPlaceRepository{db: db}
}

func (r *PostgresPlaceRepository) CreatePlace(ctx context.Context, req model.CreatePlaceRequest) (*model.Place, error) {
	place := model.Place{
		ID:             req.ID,
		NameEng:        req.NameEng,
		NameSom:        req.NameSom,
		DescEng:        req.DescEng,
		DescSom:        req.DescSom,
		Location:       req.Location,
		Category:       req.Category,
		ImagePath:      req.ImagePath,
		PricePerPerson: req.PricePerPerson,
		MaxCapacity:    req.MaxCapacity,
	}

	if err := r.db.WithContext(ctx).Create(&place).Error; err != nil {
		return nil, fmt.Errorf("failed to create place: %w", err)
	}
	return &place, nil
}

func (r *PostgresPlaceRepository) GetPlaceByID(ctx context.Context, id string) (*model.Place, error) {
	var place model.Place
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&place).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlaceNotFound
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return &place, nil
}

func (r *PostgresPlaceRepository) UpdatePlace(ctx context.Context, id string, req model.UpdatePlaceRequest) (*model.Place, error) {
	var place model.Place
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&place).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrPlaceNotFound
			}
			return err
		}

		applyPlaceUpdate(&place, req)
		return tx.Save(&place).Error
	})
	if err != nil {
		if errors.Is(err, model.ErrPlaceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update place: %w", err)
	}
	return &place, nil
}

func applyPlaceUpdate(place *model.Place, req model.UpdatePlaceRequest) {
	if req.NameEng != nil {
		place.NameEng = *req.NameEng
	}
	if req.NameSom != nil {
		place.NameSom = *req.NameSom
	}
	if req.DescEng != nil {
		place.DescEng = *req.DescEng
	}
	if req.DescSom != nil {
		place.DescSom = *req.DescSom
	}
	if req.Location != nil {
		place.Location = *req.Location
	}
	if req.Category != nil {
		place.Category = *req.Category
	}
	if req.ImagePath != nil {
		place.ImagePath = *req.ImagePath
	}
	if req.PricePerPerson != nil {
		place.PricePerPerson = *req.PricePerPerson
	}
	if req.MaxCapacity != nil {
		place.MaxCapacity = *req.MaxCapacity
	}
}

func (r *PostgresPlaceRepository) DeletePlace(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Place{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete place: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrPlaceNotFound
	}
	return nil
}

func (r *PostgresPlaceRepository) ListPlaces(ctx context.Context) ([]model.Place, error) {
	var places []model.Place
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&places).Error; err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	return places, nil
}

func (r *PostgresPlaceRepository) ListPlacesByCategory(ctx context.Context, category string) ([]model.Place, error) {
	var places []model.Place
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Find(&places).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list places by category: %w", err)
	}
	return places, nil
}

func (r *PostgresPlaceRepository) GetPlacesByIDs(ctx context.Context, ids []string) ([]model.Place, error) {
	if len(ids) == 0 {
		return []model.Place{}, nil
	}
	var places []model.Place
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&places).Error; err != nil {
		return nil, fmt.Errorf("failed to get places by ids: %w", err)
	}
	return places, nil
}

func (r *PostgresPlaceRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
