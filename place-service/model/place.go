package model

import (
	"time"

	"github.com/lib/pq"
)

// ===============================
// Database Entities (Internal)
// ===============================

// Place represents a tourist place in the catalog
type Place struct {
	ID             string  `gorm:"type:text;primary_key"`
	NameEng        string  `gorm:"type:varchar(200);not null"`
	NameSom        string  `gorm:"type:varchar(200);not null"`
	DescEng        string  `gorm:"type:text"`
	DescSom        string  `gorm:"type:text"`
	Location       string  `gorm:"type:varchar(255);not null"`
	Category       string  `gorm:"type:varchar(50);not null;index"`
	ImagePath      string  `gorm:"type:text"`
	PricePerPerson float64 `gorm:"type:decimal(10,2);not null;default:0"`
	MaxCapacity    int     `gorm:"not null;default:50"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserFavorites stores the ordered list of place ids a user has favorited
type UserFavorites struct {
	UserID    string         `gorm:"type:text;primary_key"`
	PlaceIDs  pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	UpdatedAt time.Time
}

func (UserFavorites) TableName() string {
	return "user_favorites"
}

// Categories and their default price per person in USD.
var CategoryDefaultPrices = map[string]float64{
	"beach":      8.0,
	"historical": 12.0,
	"cultural":   10.0,
	"religious":  5.0,
	"suburb":     6.0,
	"urban park": 7.0,
}

func IsValidCategory(category string) bool {
	_, ok := CategoryDefaultPrices[category]
	return ok
}

// ===============================
// Repository DTOs (Internal)
// ===============================

// CreatePlaceRequest represents input for creating a place in repository layer
type CreatePlaceRequest struct {
	ID             string
	NameEng        string
	NameSom        string
	DescEng        string
	DescSom        string
	Location       string
	Category       string
	ImagePath      string
	PricePerPerson float64
	MaxCapacity    int
}

// UpdatePlaceRequest carries a partial update. Nil fields keep the stored value.
type UpdatePlaceRequest struct {
	NameEng        *string
	NameSom        *string
	DescEng        *string
	DescSom        *string
	Location       *string
	Category       *string
	ImagePath      *string
	PricePerPerson *float64
	MaxCapacity    *int
}

// ===============================
// API DTOs (External)
// ===============================

// CreatePlaceAPIRequest represents the API request for creating a place
type CreatePlaceAPIRequest struct {
	NameEng        string   `json:"name_eng" binding:"required,min=2,max=200"`
	NameSom        string   `json:"name_som" binding:"required,min=2,max=200"`
	DescEng        string   `json:"desc_eng"`
	DescSom        string   `json:"desc_som"`
	Location       string   `json:"location" binding:"required"`
	Category       string   `json:"category" binding:"required"`
	ImagePath      string   `json:"image_path"`
	PricePerPerson *float64 `json:"price_per_person" binding:"omitempty,min=0"`
	MaxCapacity    int      `json:"max_capacity" binding:"omitempty,min=1,max=10000"`
}

// UpdatePlaceAPIRequest represents the API request for a partial place update
type UpdatePlaceAPIRequest struct {
	NameEng        *string  `json:"name_eng" binding:"omitempty,min=2,max=200"`
	NameSom        *string  `json:"name_som" binding:"omitempty,min=2,max=200"`
	DescEng        *string  `json:"desc_eng"`
	DescSom        *string  `json:"desc_som"`
	Location       *string  `json:"location" binding:"omitempty,min=1"`
	Category       *string  `json:"category"`
	ImagePath      *string  `json:"image_path"`
	PricePerPerson *float64 `json:"price_per_person" binding:"omitempty,min=0"`
	MaxCapacity    *int     `json:"max_capacity" binding:"omitempty,min=1,max=10000"`
}

// FavoriteRequest represents the body of add/toggle favorite calls
type FavoriteRequest struct {
	PlaceID string `json:"place_id" binding:"required"`
}

// PlaceResponse represents a place in API responses
type PlaceResponse struct {
	ID             string    `json:"id"`
	NameEng        string    `json:"name_eng"`
	NameSom        string    `json:"name_som"`
	DescEng        string    `json:"desc_eng"`
	DescSom        string    `json:"desc_som"`
	Location       string    `json:"location"`
	Category       string    `json:"category"`
	ImagePath      string    `json:"image_path,omitempty"`
	PricePerPerson float64   `json:"price_per_person"`
	MaxCapacity    int       `json:"max_capacity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlaceListResponse represents a list of places
type PlaceListResponse struct {
	Places []PlaceResponse `json:"places"`
	Total  int             `json:"total"`
}

// FavoritesResponse represents a user's favorite places
type FavoritesResponse struct {
	UserID    string          `json:"user_id"`
	Favorites []PlaceResponse `json:"favorites"`
	Total     int             `json:"total"`
}

// FavoriteStatusResponse is returned by add, remove, toggle and check
type FavoriteStatusResponse struct {
	PlaceID    string `json:"place_id"`
	IsFavorite bool   `json:"is_favorite"`
	Message    string `json:"message,omitempty"`
}

// CacheStatsResponse describes one cache namespace
type CacheStatsResponse struct {
	Namespace        string     `json:"namespace"`
	EntryCount       int        `json:"entry_count"`
	Version          uint64     `json:"version"`
	TTLSeconds       float64    `json:"ttl_seconds"`
	IsValid          bool       `json:"is_valid"`
	LastInvalidation *time.Time `json:"last_invalidation,omitempty"`
}

// CacheStatsListResponse lists every registered namespace
type CacheStatsListResponse struct {
	Namespaces []CacheStatsResponse `json:"namespaces"`
}

// CacheClearResponse is returned after a namespace invalidation
type CacheClearResponse struct {
	Cleared []string `json:"cleared"`
	Message string   `json:"message"`
}

// PreloadResponse reports what a preload warmed
type PreloadResponse struct {
	PlacesLoaded    int `json:"places_loaded"`
	FavoritesLoaded int `json:"favorites_loaded"`
	Categories      int `json:"categories"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ===============================
// Conversion methods
// ===============================

func (p *Place) ToPlaceResponse() PlaceResponse {
	return PlaceResponse{
		ID:             p.ID,
		NameEng:        p.NameEng,
		NameSom:        p.NameSom,
		DescEng:        p.DescEng,
		DescSom:        p.DescSom,
		Location:       p.Location,
		Category:       p.Category,
		ImagePath:      p.ImagePath,
		PricePerPerson: p.PricePerPerson,
		MaxCapacity:    p.MaxCapacity,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToPlaceResponses converts a slice of places, never returning nil.
func ToPlaceResponses(places []Place) []PlaceResponse {
	out := make([]PlaceResponse, 0, len(places))
	for i := range places {
		out = append(out, places[i].ToPlaceResponse())
	}
	return out
}

// ToCreatePlaceRequest fills defaults from the category when absent.
func (r *CreatePlaceAPIRequest) ToCreatePlaceRequest(id string) CreatePlaceRequest {
	price := CategoryDefaultPrices[r.Category]
	if r.PricePerPerson != nil {
		price = *r.PricePerPerson
	}
	capacity := r.MaxCapacity
	if capacity == 0 {
		capacity = 50
	}
	return CreatePlaceRequest{
		ID:             id,
		NameEng:        r.NameEng,
		NameSom:        r.NameSom,
		DescEng:        r.DescEng,
		DescSom:        r.DescSom,
		Location:       r.Location,
		Category:       r.Category,
		ImagePath:      r.ImagePath,
		PricePerPerson: price,
		MaxCapacity:    capacity,
	}
}

func (r *UpdatePlaceAPIRequest) ToUpdatePlaceRequest() UpdatePlaceRequest {
	return UpdatePlaceRequest{
		NameEng:        r.NameEng,
		NameSom:        r.NameSom,
		DescEng:        r.DescEng,
		DescSom:        r.DescSom,
		Location:       r.Location,
		Category:       r.Category,
		ImagePath:      r.ImagePath,
		PricePerPerson: r.PricePerPerson,
		MaxCapacity:    r.MaxCapacity,
	}
}
