package service

import (
	"context"
)

// PlaceService defines the interface for looking up places in the Place Service
type PlaceService interface {
	// GetPlace returns a NotFoundError when the place does not exist
	GetPlace(ctx context.Context, placeID string) (*PlaceDetails, error)
}

// PlaceDetails is the subset of a place the payment flow needs
type PlaceDetails struct {
	ID             string  `json:"id"`
	NameEng        string  `json:"name_eng"`
	Category       string  `json:"category"`
	PricePerPerson float64 `json:"price_per_person"`
	MaxCapacity    int     `json:"max_capacity"`
}
