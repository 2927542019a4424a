package model

import (
	"errors"
	"fmt"
)

var (
	ErrPlaceNotFound   = errors.New("place not found")
	ErrAlreadyFavorite = errors.New("place already in favorites")
	ErrNotFavorite     = errors.New("place not in favorites")
)

// ValidationError reports a request field that failed a business rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
