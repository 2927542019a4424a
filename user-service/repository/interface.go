package repository

import (
	"context"

	"github.com/arunvm123/tourismbooking/user-service/model"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// CreateUser returns model.ErrEmailTaken when the email is registered.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// Health check
	Ping(ctx context.Context) error
}
