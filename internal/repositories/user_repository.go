package repositories

import (
	"context"

	"clinic/internal/models"
)

// UserRepository defines the interface for user data access.
// Lookups that match nothing return a nil user and no error.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
}
