package repositories

import (
	"context"
	"errors"

	"clinic/internal/models"
)

// ErrDuplicateKey is returned when a write violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// AppointmentRepository defines the interface for appointment data access.
// A missing record is reported as a nil result, not as an error.
type AppointmentRepository interface {
	GetAll(ctx context.Context) ([]models.Appointment, error)
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	Create(ctx context.Context, appointment *models.Appointment) error
	Update(ctx context.Context, id uint, patch models.AppointmentPatch) (*models.Appointment, error)
	Delete(ctx context.Context, id uint) (bool, error)
}
