package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clinic/internal/models"
)

// GORMAppointmentRepository is a GORM implementation of AppointmentRepository.
type GORMAppointmentRepository struct {
	db *gorm.DB
}

// NewGORMAppointmentRepository creates a new instance of GORMAppointmentRepository.
func NewGORMAppointmentRepository(db *gorm.DB) *GORMAppointmentRepository {
	return &GORMAppointmentRepository{
		db: db,
	}
}

// GetAll retrieves all appointments ordered by ID.
func (r *GORMAppointmentRepository) GetAll(ctx context.Context) ([]models.Appointment, error) {
	var appointments []models.Appointment
	if err := r.db.WithContext(ctx).Order("id").Find(&appointments).Error; err != nil {
		return nil, fmt.Errorf("failed to get all appointments: %w", err)
	}
	for i := range appointments {
		toUTC(&appointments[i])
	}
	return appointments, nil
}

// GetByID retrieves a single appointment by its ID.
func (r *GORMAppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := r.db.WithContext(ctx).First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get appointment by ID %d: %w", id, err)
	}
	toUTC(&appointment)
	return &appointment, nil
}

// Create inserts a new appointment; the database assigns its ID.
func (r *GORMAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	appointment.ID = 0
	toUTC(appointment)
	if err := r.db.WithContext(ctx).Create(appointment).Error; err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// Update writes only the columns present in patch.
func (r *GORMAppointmentRepository) Update(ctx context.Context, id uint, patch models.AppointmentPatch) (*models.Appointment, error) {
	appointment, err := r.GetByID(ctx, id)
	if err != nil || appointment == nil {
		return nil, err
	}
	if patch.Empty() {
		return appointment, nil
	}

	res := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Updates(patch.Columns())
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update appointment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Deleted between the read and the write.
		return nil, nil
	}
	patch.Apply(appointment)
	return appointment, nil
}

// Delete removes an appointment by its ID and reports whether it existed.
func (r *GORMAppointmentRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Appointment{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete appointment %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// toUTC drops the zone the driver attached on read; postgres hands timestamptz
// back in the server's local zone.
func toUTC(appointment *models.Appointment) {
	appointment.AppointmentDate = appointment.AppointmentDate.UTC()
}
