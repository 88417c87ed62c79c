package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"clinic/internal/apperrors"
	"clinic/internal/models"
	"clinic/internal/repositories"
)

// EventPublisher delivers appointment events to a message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// AppointmentService handles business logic related to appointments.
type AppointmentService struct {
	repo      repositories.AppointmentRepository
	publisher EventPublisher // nil disables events
	log       *zap.Logger
	now       func() time.Time
}

// NewAppointmentService creates a new AppointmentService. publisher may be nil.
func NewAppointmentService(repo repositories.AppointmentRepository, publisher EventPublisher, log *zap.Logger) *AppointmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AppointmentService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ListAppointments retrieves all appointments.
func (s *AppointmentService) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	appointments, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, apperrors.Storage("failed to list appointments", err)
	}
	return appointments, nil
}

// GetAppointment retrieves a single appointment. It returns nil when none matches.
func (s *AppointmentService) GetAppointment(ctx context.Context, id uint) (*models.Appointment, error) {
	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Storage("failed to get appointment", err)
	}
	return appointment, nil
}

// CreateAppointment stores a new appointment and publishes appointment.created.
func (s *AppointmentService) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	if !appointment.Status.Valid() {
		return apperrors.Validation("Validation failed", map[string]string{"status": "is invalid"})
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return apperrors.Storage("failed to create appointment", err)
	}
	s.publish(models.EventAppointmentCreated, appointment.ID, appointment)
	return nil
}

// UpdateAppointment applies patch to an existing appointment. It returns nil when
// no appointment has the given id.
func (s *AppointmentService) UpdateAppointment(ctx context.Context, id uint, patch models.AppointmentPatch) (*models.Appointment, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.Validation("Validation failed", map[string]string{"status": "is invalid"})
	}
	appointment, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, apperrors.Storage("failed to update appointment", err)
	}
	if appointment == nil {
		return nil, nil
	}
	s.publish(models.EventAppointmentUpdated, appointment.ID, appointment)
	return appointment, nil
}

// DeleteAppointment removes an appointment and reports whether it existed.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, id uint) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, apperrors.Storage("failed to delete appointment", err)
	}
	if deleted {
		s.publish(models.EventAppointmentDeleted, id, nil)
	}
	return deleted, nil
}

// publish never fails the caller; broker problems are logged.
func (s *AppointmentService) publish(eventType models.AppointmentEventType, id uint, appointment *models.Appointment) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(models.AppointmentEvent{
		Type:          eventType,
		AppointmentID: id,
		Appointment:   appointment,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to marshal appointment event", zap.String("type", string(eventType)), zap.Error(err))
		return
	}

	if err := s.publisher.Publish(string(eventType), body); err != nil {
		s.log.Warn("failed to publish appointment event",
			zap.String("type", string(eventType)),
			zap.Uint("appointment_id", id),
			zap.Error(err),
		)
	}
}
