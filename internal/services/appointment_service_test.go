package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clinic/internal/apperrors"
	"clinic/internal/models"
	"clinic/internal/services"
)

// MockAppointmentRepository is a mock implementation of repositories.AppointmentRepository
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) GetAll(ctx context.Context) ([]models.Appointment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) Update(ctx context.Context, id uint, patch models.AppointmentPatch) (*models.Appointment, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Delete(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

func sampleAppointment() *models.Appointment {
	return &models.Appointment{
		ID:              1,
		PatientName:     "Ana",
		DoctorName:      "Dr. Lee",
		AppointmentDate: time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC),
		Status:          models.StatusScheduled,
	}
}

func TestAppointmentService_ListAppointments(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	service := services.NewAppointmentService(mockRepo, nil, nil)

	expected := []models.Appointment{*sampleAppointment()}
	mockRepo.On("GetAll", ctx).Return(expected, nil).Once()

	list, err := service.ListAppointments(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, list)

	mockRepo.On("GetAll", ctx).Return(nil, errors.New("connection refused")).Once()
	_, err = service.ListAppointments(ctx)
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestAppointmentService_GetAppointment(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	service := services.NewAppointmentService(mockRepo, nil, nil)

	mockRepo.On("GetByID", ctx, uint(1)).Return(sampleAppointment(), nil).Once()
	a, err := service.GetAppointment(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "Ana", a.PatientName)

	// Absent is not an error.
	mockRepo.On("GetByID", ctx, uint(99)).Return(nil, nil).Once()
	a, err = service.GetAppointment(ctx, 99)
	assert.NoError(t, err)
	assert.Nil(t, a)

	mockRepo.On("GetByID", ctx, uint(2)).Return(nil, errors.New("timeout")).Once()
	_, err = service.GetAppointment(ctx, 2)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestAppointmentService_CreateAppointment(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	publisher := new(MockPublisher)
	service := services.NewAppointmentService(mockRepo, publisher, nil)

	a := sampleAppointment()
	a.ID = 0
	mockRepo.On("Create", ctx, a).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Appointment).ID = 42
	}).Return(nil).Once()
	publisher.On("Publish", "appointment.created", mock.AnythingOfType("[]uint8")).Return(nil).Once()

	require.NoError(t, service.CreateAppointment(ctx, a))
	assert.Equal(t, uint(42), a.ID)

	var event models.AppointmentEvent
	body := publisher.Calls[0].Arguments.Get(1).([]byte)
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, models.EventAppointmentCreated, event.Type)
	assert.Equal(t, uint(42), event.AppointmentID)
	require.NotNil(t, event.Appointment)
	assert.Equal(t, "Ana", event.Appointment.PatientName)

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAppointmentService_CreateAppointment_Failures(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	publisher := new(MockPublisher)
	service := services.NewAppointmentService(mockRepo, publisher, nil)

	bad := sampleAppointment()
	bad.Status = "pending"
	err := service.CreateAppointment(ctx, bad)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	a := sampleAppointment()
	mockRepo.On("Create", ctx, a).Return(errors.New("constraint violation")).Once()
	err = service.CreateAppointment(ctx, a)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))

	// Nothing is published for failed writes.
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestAppointmentService_PublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	publisher := new(MockPublisher)
	service := services.NewAppointmentService(mockRepo, publisher, nil)

	a := sampleAppointment()
	mockRepo.On("Create", ctx, a).Return(nil).Once()
	publisher.On("Publish", "appointment.created", mock.Anything).Return(errors.New("broker down")).Once()

	assert.NoError(t, service.CreateAppointment(ctx, a))
	publisher.AssertExpectations(t)
}

func TestAppointmentService_UpdateAppointment(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	publisher := new(MockPublisher)
	service := services.NewAppointmentService(mockRepo, publisher, nil)

	status := models.StatusCompleted
	patch := models.AppointmentPatch{Status: &status}
	updated := sampleAppointment()
	updated.Status = models.StatusCompleted

	mockRepo.On("Update", ctx, uint(1), patch).Return(updated, nil).Once()
	publisher.On("Publish", "appointment.updated", mock.Anything).Return(nil).Once()

	a, err := service.UpdateAppointment(ctx, 1, patch)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, a.Status)

	mockRepo.On("Update", ctx, uint(99), patch).Return(nil, nil).Once()
	a, err = service.UpdateAppointment(ctx, 99, patch)
	assert.NoError(t, err)
	assert.Nil(t, a)

	invalid := models.AppointmentStatus("archived")
	_, err = service.UpdateAppointment(ctx, 1, models.AppointmentPatch{Status: &invalid})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	mockRepo.On("Update", ctx, uint(2), patch).Return(nil, errors.New("deadlock")).Once()
	_, err = service.UpdateAppointment(ctx, 2, patch)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestAppointmentService_DeleteAppointment(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockAppointmentRepository)
	publisher := new(MockPublisher)
	service := services.NewAppointmentService(mockRepo, publisher, nil)

	mockRepo.On("Delete", ctx, uint(1)).Return(true, nil).Once()
	publisher.On("Publish", "appointment.deleted", mock.Anything).Return(nil).Once()
	deleted, err := service.DeleteAppointment(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, deleted)

	mockRepo.On("Delete", ctx, uint(99)).Return(false, nil).Once()
	deleted, err = service.DeleteAppointment(ctx, 99)
	assert.NoError(t, err)
	assert.False(t, deleted)

	mockRepo.On("Delete", ctx, uint(2)).Return(false, errors.New("read-only replica")).Once()
	_, err = service.DeleteAppointment(ctx, 2)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}
