package repositories

import (
	"context"
	"sort"
	"sync"

	"clinic/internal/models"
)

// MockAppointmentRepository is an in-memory implementation of AppointmentRepository.
type MockAppointmentRepository struct {
	appointments map[uint]models.Appointment
	nextID       uint
	mu           sync.RWMutex
}

// NewMockAppointmentRepository creates a new instance of MockAppointmentRepository.
func NewMockAppointmentRepository() *MockAppointmentRepository {
	return &MockAppointmentRepository{
		appointments: make(map[uint]models.Appointment),
		nextID:       1,
	}
}

// GetAll returns all appointments in ID order.
func (r *MockAppointmentRepository) GetAll(_ context.Context) ([]models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Appointment, 0, len(r.appointments))
	for _, a := range r.appointments {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// GetByID returns an appointment by its ID, or nil.
func (r *MockAppointmentRepository) GetByID(_ context.Context, id uint) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// Create stores a new appointment under the next sequential ID.
func (r *MockAppointmentRepository) Create(_ context.Context, appointment *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment.ID = r.nextID
	r.nextID++
	toUTC(appointment)
	r.appointments[appointment.ID] = *appointment
	return nil
}

// Update applies patch to an existing appointment.
func (r *MockAppointmentRepository) Update(_ context.Context, id uint, patch models.AppointmentPatch) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(&a)
	r.appointments[id] = a
	return &a, nil
}

// Delete removes an appointment by its ID.
func (r *MockAppointmentRepository) Delete(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return false, nil
	}
	delete(r.appointments, id)
	return true, nil
}
