package models

import "time"

// AppointmentEventType names a change to an appointment.
type AppointmentEventType string

const (
	EventAppointmentCreated AppointmentEventType = "appointment.created"
	EventAppointmentUpdated AppointmentEventType = "appointment.updated"
	EventAppointmentDeleted AppointmentEventType = "appointment.deleted"
)

// AppointmentEvent is published after an appointment is created, updated or deleted.
type AppointmentEvent struct {
	Type          AppointmentEventType `json:"type"`
	AppointmentID uint                 `json:"appointment_id"`
	Appointment   *Appointment         `json:"appointment,omitempty"` // nil for deletions
	OccurredAt    time.Time            `json:"occurred_at"`
}
