package models

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment represents a medical appointment.
type Appointment struct {
	ID              uint              `json:"id" gorm:"primaryKey"`
	PatientName     string            `json:"patient_name" gorm:"type:varchar(255);not null"`
	DoctorName      string            `json:"doctor_name" gorm:"type:varchar(255);not null"`
	AppointmentDate time.Time         `json:"appointment_date" gorm:"not null"`
	Status          AppointmentStatus `json:"status" gorm:"type:varchar(20);not null"`
}

// AppointmentPatch carries a partial update. Nil fields are left untouched.
type AppointmentPatch struct {
	PatientName     *string
	DoctorName      *string
	AppointmentDate *time.Time
	Status          *AppointmentStatus
}

// Empty reports whether the patch changes nothing.
func (p AppointmentPatch) Empty() bool {
	return p.PatientName == nil && p.DoctorName == nil && p.AppointmentDate == nil && p.Status == nil
}

// Apply copies the provided fields onto a.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.PatientName != nil {
		a.PatientName = *p.PatientName
	}
	if p.DoctorName != nil {
		a.DoctorName = *p.DoctorName
	}
	if p.AppointmentDate != nil {
		a.AppointmentDate = p.AppointmentDate.UTC()
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

// Columns returns the provided fields keyed by column name.
func (p AppointmentPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if p.PatientName != nil {
		cols["patient_name"] = *p.PatientName
	}
	if p.DoctorName != nil {
		cols["doctor_name"] = *p.DoctorName
	}
	if p.AppointmentDate != nil {
		cols["appointment_date"] = p.AppointmentDate.UTC()
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	return cols
}

// CreateAppointmentInput is the request body for creating an appointment.
type CreateAppointmentInput struct {
	PatientName     string `json:"patient_name" validate:"required,max=255"`
	DoctorName      string `json:"doctor_name" validate:"required,max=255"`
	AppointmentDate string `json:"appointment_date" validate:"required,isodate"`
	Status          string `json:"status" validate:"required,oneof=scheduled completed cancelled"`
}

// ToAppointment converts a validated input into a new record.
func (in CreateAppointmentInput) ToAppointment() (*Appointment, error) {
	date, err := ParseAppointmentDate(in.AppointmentDate)
	if err != nil {
		return nil, err
	}
	return &Appointment{
		PatientName:     in.PatientName,
		DoctorName:      in.DoctorName,
		AppointmentDate: date,
		Status:          AppointmentStatus(in.Status),
	}, nil
}

// UpdateAppointmentInput is the request body for a partial update.
// A field that is present must satisfy the same rules as on create.
type UpdateAppointmentInput struct {
	PatientName     *string `json:"patient_name" validate:"omitempty,min=1,max=255"`
	DoctorName      *string `json:"doctor_name" validate:"omitempty,min=1,max=255"`
	AppointmentDate *string `json:"appointment_date" validate:"omitempty,isodate"`
	Status          *string `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
}

// ToPatch converts a validated input into a patch.
func (in UpdateAppointmentInput) ToPatch() (AppointmentPatch, error) {
	patch := AppointmentPatch{
		PatientName: in.PatientName,
		DoctorName:  in.DoctorName,
	}
	if in.AppointmentDate != nil {
		date, err := ParseAppointmentDate(*in.AppointmentDate)
		if err != nil {
			return AppointmentPatch{}, err
		}
		patch.AppointmentDate = &date
	}
	if in.Status != nil {
		status := AppointmentStatus(*in.Status)
		patch.Status = &status
	}
	return patch, nil
}

// appointmentDateLayouts are tried in order. Layouts without an offset are read as UTC.
var appointmentDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseAppointmentDate parses s with the accepted layouts and normalizes it to UTC.
func ParseAppointmentDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range appointmentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment date %q", s)
}
