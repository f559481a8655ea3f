package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the lifecycle of an appointment.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Appointment represents a booked service slot.
// At most one non-cancelled appointment may exist per (professional, date, time).
type Appointment struct {
	ID             uuid.UUID         `json:"id"`
	BusinessID     string            `json:"business_id"`
	ProfessionalID uuid.UUID         `json:"professional_id"`
	Professional   string            `json:"professional"`
	ClientPhone    string            `json:"client_phone"`
	ClientName     string            `json:"client_name"`
	Service        string            `json:"service"`
	Date           time.Time         `json:"date"`
	Time           string            `json:"time"`
	Status         AppointmentStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// StartAt combines the appointment date and HH:MM time in the given location.
func (a Appointment) StartAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	tm, err := time.Parse("15:04", a.Time)
	if err != nil {
		return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), tm.Hour(), tm.Minute(), 0, 0, loc)
}

// Professional is a member of the business roster.
type Professional struct {
	ID         uuid.UUID `json:"id"`
	BusinessID string    `json:"business_id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
}

// Slot is a free appointment opening returned by the availability engine.
type Slot struct {
	Date           time.Time `json:"date"`
	Time           string    `json:"time"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Professional   string    `json:"professional"`
}
