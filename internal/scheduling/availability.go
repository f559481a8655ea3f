package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BusinessHours describes the availability grid for a business day.
type BusinessHours struct {
	Open        string // "HH:MM"
	Close       string // "HH:MM"
	SlotMinutes int
}

// DefaultBusinessHours is the 08:00-18:00 grid in 30-minute steps.
var DefaultBusinessHours = BusinessHours{Open: "08:00", Close: "18:00", SlotMinutes: 30}

// TimeGrid enumerates the HH:MM slot starts spanning the business hours.
// The closing time itself is not a slot start.
func (h BusinessHours) TimeGrid() []string {
	open, err := time.Parse("15:04", h.Open)
	if err != nil {
		open, _ = time.Parse("15:04", DefaultBusinessHours.Open)
	}
	close, err := time.Parse("15:04", h.Close)
	if err != nil {
		close, _ = time.Parse("15:04", DefaultBusinessHours.Close)
	}
	step := h.SlotMinutes
	if step <= 0 {
		step = DefaultBusinessHours.SlotMinutes
	}

	var grid []string
	for t := open; t.Before(close); t = t.Add(time.Duration(step) * time.Minute) {
		grid = append(grid, t.Format("15:04"))
	}
	return grid
}

// appointmentReader is the slice of Store the engine needs.
type appointmentReader interface {
	ListProfessionals(ctx context.Context, businessID string) ([]Professional, error)
	ListByDate(ctx context.Context, businessID string, date time.Time) ([]Appointment, error)
	CountConflicts(ctx context.Context, professionalID uuid.UUID, date time.Time, tm string) (int64, error)
}

// Engine computes open appointment slots from the roster, the business-hours
// grid and existing bookings.
type Engine struct {
	store appointmentReader
	hours BusinessHours
}

// NewEngine creates an availability engine.
func NewEngine(store appointmentReader, hours BusinessHours) *Engine {
	if hours.Open == "" || hours.Close == "" {
		hours = DefaultBusinessHours
	}
	return &Engine{store: store, hours: hours}
}

// AvailableSlots returns the free slots for a day, ordered by professional
// enumeration order and then ascending time. A zero date means today; a nil
// professionalID means the whole roster.
func (e *Engine) AvailableSlots(ctx context.Context, businessID string, date time.Time, professionalID *uuid.UUID) ([]Slot, error) {
	if date.IsZero() {
		now := time.Now()
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	professionals, err := e.store.ListProfessionals(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: available slots: %w", err)
	}
	if professionalID != nil {
		filtered := professionals[:0]
		for _, p := range professionals {
			if p.ID == *professionalID {
				filtered = append(filtered, p)
			}
		}
		professionals = filtered
	}

	appointments, err := e.store.ListByDate(ctx, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: available slots: %w", err)
	}

	taken := make(map[string]struct{}, len(appointments))
	for _, a := range appointments {
		if a.Status == StatusCancelled {
			continue
		}
		taken[slotKey(a.ProfessionalID, a.Time)] = struct{}{}
	}

	grid := e.hours.TimeGrid()
	var slots []Slot
	for _, p := range professionals {
		for _, tm := range grid {
			if _, busy := taken[slotKey(p.ID, tm)]; busy {
				continue
			}
			slots = append(slots, Slot{
				Date:           date,
				Time:           tm,
				ProfessionalID: p.ID,
				Professional:   p.Name,
			})
		}
	}
	return slots, nil
}

// IsSlotFree reports whether the exact (professional, date, time) triple is
// unoccupied by a scheduled or confirmed appointment. The check is exact-match
// only; service durations are not considered.
func (e *Engine) IsSlotFree(ctx context.Context, professionalID uuid.UUID, date time.Time, tm string) (bool, error) {
	count, err := e.store.CountConflicts(ctx, professionalID, date, tm)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func slotKey(professionalID uuid.UUID, tm string) string {
	return professionalID.String() + "|" + tm
}
