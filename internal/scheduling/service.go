package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// LifecycleNotifier receives appointment lifecycle events. The delivery engine
// implements it to enqueue reminders and follow-ups.
type LifecycleNotifier interface {
	AppointmentBooked(ctx context.Context, appt Appointment)
	AppointmentConfirmed(ctx context.Context, appt Appointment)
}

// BookingService applies booking business rules on top of the store and
// notifies the lifecycle collaborator on transitions.
type BookingService struct {
	store     *Store
	engine    *Engine
	lifecycle LifecycleNotifier
	logger    *logging.Logger
}

// NewBookingService creates a booking service. lifecycle may be nil.
func NewBookingService(store *Store, engine *Engine, lifecycle LifecycleNotifier, logger *logging.Logger) *BookingService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingService{store: store, engine: engine, lifecycle: lifecycle, logger: logger}
}

// BookInput carries the data required to create an appointment.
type BookInput struct {
	BusinessID     string
	ProfessionalID uuid.UUID
	Professional   string
	ClientPhone    string
	ClientName     string
	Service        string
	Date           time.Time
	Time           string
}

// Book creates an appointment after verifying the slot is free.
func (s *BookingService) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	free, err := s.engine.IsSlotFree(ctx, in.ProfessionalID, in.Date, in.Time)
	if err != nil {
		return nil, fmt.Errorf("scheduling: book: %w", err)
	}
	if !free {
		return nil, ErrSlotTaken
	}

	appt := &Appointment{
		BusinessID:     in.BusinessID,
		ProfessionalID: in.ProfessionalID,
		Professional:   in.Professional,
		ClientPhone:    in.ClientPhone,
		ClientName:     in.ClientName,
		Service:        in.Service,
		Date:           in.Date,
		Time:           in.Time,
		Status:         StatusScheduled,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"professional", appt.Professional,
		"date", appt.Date.Format(time.DateOnly),
		"time", appt.Time,
	)

	if s.lifecycle != nil {
		s.lifecycle.AppointmentBooked(ctx, *appt)
	}
	return appt, nil
}

// Cancel transitions a scheduled/confirmed appointment to cancelled.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) error {
	err := s.store.UpdateStatus(ctx, id, []AppointmentStatus{StatusScheduled, StatusConfirmed}, StatusCancelled)
	if err != nil {
		return err
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}

// Confirm transitions the client's oldest scheduled appointment to confirmed
// and notifies the lifecycle collaborator. Returns nil, nil when the client
// has no scheduled appointment.
func (s *BookingService) Confirm(ctx context.Context, businessID, phone string) (*Appointment, error) {
	appt, err := s.store.OldestScheduled(ctx, businessID, phone)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, nil
	}

	if err := s.store.UpdateStatus(ctx, appt.ID, []AppointmentStatus{StatusScheduled}, StatusConfirmed); err != nil {
		return nil, err
	}
	appt.Status = StatusConfirmed

	s.logger.Info("appointment confirmed", "appointment_id", appt.ID, "business_id", businessID)

	if s.lifecycle != nil {
		s.lifecycle.AppointmentConfirmed(ctx, *appt)
	}
	return appt, nil
}

// Get returns the appointment with the given id.
func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// ListClientAppointments returns the client's upcoming appointments.
func (s *BookingService) ListClientAppointments(ctx context.Context, businessID, phone string) ([]Appointment, error) {
	return s.store.ListByClient(ctx, businessID, phone, 10)
}

// ListCancellable returns up to limit cancellable appointments for the client.
func (s *BookingService) ListCancellable(ctx context.Context, businessID, phone string, limit int) ([]Appointment, error) {
	return s.store.ListCancellable(ctx, businessID, phone, limit)
}
