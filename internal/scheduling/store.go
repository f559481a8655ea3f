package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrSlotTaken indicates the requested (professional, date, time) is occupied.
var ErrSlotTaken = errors.New("scheduling: slot already taken")

// ErrNotFound indicates the appointment does not exist or the guarded
// transition did not match its current status.
var ErrNotFound = errors.New("scheduling: appointment not found")

const appointmentColumns = `id, business_id, professional_id, professional_name, client_phone, client_name, service, date, time, status, created_at, updated_at`

// Store provides persistence for appointments and the professional roster.
type Store struct {
	db DB
}

// NewStore creates a scheduling store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ListProfessionals returns the active roster in a stable enumeration order.
func (s *Store) ListProfessionals(ctx context.Context, businessID string) ([]Professional, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, business_id, name, active
		FROM professionals
		WHERE business_id = $1 AND active
		ORDER BY created_at ASC, name ASC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list professionals: %w", err)
	}
	defer rows.Close()

	var result []Professional
	for rows.Next() {
		var p Professional
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Active); err != nil {
			return nil, fmt.Errorf("scheduling: scan professional: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ListByDate returns all non-cancelled appointments for a business day.
func (s *Store) ListByDate(ctx context.Context, businessID string, date time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND date = $2 AND status <> 'cancelled'
		ORDER BY time ASC`, businessID, date)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list by date: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListByClient returns upcoming non-cancelled appointments for a client phone.
func (s *Store) ListByClient(ctx context.Context, businessID, phone string, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND client_phone = $2 AND status NOT IN ('cancelled', 'completed', 'no_show')
		ORDER BY date ASC, time ASC
		LIMIT $3`, businessID, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list by client: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListCancellable returns scheduled/confirmed appointments for a client,
// soonest first, limited for the cancellation prompt.
func (s *Store) ListCancellable(ctx context.Context, businessID, phone string, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND client_phone = $2 AND status IN ('scheduled', 'confirmed')
		ORDER BY date ASC, time ASC
		LIMIT $3`, businessID, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list cancellable: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// OldestScheduled returns the client's oldest appointment still in 'scheduled',
// or nil when none exists.
func (s *Store) OldestScheduled(ctx context.Context, businessID, phone string) (*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND client_phone = $2 AND status = 'scheduled'
		ORDER BY date ASC, time ASC
		LIMIT 1`, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("scheduling: oldest scheduled: %w", err)
	}
	defer rows.Close()
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, nil
	}
	return &appts[0], nil
}

// GetByID returns an appointment or nil when missing.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("scheduling: get by id: %w", err)
	}
	defer rows.Close()
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, nil
	}
	return &appts[0], nil
}

// CountConflicts counts scheduled/confirmed appointments at the exact
// (professional, date, time) triple.
func (s *Store) CountConflicts(ctx context.Context, professionalID uuid.UUID, date time.Time, tm string) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE professional_id = $1 AND date = $2 AND time = $3
		  AND status IN ('scheduled', 'confirmed')`, professionalID, date, tm).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("scheduling: count conflicts: %w", err)
	}
	return count, nil
}

// Create inserts a new appointment.
func (s *Store) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusScheduled
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.BusinessID, a.ProfessionalID, a.Professional, a.ClientPhone,
		a.ClientName, a.Service, a.Date, a.Time, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("scheduling: create appointment: %w", err)
	}
	return nil
}

// UpdateStatus performs a guarded status transition. It fails with ErrNotFound
// when the appointment is missing or not in one of the expected statuses.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus) error {
	expected := make([]string, 0, len(from))
	for _, st := range from {
		expected = append(expected, string(st))
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)`,
		string(to), time.Now().UTC(), id, expected)
	if err != nil {
		return fmt.Errorf("scheduling: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		var a Appointment
		var status string
		err := rows.Scan(
			&a.ID, &a.BusinessID, &a.ProfessionalID, &a.Professional,
			&a.ClientPhone, &a.ClientName, &a.Service, &a.Date, &a.Time,
			&status, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		a.Status = AppointmentStatus(status)
		result = append(result, a)
	}
	return result, rows.Err()
}
