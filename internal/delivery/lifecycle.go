package delivery

import (
	"context"
	"time"

	"github.com/brisalabs/salon-ai-platform/internal/scheduling"
	"github.com/brisalabs/salon-ai-platform/internal/templates"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// Lifecycle reacts to appointment transitions by sending an immediate
// confirmation and enqueueing the reminder and follow-up messages. It
// implements scheduling.LifecycleNotifier.
type Lifecycle struct {
	scheduler *Scheduler
	sender    Sender
	catalog   *templates.Catalog
	location  *time.Location
	logger    *logging.Logger
	now       func() time.Time
}

// NewLifecycle creates a lifecycle notifier. location defaults to UTC.
func NewLifecycle(scheduler *Scheduler, sender Sender, catalog *templates.Catalog, location *time.Location, logger *logging.Logger) *Lifecycle {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{
		scheduler: scheduler,
		sender:    sender,
		catalog:   catalog,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

// AppointmentBooked confirms the booking right away and enqueues the 24h
// reminder (skipped when the appointment starts within 24h) plus the 24h
// follow-up.
func (l *Lifecycle) AppointmentBooked(ctx context.Context, appt scheduling.Appointment) {
	l.sendConfirmation(ctx, appt)

	start := appt.StartAt(l.location)
	vars := appointmentVars(appt)

	reminderAt := start.Add(-24 * time.Hour)
	if reminderAt.After(l.now()) {
		_, err := l.scheduler.Schedule(ctx, ScheduleInput{
			BusinessID:    appt.BusinessID,
			Phone:         appt.ClientPhone,
			TemplateID:    templates.TemplateReminder24h,
			FireAt:        reminderAt,
			Variables:     vars,
			AppointmentID: &appt.ID,
		})
		if err != nil {
			l.logger.Error("enqueue reminder failed", "error", err, "appointment_id", appt.ID)
		}
	} else {
		l.logger.Info("reminder skipped, appointment starts within 24h", "appointment_id", appt.ID)
	}

	_, err := l.scheduler.Schedule(ctx, ScheduleInput{
		BusinessID:    appt.BusinessID,
		Phone:         appt.ClientPhone,
		TemplateID:    templates.TemplateFollowup24h,
		FireAt:        start.Add(24 * time.Hour),
		Variables:     vars,
		AppointmentID: &appt.ID,
	})
	if err != nil {
		l.logger.Error("enqueue follow-up failed", "error", err, "appointment_id", appt.ID)
	}
}

// AppointmentConfirmed re-sends the confirmation text. The reminder and
// follow-up were already enqueued at booking time.
func (l *Lifecycle) AppointmentConfirmed(ctx context.Context, appt scheduling.Appointment) {
	l.sendConfirmation(ctx, appt)
}

func (l *Lifecycle) sendConfirmation(ctx context.Context, appt scheduling.Appointment) {
	if l.sender == nil {
		return
	}
	content, err := l.catalog.RenderID(templates.TemplateConfirmation, appointmentVars(appt))
	if err != nil {
		l.logger.Error("render confirmation failed", "error", err, "appointment_id", appt.ID)
		return
	}
	if err := l.sender.Send(ctx, appt.ClientPhone, content); err != nil {
		l.logger.Error("send confirmation failed", "error", err, "appointment_id", appt.ID)
	}
}

func appointmentVars(appt scheduling.Appointment) map[string]string {
	return map[string]string{
		"client_name":  appt.ClientName,
		"service":      appt.Service,
		"professional": appt.Professional,
		"date":         appt.Date.Format("02/01/2006"),
		"time":         appt.Time,
	}
}
