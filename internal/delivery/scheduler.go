package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brisalabs/salon-ai-platform/internal/templates"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// messageCreator is the slice of Store the scheduler needs.
type messageCreator interface {
	Create(ctx context.Context, m *ScheduledMessage) error
}

// Scheduler enqueues future-dated templated messages.
type Scheduler struct {
	store   messageCreator
	catalog *templates.Catalog
	logger  *logging.Logger
}

// NewScheduler creates a delivery scheduler.
func NewScheduler(store messageCreator, catalog *templates.Catalog, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, catalog: catalog, logger: logger}
}

// ScheduleInput describes one future send.
type ScheduleInput struct {
	BusinessID    string
	Phone         string
	TemplateID    string
	FireAt        time.Time
	Variables     map[string]string
	AppointmentID *uuid.UUID
}

// Schedule renders the template now and persists a pending message. Variables
// are frozen at schedule time.
func (s *Scheduler) Schedule(ctx context.Context, in ScheduleInput) (*ScheduledMessage, error) {
	content, err := s.catalog.RenderID(in.TemplateID, in.Variables)
	if err != nil {
		return nil, fmt.Errorf("delivery: schedule: %w", err)
	}

	msg := &ScheduledMessage{
		BusinessID:    in.BusinessID,
		Phone:         in.Phone,
		Content:       content,
		FireAt:        in.FireAt.UTC(),
		Status:        StatusPending,
		AppointmentID: in.AppointmentID,
	}
	if err := s.store.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("scheduled message enqueued",
		"id", msg.ID,
		"business_id", in.BusinessID,
		"template", in.TemplateID,
		"fire_at", msg.FireAt.Format(time.RFC3339),
	)
	return msg, nil
}
