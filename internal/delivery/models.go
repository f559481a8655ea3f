// Package delivery stores future-dated templated messages and sends the due
// ones on a periodic sweep.
package delivery

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a scheduled message. sent and failed are
// terminal; sending marks a row claimed by an in-flight sweep.
type Status string

const (
	StatusPending Status = "pending"
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ScheduledMessage is a future-dated outbound message tied to an appointment
// lifecycle event. Content is rendered at schedule time; variables are frozen
// then, not at send time.
type ScheduledMessage struct {
	ID            uuid.UUID  `json:"id"`
	BusinessID    string     `json:"business_id"`
	Phone         string     `json:"phone"`
	Content       string     `json:"content"`
	FireAt        time.Time  `json:"fire_at"`
	Status        Status     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	ErrorReason   string     `json:"error_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
