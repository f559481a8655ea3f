package messaging

import (
	"context"

	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// Sender delivers an outbound WhatsApp message to a client phone. Phones must
// already be in canonical international form.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// NopSender logs instead of sending; used in development without gateway
// credentials.
type NopSender struct {
	logger *logging.Logger
}

// NewNopSender creates a no-op sender.
func NewNopSender(logger *logging.Logger) *NopSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &NopSender{logger: logger}
}

// Send logs the message and reports success.
func (s *NopSender) Send(ctx context.Context, phone, text string) error {
	s.logger.Info("outbound message suppressed (nop sender)", "phone", phone, "chars", len(text))
	return nil
}
