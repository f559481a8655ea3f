package messaging

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// TwilioSender delivers outbound messages through the Twilio WhatsApp channel.
type TwilioSender struct {
	client *twilio.RestClient
	from   string // "whatsapp:+14155238886"
	logger *logging.Logger
}

// NewTwilioSender creates a Twilio-backed sender.
func NewTwilioSender(accountSID, authToken, whatsappFrom string, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: whatsappFrom, logger: logger}
}

// Send pushes one WhatsApp message. phone is digits-only international form.
func (s *TwilioSender) Send(ctx context.Context, phone, text string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", phone))
	params.SetBody(text)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("messaging: twilio send: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Debug("whatsapp message sent", "phone", phone, "sid", sid)
	return nil
}
