package messaging

import (
	"strings"
	"time"
)

// Envelope is the inbound webhook payload from the WhatsApp gateway.
// Transport and token validation happen upstream; this package only decodes
// the message shape.
type Envelope struct {
	Instance  string          `json:"instance"`
	Key       MessageKey      `json:"key"`
	PushName  string          `json:"pushName,omitempty"`
	Timestamp int64           `json:"messageTimestamp"`
	Message   *MessagePayload `json:"message,omitempty"`
}

// MessageKey identifies a gateway message.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// MessagePayload is the tagged union of supported message kinds. Exactly one
// field is set per message.
type MessagePayload struct {
	Conversation string           `json:"conversation,omitempty"`
	ExtendedText *ExtendedText    `json:"extendedTextMessage,omitempty"`
	Image        *MediaMessage    `json:"imageMessage,omitempty"`
	Audio        *AudioMessage    `json:"audioMessage,omitempty"`
	Video        *MediaMessage    `json:"videoMessage,omitempty"`
	Document     *DocumentMessage `json:"documentMessage,omitempty"`
}

// ExtendedText is a text message with link preview or quote metadata.
type ExtendedText struct {
	Text string `json:"text"`
}

// MediaMessage is an image or video payload with an optional caption.
type MediaMessage struct {
	Caption  string `json:"caption,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// AudioMessage is a voice note or audio payload. It carries no text.
type AudioMessage struct {
	Seconds  int    `json:"seconds,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// DocumentMessage is a file payload with optional caption and filename.
type DocumentMessage struct {
	Caption  string `json:"caption,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// Text returns the text-bearing content of the payload, or "" for media
// without caption.
func (m *MessagePayload) Text() string {
	if m == nil {
		return ""
	}
	switch {
	case m.Conversation != "":
		return m.Conversation
	case m.ExtendedText != nil:
		return m.ExtendedText.Text
	case m.Image != nil:
		return m.Image.Caption
	case m.Video != nil:
		return m.Video.Caption
	case m.Document != nil:
		return m.Document.Caption
	default:
		return ""
	}
}

// At converts the gateway unix timestamp, falling back to now.
func (e *Envelope) At() time.Time {
	if e.Timestamp <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(e.Timestamp, 0).UTC()
}

// InboundMessage is the normalized turn input handed to the orchestrator.
type InboundMessage struct {
	BusinessID string
	Phone      string
	PushName   string
	Text       string
	ProviderID string
	At         time.Time
}

// ToInbound normalizes the envelope. ok is false for own-originated messages,
// missing senders and payloads without text content.
func (e *Envelope) ToInbound(defaultCountryCode string) (InboundMessage, bool) {
	if e == nil || e.Key.FromMe {
		return InboundMessage{}, false
	}
	phone := NormalizePhone(PhoneFromJID(e.Key.RemoteJID), defaultCountryCode)
	if phone == "" {
		return InboundMessage{}, false
	}
	text := strings.TrimSpace(e.Message.Text())
	if text == "" {
		return InboundMessage{}, false
	}
	return InboundMessage{
		BusinessID: e.Instance,
		Phone:      phone,
		PushName:   strings.TrimSpace(e.PushName),
		Text:       text,
		ProviderID: e.Key.ID,
		At:         e.At(),
	}, true
}
