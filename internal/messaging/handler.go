package messaging

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// TurnProcessor consumes normalized inbound messages. The conversation
// orchestrator implements it.
type TurnProcessor interface {
	HandleInbound(ctx context.Context, msg InboundMessage) error
}

// Handler wires the WhatsApp gateway webhook to the orchestrator.
type Handler struct {
	processor          TurnProcessor
	defaultCountryCode string
	sharedToken        string
	logger             *logging.Logger
}

// NewHandler creates a webhook handler. sharedToken, when set, must match the
// X-Webhook-Token header on every delivery.
func NewHandler(processor TurnProcessor, defaultCountryCode, sharedToken string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		processor:          processor,
		defaultCountryCode: defaultCountryCode,
		sharedToken:        sharedToken,
		logger:             logger,
	}
}

// Webhook handles POST /webhooks/whatsapp.
// Ignored payloads (own messages, media without caption) are acknowledged
// with 200 so the gateway does not retry them.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.sharedToken != "" && r.Header.Get("X-Webhook-Token") != h.sharedToken {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
		return
	}

	var envelope Envelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Error("failed to decode webhook envelope", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, ok := envelope.ToInbound(h.defaultCountryCode)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.processor.HandleInbound(r.Context(), msg); err != nil {
		// The turn failed after the gateway delivered the message; the next
		// inbound message re-derives state from the persisted context, so we
		// acknowledge instead of triggering a gateway retry storm.
		h.logger.Error("inbound turn failed",
			"error", err,
			"business_id", msg.BusinessID,
			"provider_id", msg.ProviderID,
		)
	}

	w.WriteHeader(http.StatusOK)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
