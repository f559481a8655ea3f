// Package handlers implements the operator-facing admin JSON endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/brisalabs/salon-ai-platform/internal/contexts"
	"github.com/brisalabs/salon-ai-platform/internal/delivery"
	"github.com/brisalabs/salon-ai-platform/internal/scheduling"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// AdminHandler exposes operator endpoints for contexts, scheduled messages,
// availability and appointments.
type AdminHandler struct {
	contexts *contexts.Store
	delivery *delivery.Store
	booking  *scheduling.BookingService
	engine   *scheduling.Engine
	logger   *logging.Logger
}

// NewAdminHandler wires the admin surface.
func NewAdminHandler(ctxStore *contexts.Store, deliveryStore *delivery.Store, booking *scheduling.BookingService, engine *scheduling.Engine, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{
		contexts: ctxStore,
		delivery: deliveryStore,
		booking:  booking,
		engine:   engine,
		logger:   logger,
	}
}

// ListContexts handles GET /admin/contexts?business_id=&limit=.
func (h *AdminHandler) ListContexts(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	limit := queryInt(r, "limit", 50)

	list, err := h.contexts.ListActive(r.Context(), businessID, limit)
	if err != nil {
		h.logger.Error("list contexts failed", "error", err, "business_id", businessID)
		writeError(w, http.StatusInternalServerError, "failed to list contexts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contexts": list, "count": len(list)})
}

// CloseInactiveContexts handles POST /admin/contexts/close-inactive.
func (h *AdminHandler) CloseInactiveContexts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID string `json:"business_id"`
		IdleHours  int    `json:"idle_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	closed, err := h.contexts.CloseInactive(r.Context(), req.BusinessID, req.IdleHours)
	if err != nil {
		h.logger.Error("close inactive failed", "error", err, "business_id", req.BusinessID)
		writeError(w, http.StatusInternalServerError, "failed to close contexts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

// ListScheduled handles GET /admin/scheduled?business_id=&status=&limit=.
func (h *AdminHandler) ListScheduled(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	status := delivery.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = delivery.StatusPending
	}
	limit := queryInt(r, "limit", 50)

	list, err := h.delivery.ListByStatus(r.Context(), businessID, status, limit)
	if err != nil {
		h.logger.Error("list scheduled failed", "error", err, "business_id", businessID)
		writeError(w, http.StatusInternalServerError, "failed to list scheduled messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": list, "count": len(list)})
}

// Availability handles GET /admin/availability?business_id=&date=&professional_id=.
func (h *AdminHandler) Availability(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	var professionalID *uuid.UUID
	if raw := r.URL.Query().Get("professional_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "professional_id must be a UUID")
			return
		}
		professionalID = &id
	}

	slots, err := h.engine.AvailableSlots(r.Context(), businessID, date, professionalID)
	if err != nil {
		h.logger.Error("availability failed", "error", err, "business_id", businessID)
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots, "count": len(slots)})
}

// BookAppointment handles POST /admin/appointments.
func (h *AdminHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BusinessID     string `json:"business_id"`
		ProfessionalID string `json:"professional_id"`
		Professional   string `json:"professional"`
		ClientPhone    string `json:"client_phone"`
		ClientName     string `json:"client_name"`
		Service        string `json:"service"`
		Date           string `json:"date"`
		Time           string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessID == "" || req.ClientPhone == "" || req.Service == "" || req.Time == "" {
		writeError(w, http.StatusBadRequest, "business_id, client_phone, service and time are required")
		return
	}
	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "professional_id must be a UUID")
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	appt, err := h.booking.Book(r.Context(), scheduling.BookInput{
		BusinessID:     req.BusinessID,
		ProfessionalID: professionalID,
		Professional:   req.Professional,
		ClientPhone:    req.ClientPhone,
		ClientName:     req.ClientName,
		Service:        req.Service,
		Date:           date,
		Time:           req.Time,
	})
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotTaken) {
			writeError(w, http.StatusConflict, "slot is already taken")
			return
		}
		h.logger.Error("book appointment failed", "error", err, "business_id", req.BusinessID)
		writeError(w, http.StatusInternalServerError, "failed to book appointment")
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
