package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brisalabs/salon-ai-platform/internal/contexts"
	"github.com/brisalabs/salon-ai-platform/internal/intent"
	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/internal/scheduling"
	"github.com/brisalabs/salon-ai-platform/internal/templates"
)

const cancellableLimit = 3

var statusLabels = map[scheduling.AppointmentStatus]string{
	scheduling.StatusScheduled:  "agendado",
	scheduling.StatusConfirmed:  "confirmado",
	scheduling.StatusInProgress: "em andamento",
	scheduling.StatusCompleted:  "concluído",
	scheduling.StatusCancelled:  "cancelado",
	scheduling.StatusNoShow:     "não compareceu",
}

// handleScheduling routes scheduling-family turns by the literal text of the
// message, falling back to the options menu.
func (o *Orchestrator) handleScheduling(ctx context.Context, msg messaging.InboundMessage, cctx *contexts.Context, res intent.Result) (turnReply, error) {
	text := strings.ToLower(msg.Text)

	switch {
	case strings.Contains(text, "meus agendamentos"):
		return o.listAppointments(ctx, msg)
	case res.Intent == intent.Cancel || strings.Contains(text, "cancelar") || strings.Contains(text, "desmarcar"):
		return o.startCancellation(ctx, msg)
	case res.Intent == intent.Confirmation || strings.Contains(text, "confirmar"):
		return o.confirmNext(ctx, msg)
	case res.Intent == intent.Availability ||
		strings.Contains(text, "horário") || strings.Contains(text, "horario") ||
		strings.Contains(text, "disponível") || strings.Contains(text, "disponivel"):
		return o.listSlots(ctx, msg)
	default:
		return turnReply{text: o.mustRender(templates.TemplateSchedulingMenu, nil)}, nil
	}
}

// listSlots shows today's free slots grouped by professional.
func (o *Orchestrator) listSlots(ctx context.Context, msg messaging.InboundMessage) (turnReply, error) {
	// "Today" follows the business timezone, not the server clock.
	now := o.now().In(o.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	slots, err := o.slots.AvailableSlots(ctx, msg.BusinessID, today, nil)
	if err != nil {
		return turnReply{}, err
	}
	if len(slots) == 0 {
		return turnReply{text: o.mustRender(templates.TemplateNoSlots, map[string]string{
			"date": today.Format("02/01"),
		})}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Horários disponíveis para hoje (%s):\n", today.Format("02/01"))
	professional := ""
	for _, s := range slots {
		if s.Professional != professional {
			if professional != "" {
				b.WriteString("\n")
			}
			professional = s.Professional
			fmt.Fprintf(&b, "💇 *%s:* ", s.Professional)
			b.WriteString(s.Time)
			continue
		}
		b.WriteString(", " + s.Time)
	}
	b.WriteString("\n\nResponda \"agendar\" com o horário desejado para marcar!")
	return turnReply{text: b.String()}, nil
}

// listAppointments shows the client's upcoming appointments.
func (o *Orchestrator) listAppointments(ctx context.Context, msg messaging.InboundMessage) (turnReply, error) {
	appts, err := o.booking.ListClientAppointments(ctx, msg.BusinessID, msg.Phone)
	if err != nil {
		return turnReply{}, err
	}
	if len(appts) == 0 {
		return turnReply{text: o.mustRender(templates.TemplateNoAppointments, nil)}, nil
	}

	var b strings.Builder
	b.WriteString("Seus agendamentos:\n")
	for i, a := range appts {
		fmt.Fprintf(&b, "%d. %s com %s no dia %s às %s (%s)\n",
			i+1, a.Service, a.Professional, a.Date.Format("02/01/2006"), a.Time, statusLabels[a.Status])
	}
	return turnReply{text: strings.TrimRight(b.String(), "\n")}, nil
}

// startCancellation lists up to three cancellable appointments and moves the
// context into the choice sub-state.
func (o *Orchestrator) startCancellation(ctx context.Context, msg messaging.InboundMessage) (turnReply, error) {
	appts, err := o.booking.ListCancellable(ctx, msg.BusinessID, msg.Phone, cancellableLimit)
	if err != nil {
		return turnReply{}, err
	}
	if len(appts) == 0 {
		return turnReply{text: o.mustRender(templates.TemplateCancelNone, nil)}, nil
	}

	var b strings.Builder
	pending := make([]uuid.UUID, 0, len(appts))
	for i, a := range appts {
		fmt.Fprintf(&b, "%d. %s com %s no dia %s às %s\n",
			i+1, a.Service, a.Professional, a.Date.Format("02/01/2006"), a.Time)
		pending = append(pending, a.ID)
	}

	awaiting := contexts.FlowAwaitingCancellationChoice
	return turnReply{
		text: o.mustRender(templates.TemplateCancelPrompt, map[string]string{
			"options": strings.TrimRight(b.String(), "\n"),
		}),
		flowState:  &awaiting,
		setPending: pending,
	}, nil
}

// handleCancellationChoice consumes the numeric reply to a cancel prompt.
// Anything that is not a valid 1-based index re-prompts without touching the
// flow state.
func (o *Orchestrator) handleCancellationChoice(ctx context.Context, msg messaging.InboundMessage, cctx *contexts.Context) (turnReply, error) {
	pending := cctx.Memory.PendingCancellation
	idle := contexts.FlowIdle

	if len(pending) == 0 {
		// Stale flow state with nothing stashed; reset and start over.
		reply, err := o.startCancellation(ctx, msg)
		if err != nil {
			return turnReply{}, err
		}
		if reply.flowState == nil {
			reply.flowState = &idle
		}
		return reply, nil
	}

	choice, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || choice < 1 || choice > len(pending) {
		return turnReply{text: o.mustRender(templates.TemplateCancelRetry, nil)}, nil
	}

	id := pending[choice-1]
	if err := o.booking.Cancel(ctx, id); err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			// Already cancelled or completed in the meantime.
			return turnReply{
				text:         o.mustRender(templates.TemplateCancelNone, nil),
				flowState:    &idle,
				clearPending: true,
			}, nil
		}
		return turnReply{}, err
	}

	vars := map[string]string{"service": "seu horário", "date": "", "time": ""}
	if appt, err := o.booking.Get(ctx, id); err == nil && appt != nil {
		vars["service"] = appt.Service
		vars["date"] = appt.Date.Format("02/01/2006")
		vars["time"] = appt.Time
	}
	return turnReply{
		text:         o.mustRender(templates.TemplateCancelConfirmed, vars),
		flowState:    &idle,
		clearPending: true,
	}, nil
}

// confirmNext confirms the client's oldest scheduled appointment. The booking
// lifecycle sends the confirmation text, so the turn only records it.
func (o *Orchestrator) confirmNext(ctx context.Context, msg messaging.InboundMessage) (turnReply, error) {
	appt, err := o.booking.Confirm(ctx, msg.BusinessID, msg.Phone)
	if err != nil {
		return turnReply{}, err
	}
	if appt == nil {
		return turnReply{text: o.mustRender(templates.TemplateNoAppointments, nil)}, nil
	}
	content := o.mustRender(templates.TemplateConfirmation, map[string]string{
		"service":      appt.Service,
		"professional": appt.Professional,
		"date":         appt.Date.Format("02/01/2006"),
		"time":         appt.Time,
	})
	return turnReply{text: content, alreadySent: true}, nil
}
