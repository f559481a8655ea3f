// Package conversation runs the WhatsApp dialog loop: it deduplicates and
// serializes inbound turns, classifies them and produces the assistant reply.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brisalabs/salon-ai-platform/internal/contexts"
	"github.com/brisalabs/salon-ai-platform/internal/intent"
	"github.com/brisalabs/salon-ai-platform/internal/llm"
	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/internal/observability/metrics"
	"github.com/brisalabs/salon-ai-platform/internal/scheduling"
	"github.com/brisalabs/salon-ai-platform/internal/templates"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

// contextStore is the slice of contexts.Store the orchestrator needs.
type contextStore interface {
	GetOrCreate(ctx context.Context, businessID, phone string) (*contexts.Context, error)
	Update(ctx context.Context, businessID, phone string, patch contexts.Patch) (*contexts.Context, error)
}

// turnClassifier resolves the intent of one inbound message.
type turnClassifier interface {
	Classify(ctx context.Context, message string, digest intent.Digest) intent.Result
}

// bookingService is the slice of scheduling.BookingService the flows need.
type bookingService interface {
	Confirm(ctx context.Context, businessID, phone string) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
	ListClientAppointments(ctx context.Context, businessID, phone string) ([]scheduling.Appointment, error)
	ListCancellable(ctx context.Context, businessID, phone string, limit int) ([]scheduling.Appointment, error)
}

// slotFinder lists free slots for a business day.
type slotFinder interface {
	AvailableSlots(ctx context.Context, businessID string, date time.Time, professionalID *uuid.UUID) ([]scheduling.Slot, error)
}

// Orchestrator executes one conversation turn end to end. It must only be
// called through the dispatcher, which serializes turns per (business, phone).
type Orchestrator struct {
	store      contextStore
	classifier turnClassifier
	booking    bookingService
	slots      slotFinder
	sender     messaging.Sender
	llm        llm.Client
	catalog    *templates.Catalog
	metrics    *metrics.ConversationMetrics
	logger     *logging.Logger

	businessName string
	maxTokens    int
	location     *time.Location
	now          func() time.Time
}

// Options tunes orchestrator behavior.
type Options struct {
	BusinessName string
	LLMMaxTokens int
	// Location is the business timezone; "today" in slot listings is derived
	// from it. Defaults to time.Local.
	Location *time.Location
}

// NewOrchestrator wires the turn processor. llmClient may be nil; replies
// then fall back to static templates.
func NewOrchestrator(
	store contextStore,
	classifier turnClassifier,
	booking bookingService,
	slots slotFinder,
	sender messaging.Sender,
	llmClient llm.Client,
	catalog *templates.Catalog,
	m *metrics.ConversationMetrics,
	logger *logging.Logger,
	opts Options,
) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.BusinessName == "" {
		opts.BusinessName = "nosso salão"
	}
	if opts.LLMMaxTokens <= 0 {
		opts.LLMMaxTokens = 400
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Orchestrator{
		store:        store,
		classifier:   classifier,
		booking:      booking,
		slots:        slots,
		sender:       sender,
		llm:          llmClient,
		catalog:      catalog,
		metrics:      m,
		logger:       logger,
		businessName: opts.BusinessName,
		maxTokens:    opts.LLMMaxTokens,
		location:     opts.Location,
		now:          time.Now,
	}
}

// turnReply is the outcome of one branch of turn handling.
type turnReply struct {
	text string
	// alreadySent marks replies delivered by a collaborator (the booking
	// lifecycle sends confirmations itself).
	alreadySent bool

	flowState    *contexts.FlowState
	state        *contexts.State
	setPending   []uuid.UUID
	clearPending bool
}

// ProcessTurn runs the full pipeline for one inbound message: load context,
// classify, resolve the reply, send it and persist the exchange. The exchange
// is persisted only after the reply was delivered.
func (o *Orchestrator) ProcessTurn(ctx context.Context, msg messaging.InboundMessage) error {
	start := time.Now()

	cctx, err := o.store.GetOrCreate(ctx, msg.BusinessID, msg.Phone)
	if err != nil {
		o.observe(intent.Other, "context_error", start)
		o.apologize(ctx, msg.Phone)
		return fmt.Errorf("conversation: load context: %w", err)
	}

	res := o.classifier.Classify(ctx, msg.Text, digestFrom(cctx))

	reply, err := o.resolveReply(ctx, msg, cctx, res)
	if err != nil {
		o.observe(res.Intent, "flow_error", start)
		o.apologize(ctx, msg.Phone)
		return fmt.Errorf("conversation: resolve reply: %w", err)
	}

	if !reply.alreadySent {
		if err := o.sender.Send(ctx, msg.Phone, reply.text); err != nil {
			o.observe(res.Intent, "send_failed", start)
			o.metrics.ObserveOutbound("failed")
			return fmt.Errorf("conversation: send reply: %w", err)
		}
	}
	o.metrics.ObserveOutbound("sent")

	patch := contexts.Patch{
		Intent:    strPtr(string(res.Intent)),
		Sentiment: strPtr(string(res.Sentiment)),
		AppendExchange: &contexts.Exchange{
			Message:  msg.Text,
			Response: reply.text,
			Intent:   string(res.Intent),
			At:       msg.At,
		},
		FlowState:                reply.flowState,
		State:                    reply.state,
		SetPendingCancellation:   reply.setPending,
		ClearPendingCancellation: reply.clearPending,
	}
	if msg.PushName != "" {
		patch.ClientName = strPtr(msg.PushName)
	}
	if _, err := o.store.Update(ctx, msg.BusinessID, msg.Phone, patch); err != nil {
		// The reply already went out; losing the exchange record is bad but
		// must not surface an error to the client.
		o.logger.Error("persist exchange failed", "error", err, "phone", msg.Phone)
	}

	o.observe(res.Intent, "ok", start)
	return nil
}

// resolveReply picks the branch for this turn. Priority: first contact,
// pending flow state, human handoff, intent routing.
func (o *Orchestrator) resolveReply(ctx context.Context, msg messaging.InboundMessage, cctx *contexts.Context, res intent.Result) (turnReply, error) {
	if cctx.Memory.MessageCount == 0 {
		return o.welcome(msg, cctx), nil
	}
	if cctx.FlowState == contexts.FlowAwaitingCancellationChoice {
		return o.handleCancellationChoice(ctx, msg, cctx)
	}
	if res.RequiresHuman {
		waiting := contexts.StateWaiting
		return turnReply{
			text:  o.mustRender(templates.TemplateHumanHandoff, nil),
			state: &waiting,
		}, nil
	}

	switch res.Intent {
	case intent.Scheduling, intent.Availability, intent.Confirmation,
		intent.Cancel, intent.Reschedule:
		return o.handleScheduling(ctx, msg, cctx, res)
	default:
		return o.generalReply(ctx, msg, cctx, res), nil
	}
}

// welcome greets a never-seen client regardless of what the first message
// says.
func (o *Orchestrator) welcome(msg messaging.InboundMessage, cctx *contexts.Context) turnReply {
	name := ""
	if msg.PushName != "" {
		name = ", " + msg.PushName
	} else if cctx.ClientName != "" {
		name = ", " + cctx.ClientName
	}
	return turnReply{text: o.mustRender(templates.TemplateWelcome, map[string]string{
		"client_name":   name,
		"business_name": o.businessName,
	})}
}

func (o *Orchestrator) apologize(ctx context.Context, phone string) {
	text := o.mustRender(templates.TemplateApology, nil)
	if err := o.sender.Send(ctx, phone, text); err != nil {
		o.logger.Error("apology send failed", "error", err, "phone", phone)
	}
}

// mustRender renders a catalog template. The catalog is static, so a missing
// id is a programming error; degrade to an empty-variable render of nothing.
func (o *Orchestrator) mustRender(id string, vars map[string]string) string {
	text, err := o.catalog.RenderID(id, vars)
	if err != nil {
		o.logger.Error("template render failed", "error", err, "template", id)
		return "Desculpe, não consegui montar a resposta agora."
	}
	return text
}

func (o *Orchestrator) observe(in intent.Intent, status string, start time.Time) {
	o.metrics.ObserveTurn(string(in), status, time.Since(start).Seconds())
}

func digestFrom(cctx *contexts.Context) intent.Digest {
	d := intent.Digest{
		ClientName:        cctx.ClientName,
		PriorIntent:       cctx.LastIntent,
		ConversationState: string(cctx.State),
	}
	for _, ex := range cctx.RecentHistory(3) {
		d.History = append(d.History, intent.HistoryEntry{Message: ex.Message, Response: ex.Response})
	}
	return d
}

func strPtr(s string) *string { return &s }
