// Package contexts persists per-client conversation state used to keep
// multi-turn WhatsApp dialogs coherent across webhook deliveries.
package contexts

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of a conversation context. Closed contexts are kept
// to distinguish dormant clients from never-seen ones.
type State string

const (
	StateActive  State = "active"
	StateWaiting State = "waiting"
	StateClosed  State = "closed"
)

// FlowState is the explicit sub-state of a multi-turn flow.
type FlowState string

const (
	FlowIdle                       FlowState = "idle"
	FlowAwaitingCancellationChoice FlowState = "awaiting_cancellation_choice"
)

// HistoryLimit caps the rolling exchange window; the oldest entry is evicted
// when an 11th exchange is appended.
const HistoryLimit = 10

// Exchange is one (inbound, outbound, intent) triple of a conversation turn.
type Exchange struct {
	Message  string    `json:"message"`
	Response string    `json:"response"`
	Intent   string    `json:"intent"`
	At       time.Time `json:"at"`
}

// Memory is the structured conversational memory stored as JSONB. Known
// fields are typed; Extra is the forward-compatibility bag for flow scratch
// data that has no dedicated field yet.
type Memory struct {
	MessageCount        int               `json:"message_count"`
	FirstSeen           time.Time         `json:"first_seen"`
	History             []Exchange        `json:"history,omitempty"`
	PendingCancellation []uuid.UUID       `json:"pending_cancellation,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// Context is the durable per-(business, phone) conversation record.
type Context struct {
	BusinessID      string    `json:"business_id"`
	Phone           string    `json:"phone"`
	ClientName      string    `json:"client_name,omitempty"`
	State           State     `json:"state"`
	FlowState       FlowState `json:"flow_state"`
	LastIntent      string    `json:"last_intent"`
	LastSentiment   string    `json:"last_sentiment"`
	Memory          Memory    `json:"memory"`
	LastInteraction time.Time `json:"last_interaction"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RecentHistory returns up to n most recent exchanges, oldest first.
func (c *Context) RecentHistory(n int) []Exchange {
	if n <= 0 || len(c.Memory.History) == 0 {
		return nil
	}
	if len(c.Memory.History) <= n {
		return c.Memory.History
	}
	return c.Memory.History[len(c.Memory.History)-n:]
}

// Patch is a partial update merged into a stored context. Nil fields are
// left untouched.
type Patch struct {
	ClientName     *string
	Intent         *string
	Sentiment      *string
	State          *State
	FlowState      *FlowState
	AppendExchange *Exchange
	// SetPendingCancellation replaces the candidate list; ClearPendingCancellation
	// empties it. Setting both is a caller bug; set wins.
	SetPendingCancellation   []uuid.UUID
	ClearPendingCancellation bool
	Extra                    map[string]string
}

func (p Patch) apply(c *Context, now time.Time) {
	if p.ClientName != nil && *p.ClientName != "" {
		c.ClientName = *p.ClientName
	}
	if p.Intent != nil {
		c.LastIntent = *p.Intent
	}
	if p.Sentiment != nil {
		c.LastSentiment = *p.Sentiment
	}
	if p.State != nil {
		c.State = *p.State
	}
	if p.FlowState != nil {
		c.FlowState = *p.FlowState
	}
	if p.AppendExchange != nil {
		ex := *p.AppendExchange
		if ex.At.IsZero() {
			ex.At = now
		}
		c.Memory.MessageCount++
		c.Memory.History = append(c.Memory.History, ex)
		if len(c.Memory.History) > HistoryLimit {
			c.Memory.History = c.Memory.History[len(c.Memory.History)-HistoryLimit:]
		}
	}
	if len(p.SetPendingCancellation) > 0 {
		c.Memory.PendingCancellation = p.SetPendingCancellation
	} else if p.ClearPendingCancellation {
		c.Memory.PendingCancellation = nil
	}
	if len(p.Extra) > 0 {
		if c.Memory.Extra == nil {
			c.Memory.Extra = make(map[string]string, len(p.Extra))
		}
		for k, v := range p.Extra {
			c.Memory.Extra[k] = v
		}
	}
	c.LastInteraction = now
	c.UpdatedAt = now
}
