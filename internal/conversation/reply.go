package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/brisalabs/salon-ai-platform/internal/contexts"
	"github.com/brisalabs/salon-ai-platform/internal/intent"
	"github.com/brisalabs/salon-ai-platform/internal/llm"
	"github.com/brisalabs/salon-ai-platform/internal/messaging"
	"github.com/brisalabs/salon-ai-platform/internal/templates"
)

const assistantPersona = `Você é a assistente virtual de %s, um salão de beleza brasileiro.
Responda sempre em português, de forma calorosa, curta e objetiva (no máximo três frases).
Você pode ajudar com agendamentos, horários, cancelamentos e informações sobre serviços.
Nunca invente preços, promoções ou horários; se não souber, oriente o cliente a perguntar à equipe.`

// intentGuidance adds a short steering line per intent to the system prompt.
var intentGuidance = map[intent.Intent]string{
	intent.Greeting:     "O cliente está cumprimentando. Cumprimente de volta e ofereça ajuda.",
	intent.ServicesInfo: "O cliente quer saber sobre serviços. Liste as categorias gerais (corte, escova, manicure, sobrancelha) sem inventar detalhes.",
	intent.PricesInfo:   "O cliente pergunta preços. Explique que os valores variam por serviço e que a equipe confirma o valor exato.",
	intent.Complaint:    "O cliente está insatisfeito. Peça desculpas com empatia e ofereça encaminhar para a equipe.",
	intent.Compliment:   "O cliente está elogiando. Agradeça com entusiasmo.",
	intent.Farewell:     "O cliente está se despedindo. Despeça-se cordialmente e convide-o a voltar.",
	intent.Help:         "O cliente pediu ajuda. Explique o que você consegue fazer.",
	intent.Reschedule:   "O cliente quer remarcar. Oriente-o a cancelar o horário atual e escolher um novo.",
}

// generalReply asks the LLM for a free-form answer grounded on the recent
// history. Without an LLM, or when it fails, a static template answers.
func (o *Orchestrator) generalReply(ctx context.Context, msg messaging.InboundMessage, cctx *contexts.Context, res intent.Result) turnReply {
	if o.llm == nil {
		return turnReply{text: o.staticReply(msg, cctx, res.Intent)}
	}

	system := []string{fmt.Sprintf(assistantPersona, o.businessName)}
	if guidance, ok := intentGuidance[res.Intent]; ok {
		system = append(system, guidance)
	}
	if cctx.ClientName != "" {
		system = append(system, "O nome do cliente é "+cctx.ClientName+".")
	}

	var messages []llm.ChatMessage
	for _, ex := range cctx.RecentHistory(contexts.HistoryLimit) {
		messages = append(messages,
			llm.ChatMessage{Role: llm.ChatRoleUser, Content: ex.Message},
			llm.ChatMessage{Role: llm.ChatRoleAssistant, Content: ex.Response},
		)
	}
	messages = append(messages, llm.ChatMessage{Role: llm.ChatRoleUser, Content: msg.Text})

	resp, err := o.llm.Complete(ctx, llm.Request{
		System:      system,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		o.logger.Error("llm reply failed", "error", err, "intent", string(res.Intent))
		return turnReply{text: o.mustRender(templates.TemplateApology, nil)}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return turnReply{text: o.staticReply(msg, cctx, res.Intent)}
	}
	return turnReply{text: strings.TrimSpace(resp.Text)}
}

// staticReply is the no-LLM answer path.
func (o *Orchestrator) staticReply(msg messaging.InboundMessage, cctx *contexts.Context, in intent.Intent) string {
	switch in {
	case intent.Greeting:
		reply := o.welcome(msg, cctx)
		return reply.text
	case intent.Help:
		return o.mustRender(templates.TemplateSchedulingMenu, nil)
	default:
		return o.mustRender(templates.TemplateDefaultReply, nil)
	}
}
