package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brisalabs/salon-ai-platform/internal/llm"
	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

const llmFallbackConfidence = 0.5

// HistoryEntry is one prior exchange supplied to the LLM stage.
type HistoryEntry struct {
	Message  string
	Response string
}

// Digest summarizes the conversation context for the LLM stage.
type Digest struct {
	ClientName        string
	PriorIntent       string
	ConversationState string
	History           []HistoryEntry
}

const classifierPrompt = `Você é um classificador de intenções para o assistente virtual de um salão de beleza.
Classifique a mensagem do cliente em UMA das intenções abaixo e responda APENAS com JSON.

Intenções válidas: greeting, scheduling, reschedule, cancel, services_info, prices_info, availability, confirmation, complaint, compliment, farewell, help, other.

Contexto da conversa:
%s

Sugestão da etapa por palavras-chave: %s

Mensagem do cliente: %s

Responda com:
{"intent": "<intenção>", "confidence": <0.0-1.0>, "sentiment": "positive|neutral|negative", "requires_human": <bool>, "entities": {}, "suggested_actions": [], "context_updates": {}}`

// Classifier is the hybrid two-stage intent resolver.
type Classifier struct {
	keyword    KeywordClassifier
	client     llm.Client
	threshold  float64
	logger     *logging.Logger
	onFallback func()
}

// NewClassifier creates a hybrid classifier. client may be nil, in which case
// only the keyword stage runs.
func NewClassifier(client llm.Client, threshold float64, logger *logging.Logger) *Classifier {
	if threshold <= 0 {
		threshold = 0.6
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{client: client, threshold: threshold, logger: logger}
}

// WithFallbackHook registers a callback invoked whenever the LLM stage fails
// or returns unusable output and the keyword suggestion is used instead.
func (c *Classifier) WithFallbackHook(hook func()) *Classifier {
	c.onFallback = hook
	return c
}

func (c *Classifier) fallback() {
	if c.onFallback != nil {
		c.onFallback()
	}
}

// Classify resolves the message intent. The LLM stage is invoked only when
// keyword-stage confidence is at or below the threshold; its untrusted output
// is validated and coerced before use.
func (c *Classifier) Classify(ctx context.Context, message string, digest Digest) Result {
	suggested, confidence := c.keyword.Classify(message)
	keywordResult := Result{
		Intent:     suggested,
		Confidence: confidence,
		Sentiment:  SentimentNeutral,
	}

	if confidence > c.threshold || c.client == nil {
		return keywordResult
	}

	prompt := fmt.Sprintf(classifierPrompt, digestText(digest), suggested, message)
	resp, err := c.client.Complete(ctx, llm.Request{
		Messages:  []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens: 200,
	})
	if err != nil {
		c.logger.Warn("intent llm stage failed, using keyword suggestion",
			"error", err, "suggested", string(suggested))
		c.fallback()
		keywordResult.Confidence = llmFallbackConfidence
		return keywordResult
	}

	parsed, ok := parseLLMResult(resp.Text)
	if !ok {
		c.fallback()
		keywordResult.Confidence = llmFallbackConfidence
		return keywordResult
	}
	return parsed
}

func digestText(d Digest) string {
	var b strings.Builder
	if d.ClientName != "" {
		fmt.Fprintf(&b, "Nome do cliente: %s\n", d.ClientName)
	}
	if d.PriorIntent != "" {
		fmt.Fprintf(&b, "Intenção anterior: %s\n", d.PriorIntent)
	}
	if d.ConversationState != "" {
		fmt.Fprintf(&b, "Estado da conversa: %s\n", d.ConversationState)
	}
	history := d.History
	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	for _, h := range history {
		fmt.Fprintf(&b, "Cliente: %s\nAssistente: %s\n", h.Message, h.Response)
	}
	if b.Len() == 0 {
		return "(primeira mensagem)"
	}
	return b.String()
}

// parseLLMResult extracts and validates the JSON object from free-form LLM
// output. Returns ok=false when no usable object is found.
func parseLLMResult(text string) (Result, bool) {
	content := strings.TrimSpace(text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return Result{}, false
	}
	content = content[startIdx : endIdx+1]

	var raw struct {
		Intent           string            `json:"intent"`
		Confidence       float64           `json:"confidence"`
		Sentiment        string            `json:"sentiment"`
		RequiresHuman    bool              `json:"requires_human"`
		Entities         map[string]string `json:"entities"`
		SuggestedActions []string          `json:"suggested_actions"`
		ContextUpdates   map[string]string `json:"context_updates"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Result{}, false
	}

	result := Result{
		Intent:           Intent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Confidence:       raw.Confidence,
		Sentiment:        Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment))),
		RequiresHuman:    raw.RequiresHuman,
		Entities:         raw.Entities,
		SuggestedActions: raw.SuggestedActions,
		ContextUpdates:   raw.ContextUpdates,
	}
	if !Valid(result.Intent) {
		result.Intent = Other
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if !ValidSentiment(result.Sentiment) {
		result.Sentiment = SentimentNeutral
	}
	return result, true
}
