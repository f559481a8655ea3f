// Package intent classifies inbound client messages into a closed label set
// using a deterministic keyword stage with an LLM fallback for ambiguous text.
package intent

// Intent is a closed-set label describing what a message tries to accomplish.
type Intent string

const (
	Greeting     Intent = "greeting"
	Scheduling   Intent = "scheduling"
	Reschedule   Intent = "reschedule"
	Cancel       Intent = "cancel"
	ServicesInfo Intent = "services_info"
	PricesInfo   Intent = "prices_info"
	Availability Intent = "availability"
	Confirmation Intent = "confirmation"
	Complaint    Intent = "complaint"
	Compliment   Intent = "compliment"
	Farewell     Intent = "farewell"
	Help         Intent = "help"
	Other        Intent = "other"
)

// Sentiment is the coarse emotional tone of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Result is the transient classification output for one message.
type Result struct {
	Intent           Intent            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	Sentiment        Sentiment         `json:"sentiment"`
	RequiresHuman    bool              `json:"requires_human"`
	Entities         map[string]string `json:"entities,omitempty"`
	SuggestedActions []string          `json:"suggested_actions,omitempty"`
	ContextUpdates   map[string]string `json:"context_updates,omitempty"`
}

// declarationOrder fixes tie-breaking: the first-declared intent wins ties in
// the keyword stage.
var declarationOrder = []Intent{
	Greeting, Scheduling, Reschedule, Cancel, ServicesInfo, PricesInfo,
	Availability, Confirmation, Complaint, Compliment, Farewell, Help,
}

// keywords maps each intent to its curated phrase list (Brazilian Portuguese).
var keywords = map[Intent][]string{
	Greeting: {
		"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "e aí", "eai", "opa",
	},
	Scheduling: {
		"agendar", "marcar", "agendamento", "horário para", "quero marcar",
		"meus agendamentos", "agenda", "reservar",
	},
	Reschedule: {
		"remarcar", "mudar o horário", "mudar horário", "trocar o horário",
		"adiar", "outro dia", "outro horário",
	},
	Cancel: {
		"cancelar", "desmarcar", "cancela", "não vou poder", "nao vou poder",
		"não posso ir", "nao posso ir",
	},
	ServicesInfo: {
		"serviços", "servicos", "que vocês fazem", "que voces fazem", "corte",
		"escova", "manicure", "pedicure", "sobrancelha", "hidratação", "hidratacao",
	},
	PricesInfo: {
		"preço", "preco", "valor", "quanto custa", "quanto fica", "tabela de preços",
		"valores",
	},
	Availability: {
		"horário", "horarios", "horários", "disponível", "disponivel",
		"tem vaga", "tem horário", "tem horario", "que horas",
	},
	Confirmation: {
		"confirmar", "confirmo", "confirmado", "pode confirmar", "sim, confirmo",
	},
	Complaint: {
		"reclamação", "reclamacao", "péssimo", "pessimo", "horrível", "horrivel",
		"demorou", "atraso", "insatisfeita", "insatisfeito", "ruim",
	},
	Compliment: {
		"adorei", "amei", "ótimo", "otimo", "excelente", "maravilhoso",
		"parabéns", "parabens", "obrigada", "obrigado",
	},
	Farewell: {
		"tchau", "até logo", "ate logo", "até mais", "ate mais", "falou", "adeus",
	},
	Help: {
		"ajuda", "socorro", "como funciona", "não entendi", "nao entendi",
		"o que você faz", "o que voce faz",
	},
}

// Valid reports whether the label belongs to the closed intent set.
func Valid(i Intent) bool {
	if i == Other {
		return true
	}
	for _, known := range declarationOrder {
		if i == known {
			return true
		}
	}
	return false
}

// ValidSentiment reports whether s is one of the three accepted values.
func ValidSentiment(s Sentiment) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}
