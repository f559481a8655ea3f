// Package templates renders the static catalog of outbound WhatsApp messages.
package templates

import (
	"fmt"
	"strings"
)

// Template is a static catalog entry with {name} placeholder markers.
type Template struct {
	ID           string
	Content      string
	Placeholders []string
}

// Render substitutes every {name} occurrence present in vars. Placeholders
// with no matching key are left verbatim so a partially-filled message is
// still visible to operators instead of failing the send.
func Render(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}

// Catalog holds the message templates loaded once at startup.
type Catalog struct {
	byID map[string]Template
}

// NewCatalog builds the default template catalog.
func NewCatalog() *Catalog {
	c := &Catalog{byID: make(map[string]Template)}
	for _, t := range defaultTemplates {
		c.byID[t.ID] = t
	}
	return c
}

// Get returns the template with the given id.
func (c *Catalog) Get(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// RenderID renders the catalog template with the given variables.
func (c *Catalog) RenderID(id string, vars map[string]string) (string, error) {
	t, ok := c.byID[id]
	if !ok {
		return "", fmt.Errorf("templates: unknown template %q", id)
	}
	return Render(t.Content, vars), nil
}

// Template ids referenced by the orchestrator and delivery engine.
const (
	TemplateWelcome         = "welcome"
	TemplateSchedulingMenu  = "scheduling_menu"
	TemplateReminder24h     = "reminder_24h"
	TemplateConfirmation    = "appointment_confirmation"
	TemplateFollowup24h     = "followup_24h"
	TemplateCancelPrompt    = "cancel_prompt"
	TemplateCancelConfirmed = "cancel_confirmed"
	TemplateCancelRetry     = "cancel_retry"
	TemplateCancelNone      = "cancel_none"
	TemplateApology         = "apology"
	TemplateDefaultReply    = "default_reply"
	TemplateHumanHandoff    = "human_handoff"
	TemplateNoSlots         = "no_slots"
	TemplateNoAppointments  = "no_appointments"
)

var defaultTemplates = []Template{
	{
		ID:           TemplateWelcome,
		Content:      "Olá{client_name}! 😊 Bem-vindo(a) ao {business_name}. Sou a assistente virtual e posso ajudar com agendamentos, horários e informações sobre nossos serviços. Como posso ajudar?",
		Placeholders: []string{"client_name", "business_name"},
	},
	{
		ID:           TemplateSchedulingMenu,
		Content:      "Claro! Posso ajudar com seu agendamento. Você pode me dizer:\n1️⃣ \"horários\" para ver os horários disponíveis de hoje\n2️⃣ \"meus agendamentos\" para ver seus agendamentos\n3️⃣ \"cancelar\" para cancelar um agendamento\n4️⃣ \"confirmar\" para confirmar seu próximo horário",
		Placeholders: nil,
	},
	{
		ID:           TemplateReminder24h,
		Content:      "Oi {client_name}! Lembrete do seu horário amanhã: {service} com {professional} às {time} do dia {date}. Responda \"confirmar\" para confirmar ou \"cancelar\" caso precise remarcar. 💇",
		Placeholders: []string{"client_name", "service", "professional", "time", "date"},
	},
	{
		ID:           TemplateConfirmation,
		Content:      "Agendamento confirmado! ✅ {service} com {professional} no dia {date} às {time}. Até lá!",
		Placeholders: []string{"service", "professional", "date", "time"},
	},
	{
		ID:           TemplateFollowup24h,
		Content:      "Oi {client_name}! Esperamos que tenha gostado do seu {service}. 💜 Sua opinião é muito importante! Responda com um comentário ou agende seu próximo horário quando quiser!",
		Placeholders: []string{"client_name", "service"},
	},
	{
		ID:           TemplateCancelPrompt,
		Content:      "Encontrei estes agendamentos:\n{options}\nResponda com o número do agendamento que deseja cancelar.",
		Placeholders: []string{"options"},
	},
	{
		ID:           TemplateCancelConfirmed,
		Content:      "Pronto! O agendamento de {service} do dia {date} às {time} foi cancelado. Se quiser remarcar é só me chamar. 😉",
		Placeholders: []string{"service", "date", "time"},
	},
	{
		ID:           TemplateCancelRetry,
		Content:      "Não entendi sua escolha. Responda apenas com o número do agendamento que deseja cancelar (por exemplo: 1).",
		Placeholders: nil,
	},
	{
		ID:           TemplateCancelNone,
		Content:      "Você não tem agendamentos ativos para cancelar. Quer marcar um horário?",
		Placeholders: nil,
	},
	{
		ID:           TemplateApology,
		Content:      "Desculpe, tive um problema para processar sua mensagem. 🙏 Pode tentar de novo em instantes?",
		Placeholders: nil,
	},
	{
		ID:           TemplateDefaultReply,
		Content:      "Posso ajudar com agendamentos, horários, cancelamentos e informações sobre nossos serviços. É só me dizer o que precisa! 😊",
		Placeholders: nil,
	},
	{
		ID:           TemplateHumanHandoff,
		Content:      "Entendi! Vou chamar uma pessoa da nossa equipe para continuar seu atendimento. 🙋 Aguarde só um instante, por favor.",
		Placeholders: nil,
	},
	{
		ID:           TemplateNoSlots,
		Content:      "Não encontrei horários livres para {date}. Quer tentar outro dia?",
		Placeholders: []string{"date"},
	},
	{
		ID:           TemplateNoAppointments,
		Content:      "Você ainda não tem agendamentos marcados. Responda \"horários\" para ver os horários disponíveis!",
		Placeholders: nil,
	},
}
