package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		message        string
		wantIntent     Intent
		wantConfidence float64
	}{
		{"Oi", Greeting, 0.3},
		{"bom dia", Greeting, 0.3},
		// "cancelar" hits both "cancelar" and "cancela".
		{"quero cancelar meu horário", Cancel, 0.6},
		{"quanto custa?", PricesInfo, 0.3},
		{"tem horário disponível amanhã?", Availability, 0.8},
		{"confirmar", Confirmation, 0.3},
		{"tchau, até logo", Farewell, 0.6},
		{"xyzzy", Other, 0.1},
		{"", Other, 0.1},
	}

	var kc KeywordClassifier
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			gotIntent, gotConfidence := kc.Classify(tt.message)
			assert.Equal(t, tt.wantIntent, gotIntent)
			assert.InDelta(t, tt.wantConfidence, gotConfidence, 1e-9)
		})
	}
}

func TestKeywordClassifyIsDeterministic(t *testing.T) {
	var kc KeywordClassifier
	msg := "quero marcar um horário de manicure"
	firstIntent, firstConfidence := kc.Classify(msg)
	for i := 0; i < 50; i++ {
		intent, confidence := kc.Classify(msg)
		assert.Equal(t, firstIntent, intent)
		assert.Equal(t, firstConfidence, confidence)
	}
}

func TestKeywordClassifyCaseFolds(t *testing.T) {
	var kc KeywordClassifier
	upper, _ := kc.Classify("QUERO CANCELAR")
	lower, _ := kc.Classify("quero cancelar")
	assert.Equal(t, lower, upper)
}

func TestKeywordClassifyConfidenceCap(t *testing.T) {
	var kc KeywordClassifier
	// Many availability keywords in one message still cap at 0.8.
	_, confidence := kc.Classify("tem vaga? tem horário disponível? que horas tem horario?")
	assert.LessOrEqual(t, confidence, 0.8)
}

func TestKeywordTieBreaksByDeclarationOrder(t *testing.T) {
	var kc KeywordClassifier
	// "bom dia" (greeting) and "desmarcar" (cancel) one hit each; greeting is
	// declared first.
	intent, _ := kc.Classify("bom dia, desmarcar")
	assert.Equal(t, Greeting, intent)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Greeting))
	assert.True(t, Valid(Other))
	assert.False(t, Valid(Intent("booking")))
}
