package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brisalabs/salon-ai-platform/internal/templates"
)

func TestScheduleFreezesVariablesAtScheduleTime(t *testing.T) {
	creator := &fakeCreator{}
	s := NewScheduler(creator, templates.NewCatalog(), nil)

	vars := map[string]string{
		"client_name":  "Ana",
		"service":      "Corte feminino",
		"professional": "Marina",
		"date":         "15/09/2026",
		"time":         "14:00",
	}
	fireAt := time.Now().Add(24 * time.Hour)
	msg, err := s.Schedule(context.Background(), ScheduleInput{
		BusinessID: "salon-1",
		Phone:      "5511999990001",
		TemplateID: templates.TemplateReminder24h,
		FireAt:     fireAt,
		Variables:  vars,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, msg.Status)
	assert.Contains(t, msg.Content, "Ana")
	assert.Contains(t, msg.Content, "14:00")
	assert.True(t, msg.FireAt.Equal(fireAt))

	// Mutating the input map after scheduling must not change the content.
	vars["client_name"] = "Beatriz"
	require.Len(t, creator.created, 1)
	assert.Contains(t, creator.created[0].Content, "Ana")
}

func TestScheduleUnknownTemplate(t *testing.T) {
	s := NewScheduler(&fakeCreator{}, templates.NewCatalog(), nil)

	_, err := s.Schedule(context.Background(), ScheduleInput{
		BusinessID: "salon-1",
		Phone:      "5511999990001",
		TemplateID: "does_not_exist",
		FireAt:     time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does_not_exist")
}
