package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Sender = NewNopSender(nil)

func TestNopSenderSendWithNilLogger(t *testing.T) {
	s := NewNopSender(nil)
	assert.NoError(t, s.Send(context.Background(), "5511999990000", "oi"))
}
