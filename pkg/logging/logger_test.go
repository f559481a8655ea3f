package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		logger := New(level)
		require.NotNil(t, logger)
		require.NotNil(t, logger.Logger)
	}
}

func TestWithNilReceiver(t *testing.T) {
	var l *Logger
	child := l.With("component", "test")
	assert.NotNil(t, child)
	assert.NotNil(t, child.Logger)
}
