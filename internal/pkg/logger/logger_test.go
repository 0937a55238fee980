package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Run("debug level", func(t *testing.T) {
		l := Init(Config{Level: "debug", Format: "console"})
		require.NotNil(t, l)
		assert.True(t, IsDebug())
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		Init(Config{Level: "loud", Format: "json"})
		assert.False(t, IsDebug())
	})
}

func TestWithExecutionID(t *testing.T) {
	Init(Config{Level: "info", Format: "json"})
	assert.NotNil(t, WithExecutionID("exec_1700000000000_abc1234"))
	assert.NotNil(t, WithRequestID("req-1"))
}
