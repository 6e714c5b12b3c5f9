package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		ok       bool
	}{
		{"debug", Debug, true},
		{"INFO", Info, true},
		{" Warn ", Warn, true},
		{"error", Error, true},
		{"verbose", Error, false},
		{"", Error, false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, ok := ParseLevel(test.input)
			assert.Equal(t, test.expected, level)
			assert.Equal(t, test.ok, ok)
		})
	}
}

func TestLevelEnables(t *testing.T) {
	assert.True(t, Debug.Enables(Error))
	assert.True(t, Info.Enables(Info))
	assert.False(t, Warn.Enables(Info))
	assert.False(t, Error.Enables(Debug))
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, Warn)

	logger.Info("engine_client: suppressed: n=%d", 1)
	assert.Empty(t, buf.String())

	logger.Error("engine_client: emitted: n=%d", 2)
	assert.Contains(t, buf.String(), "engine_client: emitted: n=2")
	assert.Equal(t, Warn, logger.Level())
}
