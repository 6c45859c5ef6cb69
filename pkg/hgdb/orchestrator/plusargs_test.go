package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlusArgsDefaults(t *testing.T) {
	args := ParsePlusArgs(nil)
	assert.Equal(t, DefaultPort, args.Port)
	assert.False(t, args.LogEnabled)
	assert.False(t, args.NoDB)
}

func TestParsePlusArgsOverrides(t *testing.T) {
	args := ParsePlusArgs([]string{"+DEBUG_PORT=9001", "+DEBUG_LOG", "+DEBUG_NO_DB", "+SOMETHING_ELSE"})
	assert.Equal(t, uint16(9001), args.Port)
	assert.True(t, args.LogEnabled)
	assert.True(t, args.NoDB)
}

func TestParsePlusArgsIgnoresMalformedPort(t *testing.T) {
	args := ParsePlusArgs([]string{"+DEBUG_PORT=not-a-number"})
	assert.Equal(t, DefaultPort, args.Port)
}
