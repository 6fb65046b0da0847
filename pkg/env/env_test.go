package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPrefersPrefixedVariable(t *testing.T) {
	t.Setenv("RENTAL_LOG_FORMAT", "console")
	t.Setenv("LOG_FORMAT", "json")

	assert.Equal(t, "console", Get("LOG_FORMAT", "fallback"))
	assert.Equal(t, "console", Get("rental_log_format", "fallback"))
}

func TestGetFallsBackToBareKey(t *testing.T) {
	t.Setenv("RENTAL_LOG_FORMAT", "   ")
	t.Setenv("LOG_FORMAT", "json")

	assert.Equal(t, "json", Get("LOG_FORMAT", "fallback"))
}

func TestLookupUnset(t *testing.T) {
	t.Setenv("RENTAL_INSTANCE_ID", "")
	t.Setenv("INSTANCE_ID", "")

	_, ok := Lookup("INSTANCE_ID")
	assert.False(t, ok)
	assert.Equal(t, "local", Get("INSTANCE_ID", "local"))

	_, ok = Lookup("")
	assert.False(t, ok)
}
