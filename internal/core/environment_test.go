package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvironment(t *testing.T) {
	tests := map[string]Environment{
		"production":   Production,
		" Production ": Production,
		"staging":      Staging,
		"testing":      Testing,
		"development":  Development,
		"":             Development,
		"qa":           Development,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseEnvironment(in), in)
	}
}

func TestEnvironmentDecode(t *testing.T) {
	var e Environment
	require.NoError(t, e.Decode("PRODUCTION"))
	assert.True(t, e.IsProduction())
	assert.Equal(t, "production", e.String())
}
