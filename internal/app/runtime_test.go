package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/larkspur-bakery/storefront/testing"
)

func TestParseTestMode(t *testing.T) {
	for raw, want := range map[string]bool{
		"1": true, "true": true, "TRUE": true,
		"": false, "0": false, "false": false, "yes": false,
	} {
		assert.Equal(t, want, parseTestMode(raw), "raw %q", raw)
	}
}

func TestInTestModeUnderHarness(t *testing.T) {
	assert.True(t, InTestMode())
}
