package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateFingerprint(t *testing.T) {
	assert.Equal(t, GenerateFingerprint("a", "b"), GenerateFingerprint("a", "b"))
	assert.NotEqual(t, GenerateFingerprint("ab", "c"), GenerateFingerprint("a", "bc"))
	assert.NotEqual(t, GenerateFingerprint("a"), GenerateFingerprint("b"))
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"expr", true},
		{"_hidden", true},
		{"rule2", true},
		{"snake_case_rule", true},
		{"", false},
		{"2rule", false},
		{"has-dash", false},
		{"has space", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidIdentifier(tt.name))
		})
	}
}
