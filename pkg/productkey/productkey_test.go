package productkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple brand", input: "Bozita", expected: "bozita"},
		{name: "two word brand", input: "Arden Grange", expected: "arden_grange"},
		{name: "punctuation dropped", input: "Hill's Science Plan", expected: "hills_science_plan"},
		{name: "ampersand dropped without separator", input: "Lamb & Rice", expected: "lamb_rice"},
		{name: "whitespace runs collapse", input: "  Royal \t Canin  ", expected: "royal_canin"},
		{name: "digits kept", input: "Purina ONE 11+", expected: "purina_one_11"},
		{name: "unicode symbols stripped", input: "Dog Food®", expected: "dog_food"},
		{name: "empty", input: "", expected: ""},
		{name: "only punctuation", input: "&&&", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute("Bozita", "Robur Sensitive Single Protein Lamb & Rice")
	b := Compute("Bozita", "Robur Sensitive Single Protein Lamb & Rice")
	assert.Equal(t, a, b)
}

func TestCompute_Shape(t *testing.T) {
	key := Compute("Bozita", "Robur Sensitive Single Protein Lamb & Rice")

	require.True(t, strings.HasPrefix(key, "bozita_"))
	suffix := strings.TrimPrefix(key, "bozita_")
	assert.Len(t, suffix, HashLength)
	for _, r := range suffix {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestCompute_DistinguishesNames(t *testing.T) {
	a := Compute("Bozita", "Robur Sensitive Lamb & Rice")
	b := Compute("Bozita", "Robur Sensitive Chicken & Rice")
	assert.NotEqual(t, a, b)
}

func TestCompute_CaseAndSpacingInsensitive(t *testing.T) {
	a := Compute("Arden Grange", "Adult Chicken & Rice")
	b := Compute("arden grange", "  adult   chicken & rice ")
	assert.Equal(t, a, b)
}

func TestCompute_EmptyBrand(t *testing.T) {
	key := Compute("", "Something")
	assert.True(t, strings.HasPrefix(key, "unknown_"))
}
