package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		normalizer string
		input      string
		expected   string
	}{
		{name: "lowercase", normalizer: "lowercase", input: "Bozita Robur", expected: "bozita robur"},
		{name: "trim", normalizer: "trim", input: "  Bozita  ", expected: "Bozita"},
		{name: "collapse whitespace", normalizer: "collapse_whitespace", input: "Adult\t Chicken  Rice", expected: "Adult Chicken Rice"},
		{name: "strip symbols", normalizer: "strip_symbols", input: "Lamb & Rice!", expected: "Lamb  Rice"},
		{name: "alphanumeric", normalizer: "alphanumeric", input: "Purina ONE 11+", expected: "PurinaONE11"},
		{name: "slug", normalizer: "slug", input: "Arden Grange", expected: "arden_grange"},
		{name: "product name", normalizer: "product_name", input: "Adult Chicken & Rice®", expected: "adult chicken rice"},
		{name: "unknown normalizer passes through", normalizer: "nope", input: "AbC", expected: "AbC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Apply(tt.input, tt.normalizer))
		})
	}
}

func TestApplyChain(t *testing.T) {
	result := ApplyChain("  Arden   Grange ", "trim", "collapse_whitespace", "slug")
	assert.Equal(t, "arden_grange", result)
}

func TestGet(t *testing.T) {
	fn, ok := Get("lowercase")
	assert.True(t, ok)
	assert.Equal(t, "abc", fn("AbC"))

	_, ok = Get("missing")
	assert.False(t, ok)
}
