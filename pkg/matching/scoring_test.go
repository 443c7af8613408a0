package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_JaroWinkler(t *testing.T) {
	s := NewScorer()

	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, s.JaroWinkler("bozita", "bozita"))
	})

	t.Run("empty strings", func(t *testing.T) {
		assert.Equal(t, 0.0, s.JaroWinkler("bozita", ""))
	})

	t.Run("close strings score high", func(t *testing.T) {
		score := s.JaroWinkler("grain_free_chicken", "grain_free_chickn")
		assert.Greater(t, score, 0.9)
	})

	t.Run("unrelated strings score low", func(t *testing.T) {
		score := s.JaroWinkler("salmon_kitten", "beef_adult_large_breed")
		assert.Less(t, score, 0.7)
	})
}

func TestScorer_Levenshtein(t *testing.T) {
	s := NewScorer()

	t.Run("distance", func(t *testing.T) {
		assert.Equal(t, 0, s.LevenshteinDistance("chicken", "chicken"))
		assert.Equal(t, 2, s.LevenshteinDistance("chicken", "chickne")) // plain Levenshtein, a swap is two edits
		assert.Equal(t, 7, s.LevenshteinDistance("", "chicken"))
	})

	t.Run("ratio", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Levenshtein("", ""))
		assert.InDelta(t, 1.0-1.0/7.0, s.Levenshtein("chicken", "chickem"), 1e-9)
	})
}

func TestScorer_TokenSetRatio(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a    string
		b    string
		want func(t *testing.T, score float64)
	}{
		{
			name: "identical token sets regardless of order",
			a:    "adult dry chicken",
			b:    "chicken adult dry",
			want: func(t *testing.T, score float64) { assert.Equal(t, 1.0, score) },
		},
		{
			name: "duplicate tokens ignored",
			a:    "chicken chicken adult",
			b:    "adult chicken",
			want: func(t *testing.T, score float64) { assert.Equal(t, 1.0, score) },
		},
		{
			name: "one extra token still scores high",
			a:    "grain free chicken adult",
			b:    "grain free chicken",
			want: func(t *testing.T, score float64) { assert.Greater(t, score, 0.7) },
		},
		{
			name: "disjoint sets score low",
			a:    "salmon kitten",
			b:    "beef senior",
			want: func(t *testing.T, score float64) { assert.Less(t, score, 0.5) },
		},
		{
			name: "both empty",
			a:    "",
			b:    "",
			want: func(t *testing.T, score float64) { assert.Equal(t, 1.0, score) },
		},
		{
			name: "one empty",
			a:    "chicken",
			b:    "",
			want: func(t *testing.T, score float64) { assert.Equal(t, 0.0, score) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, s.TokenSetRatio(tt.a, tt.b))
		})
	}
}
