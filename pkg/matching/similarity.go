package matching

// Similarity scores two normalized product name slugs. Implementations return
// a value between 0.0 and 1.0 where 1.0 means the names are interchangeable.
type Similarity interface {
	Score(a, b string) float64
	Name() string
}

// TokenSetSimilarity is the default strategy. It is insensitive to token
// order, which keeps "chicken adult dry" and "adult dry chicken" together.
type TokenSetSimilarity struct {
	scorer *Scorer
}

func NewTokenSetSimilarity() *TokenSetSimilarity {
	return &TokenSetSimilarity{scorer: NewScorer()}
}

func (s *TokenSetSimilarity) Score(a, b string) float64 {
	return s.scorer.TokenSetRatio(a, b)
}

func (s *TokenSetSimilarity) Name() string {
	return "token_set"
}

// JaroWinklerSimilarity favors strings sharing a common prefix, useful when
// sources truncate product names rather than reorder them.
type JaroWinklerSimilarity struct {
	scorer *Scorer
}

func NewJaroWinklerSimilarity() *JaroWinklerSimilarity {
	return &JaroWinklerSimilarity{scorer: NewScorer()}
}

func (s *JaroWinklerSimilarity) Score(a, b string) float64 {
	return s.scorer.JaroWinkler(a, b)
}

func (s *JaroWinklerSimilarity) Name() string {
	return "jaro_winkler"
}

// LevenshteinSimilarity is a plain edit-distance ratio.
type LevenshteinSimilarity struct {
	scorer *Scorer
}

func NewLevenshteinSimilarity() *LevenshteinSimilarity {
	return &LevenshteinSimilarity{scorer: NewScorer()}
}

func (s *LevenshteinSimilarity) Score(a, b string) float64 {
	return s.scorer.Levenshtein(a, b)
}

func (s *LevenshteinSimilarity) Name() string {
	return "levenshtein"
}
