package models

// MatchTier identifies which resolution tier produced a match
type MatchTier string

const (
	// MatchTierExactKey is a product_key equality hit
	MatchTierExactKey MatchTier = "exact_key"
	// MatchTierBrandNameSlug is a (brand_slug, name_slug) tuple hit; it exists to
	// tolerate legacy key algorithms and triggers a canonical key rewrite on merge
	MatchTierBrandNameSlug MatchTier = "brand_name_slug"
	// MatchTierFuzzy is a brand-restricted similarity hit above the auto-merge threshold
	MatchTierFuzzy MatchTier = "fuzzy"
	// MatchTierNone means no canonical match was found
	MatchTierNone MatchTier = "none"
)

// MatchResult is the matcher's ephemeral return value, consumed immediately by
// the merge engine. It is never persisted.
type MatchResult struct {
	Tier       MatchTier         `json:"tier"`
	Confidence float64           `json:"confidence"`
	Candidate  *CanonicalProduct `json:"candidate,omitempty"`
	// NeedsReview is set when the best fuzzy score fell in the manual-review band;
	// the result is then treated as no match for automated purposes.
	NeedsReview bool    `json:"needs_review,omitempty"`
	ReviewScore float64 `json:"review_score,omitempty"`
}

// Matched reports whether the result resolves to a canonical candidate.
func (r *MatchResult) Matched() bool {
	return r.Tier != MatchTierNone && r.Candidate != nil
}
