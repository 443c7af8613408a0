package models

import "time"

// BrandSplitPattern describes a known brand truncation: a source that
// mis-tokenizes a multi-word brand as {first word} brand + {rest} name.
// Example: brand "Arden", name "Grange Adult Chicken & Rice" where the true
// brand is "Arden Grange". Patterns come from verified external brand
// identities; confidence below the repair threshold is never auto-applied.
type BrandSplitPattern struct {
	TruncatedSlug  string    `json:"truncated_slug" db:"truncated_slug"`
	FullBrand      string    `json:"full_brand" db:"full_brand"`
	LeftoverPrefix string    `json:"leftover_prefix" db:"leftover_prefix"`
	Confidence     float64   `json:"confidence" db:"confidence"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertBrandSplitRequest is the governance request to record a split pattern
type UpsertBrandSplitRequest struct {
	TruncatedSlug  string  `json:"truncated_slug" validate:"required"`
	FullBrand      string  `json:"full_brand" validate:"required"`
	LeftoverPrefix string  `json:"leftover_prefix" validate:"required"`
	Confidence     float64 `json:"confidence" validate:"gte=0,lte=1"`
}
