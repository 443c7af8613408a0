package models

import "time"

// CanonicalProduct is the deduplicated catalog entity. product_key is the
// primary identity; (brand_slug, name_slug) is a secondary near-unique key used
// only when key generation has drifted between producer and consumer.
// Rows are created on first admission and mutated only by the merge engine
// under the fill-only-if-null policy. This core never deletes them.
type CanonicalProduct struct {
	ProductKey        string     `json:"product_key" db:"product_key"`
	Brand             string     `json:"brand" db:"brand"`
	BrandSlug         string     `json:"brand_slug" db:"brand_slug"`
	ProductName       string     `json:"product_name" db:"product_name"`
	NameSlug          string     `json:"name_slug" db:"name_slug"`
	IngredientsRaw    *string    `json:"ingredients_raw,omitempty" db:"ingredients_raw"`
	IngredientsTokens StringList `json:"ingredients_tokens,omitempty" db:"ingredients_tokens"`
	ProteinPercent    *float64   `json:"protein_percent,omitempty" db:"protein_percent"`
	FatPercent        *float64   `json:"fat_percent,omitempty" db:"fat_percent"`
	FiberPercent      *float64   `json:"fiber_percent,omitempty" db:"fiber_percent"`
	AshPercent        *float64   `json:"ash_percent,omitempty" db:"ash_percent"`
	MoisturePercent   *float64   `json:"moisture_percent,omitempty" db:"moisture_percent"`
	KcalPer100g       *float64   `json:"kcal_per_100g,omitempty" db:"kcal_per_100g"`
	ImageURL          *string    `json:"image_url,omitempty" db:"image_url"`
	Sources           StringList `json:"sources" db:"sources"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// HasAnyMacro reports whether at least one macro-nutrient is known.
func (p *CanonicalProduct) HasAnyMacro() bool {
	return p.ProteinPercent != nil || p.FatPercent != nil || p.KcalPer100g != nil
}

// CanonicalProductListResponse is the response for listing canonical products
type CanonicalProductListResponse struct {
	Items      []CanonicalProduct `json:"items"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}
