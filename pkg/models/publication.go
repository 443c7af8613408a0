package models

import "time"

// PublicationStatus is the visibility state of a canonical product
type PublicationStatus string

const (
	// PublicationStatusPending rows are staged for review and not exposed downstream
	PublicationStatusPending PublicationStatus = "PENDING"
	// PublicationStatusActive rows are externally visible
	PublicationStatusActive PublicationStatus = "ACTIVE"
	// PublicationStatusRejected rows were manually withheld
	PublicationStatusRejected PublicationStatus = "REJECTED"
)

// PublicationRecord tracks the publication state machine for one canonical
// product. Created PENDING when the product is first admitted; promoted to
// ACTIVE by the publication gate once the completeness criteria hold.
type PublicationRecord struct {
	ProductKey     string            `json:"product_key" db:"product_key"`
	Status         PublicationStatus `json:"status" db:"status"`
	HasImage       bool              `json:"has_image" db:"has_image"`
	HasIngredients bool              `json:"has_ingredients" db:"has_ingredients"`
	HasMacros      bool              `json:"has_macros" db:"has_macros"`
	PromotedAt     *time.Time        `json:"promoted_at,omitempty" db:"promoted_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// PublishedProduct is the production-facing projection: a canonical product
// joined with its allowlist status. Only ACTIVE publication rows appear here.
type PublishedProduct struct {
	CanonicalProduct
	AllowlistStatus AllowlistStatus `json:"allowlist_status" db:"allowlist_status"`
	PublishedAt     *time.Time      `json:"published_at,omitempty" db:"published_at"`
}

// PromotionSummary reports one level-triggered promotion pass
type PromotionSummary struct {
	Evaluated int      `json:"evaluated"`
	Promoted  int      `json:"promoted"`
	Remaining int      `json:"remaining"`
	Keys      []string `json:"keys,omitempty"`
}
