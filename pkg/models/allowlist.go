package models

import "time"

// AllowlistStatus is the governance state of a brand
type AllowlistStatus string

const (
	// AllowlistStatusActive brands are fully admitted
	AllowlistStatusActive AllowlistStatus = "ACTIVE"
	// AllowlistStatusPending brands are admitted while awaiting governance review
	AllowlistStatusPending AllowlistStatus = "PENDING"
	// AllowlistStatusRejected brands may never create canonical products
	AllowlistStatusRejected AllowlistStatus = "REJECTED"
)

// Valid reports whether the status is one of the known governance states.
func (s AllowlistStatus) Valid() bool {
	switch s {
	case AllowlistStatusActive, AllowlistStatusPending, AllowlistStatusRejected:
		return true
	}
	return false
}

// BrandAllowlistEntry governs whether an unmatched staging record may create a
// new canonical product. Mutated by the governance surface only; the merge
// engine reads it through the admission policy.
type BrandAllowlistEntry struct {
	BrandSlug string          `json:"brand_slug" db:"brand_slug"`
	Brand     string          `json:"brand" db:"brand"`
	Status    AllowlistStatus `json:"status" db:"status"`
	Notes     *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// AdmitBrandRequest is the governance request to set a brand's status
type AdmitBrandRequest struct {
	Brand  string          `json:"brand" validate:"required"`
	Status AllowlistStatus `json:"status" validate:"required,oneof=ACTIVE PENDING REJECTED"`
	Notes  *string         `json:"notes,omitempty"`
}
