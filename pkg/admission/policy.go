// Package admission decides whether a brand may enter the canonical catalog.
// The mode is fixed at construction time so a merge run cannot flip between
// open and gated behavior midway through.
package admission

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// Mode names an admission strategy.
type Mode string

const (
	ModeOpen  Mode = "open"
	ModeGated Mode = "gated"
)

// AllowlistStore looks up governance entries for brands.
type AllowlistStore interface {
	GetByBrandSlug(ctx context.Context, brandSlug string) (*models.BrandAllowlistEntry, error)
}

// Policy reports whether a brand is permitted to create canonical products.
type Policy interface {
	Permits(ctx context.Context, brandSlug string) (bool, error)
	Mode() Mode
}

// New constructs the policy for the given mode. Gated mode requires a store;
// open mode ignores it.
func New(mode Mode, log ectologger.Logger, store AllowlistStore) Policy {
	if mode == ModeGated {
		return &GatedPolicy{log: log, store: store}
	}
	return &OpenPolicy{}
}

// OpenPolicy admits every brand.
type OpenPolicy struct{}

func (p *OpenPolicy) Permits(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (p *OpenPolicy) Mode() Mode {
	return ModeOpen
}

// GatedPolicy admits brands with an ACTIVE or PENDING allowlist entry.
// REJECTED brands and brands with no entry at all are held back.
type GatedPolicy struct {
	log   ectologger.Logger
	store AllowlistStore
}

func (p *GatedPolicy) Permits(ctx context.Context, brandSlug string) (bool, error) {
	entry, err := p.store.GetByBrandSlug(ctx, brandSlug)
	if err != nil {
		p.log.WithContext(ctx).WithError(err).WithField("brand_slug", brandSlug).Error("Failed to load allowlist entry")
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.Status == models.AllowlistStatusActive || entry.Status == models.AllowlistStatusPending, nil
}

func (p *GatedPolicy) Mode() Mode {
	return ModeGated
}
