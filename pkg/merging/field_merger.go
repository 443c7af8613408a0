package merging

import (
	"github.com/Ramsey-B/bramble/pkg/models"
)

// FieldMerger applies the fill-only-if-null policy: a staged value lands on
// the canonical row only when the canonical field is null or empty. Existing
// values are never replaced, so conflicting observations are preserved rather
// than resolved by precedence.
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// Apply copies staged values into empty canonical fields and appends the
// record's source URL if absent. It returns the names of the columns that
// changed; an empty result means the record contributed nothing new.
func (m *FieldMerger) Apply(dst *models.CanonicalProduct, rec *models.StagingRecord) []string {
	var filled []string

	filled = m.fillString(filled, "ingredients_raw", &dst.IngredientsRaw, rec.IngredientsRaw)
	filled = m.fillString(filled, "image_url", &dst.ImageURL, rec.ImageURL)

	if len(dst.IngredientsTokens) == 0 && len(rec.IngredientsTokens) > 0 {
		dst.IngredientsTokens = rec.IngredientsTokens
		filled = append(filled, "ingredients_tokens")
	}

	filled = m.fillFloat(filled, "protein_percent", &dst.ProteinPercent, rec.ProteinPercent)
	filled = m.fillFloat(filled, "fat_percent", &dst.FatPercent, rec.FatPercent)
	filled = m.fillFloat(filled, "fiber_percent", &dst.FiberPercent, rec.FiberPercent)
	filled = m.fillFloat(filled, "ash_percent", &dst.AshPercent, rec.AshPercent)
	filled = m.fillFloat(filled, "moisture_percent", &dst.MoisturePercent, rec.MoisturePercent)
	filled = m.fillFloat(filled, "kcal_per_100g", &dst.KcalPer100g, rec.KcalPer100g)

	if rec.SourceURL != "" && !dst.Sources.Contains(rec.SourceURL) {
		dst.Sources = append(dst.Sources, rec.SourceURL)
		filled = append(filled, "sources")
	}

	return filled
}

// fillString fills a nullable text column. An existing empty string counts as
// null so whitespace-trimmed imports from older harvests stay repairable.
func (m *FieldMerger) fillString(filled []string, name string, dst **string, src *string) []string {
	if src == nil || *src == "" {
		return filled
	}
	if *dst != nil && **dst != "" {
		return filled
	}
	v := *src
	*dst = &v
	return append(filled, name)
}

func (m *FieldMerger) fillFloat(filled []string, name string, dst **float64, src *float64) []string {
	if src == nil || *dst != nil {
		return filled
	}
	v := *src
	*dst = &v
	return append(filled, name)
}
