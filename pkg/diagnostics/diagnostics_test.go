package diagnostics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/brandrepair"
	"github.com/Ramsey-B/bramble/pkg/logging"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/models"
)

type fakeStaging struct {
	records []models.StagingRecord
}

func (f *fakeStaging) ListByRunID(_ context.Context, _ string) ([]models.StagingRecord, error) {
	return f.records, nil
}

type fakeCatalog struct {
	products []models.CanonicalProduct
}

func (c *fakeCatalog) GetByProductKey(_ context.Context, productKey string) (*models.CanonicalProduct, error) {
	for i := range c.products {
		if c.products[i].ProductKey == productKey {
			return &c.products[i], nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) GetByBrandNameSlug(_ context.Context, brandSlug, nameSlug string) (*models.CanonicalProduct, error) {
	for i := range c.products {
		if c.products[i].BrandSlug == brandSlug && c.products[i].NameSlug == nameSlug {
			return &c.products[i], nil
		}
	}
	return nil, nil
}

func (c *fakeCatalog) ListByBrandSlug(_ context.Context, brandSlug string, _ int) ([]models.CanonicalProduct, error) {
	var out []models.CanonicalProduct
	for _, p := range c.products {
		if p.BrandSlug == brandSlug {
			out = append(out, p)
		}
	}
	return out, nil
}

func rec(id, key, brandSlug, nameSlug string) models.StagingRecord {
	return models.StagingRecord{
		ID:                 id,
		RunID:              "run-1",
		BrandSlug:          brandSlug,
		NameSlug:           nameSlug,
		ProductKeyComputed: key,
	}
}

func TestService_Diagnose(t *testing.T) {
	catalog := &fakeCatalog{products: []models.CanonicalProduct{
		{ProductKey: "bozita_ab12cd34", BrandSlug: "bozita", NameSlug: "grain_free_chicken", UpdatedAt: time.Now()},
	}}
	staging := &fakeStaging{records: []models.StagingRecord{
		rec("hit", "bozita_ab12cd34", "bozita", "grain_free_chicken"),
		rec("near", "bozita_ffffffff", "bozita", "grain_free_chicken_adult"),
		rec("missing-brand", "orijen_ffffffff", "orijen", "six_fish"),
	}}
	matcher := matching.NewEngine(logging.Nop(), catalog, nil, matching.DefaultConfig())
	svc := NewService(logging.Nop(), staging, matcher, catalog, nil)

	report, err := svc.Diagnose(context.Background(), "run-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Sampled)
	assert.Equal(t, 1, report.BrandMissing)
	assert.Equal(t, 1, report.TierCounts[models.MatchTierExactKey])
	require.Len(t, report.Records, 3)

	hit := report.Records[0]
	assert.Equal(t, models.MatchTierExactKey, hit.Tier)
	assert.Equal(t, 1.0, hit.Confidence)
	assert.Equal(t, "bozita_ab12cd34", hit.CandidateKey)
	assert.True(t, hit.BrandExists)

	near := report.Records[1]
	assert.True(t, near.BrandExists)
	assert.Equal(t, "bozita_ab12cd34", near.NearestKey)
	assert.Greater(t, near.NearestScore, 0.0)

	missing := report.Records[2]
	assert.Equal(t, models.MatchTierNone, missing.Tier)
	assert.False(t, missing.BrandExists)
	assert.Empty(t, missing.NearestKey)
}

func TestService_Diagnose_RepairsTruncatedBrand(t *testing.T) {
	catalog := &fakeCatalog{products: []models.CanonicalProduct{
		{ProductKey: "arden_grange_ab12cd34", BrandSlug: "arden_grange", NameSlug: "adult_chicken_rice", UpdatedAt: time.Now()},
	}}
	staging := &fakeStaging{records: []models.StagingRecord{
		{ID: "truncated", RunID: "run-1", BrandRaw: "Arden", ProductNameRaw: "Grange Adult Chicken & Rice"},
	}}
	repairer := brandrepair.NewRepairer(logging.Nop(), []models.BrandSplitPattern{
		{TruncatedSlug: "arden", FullBrand: "Arden Grange", LeftoverPrefix: "Grange", Confidence: 1.0},
	})
	matcher := matching.NewEngine(logging.Nop(), catalog, nil, matching.DefaultConfig())
	svc := NewService(logging.Nop(), staging, matcher, catalog, repairer)

	report, err := svc.Diagnose(context.Background(), "run-1", 0)
	require.NoError(t, err)

	// The merge engine repairs the brand before matching; the would-be report
	// has to predict against the repaired record, not the truncated one.
	assert.Equal(t, 0, report.BrandMissing)
	require.Len(t, report.Records, 1)

	diag := report.Records[0]
	assert.Equal(t, "arden_grange", diag.BrandSlug)
	assert.Equal(t, models.MatchTierBrandNameSlug, diag.Tier)
	assert.Equal(t, "arden_grange_ab12cd34", diag.CandidateKey)
	assert.True(t, diag.BrandExists)
}

func TestService_Diagnose_SampleLimit(t *testing.T) {
	staging := &fakeStaging{records: []models.StagingRecord{
		rec("a", "bozita_00000001", "bozita", "one"),
		rec("b", "bozita_00000002", "bozita", "two"),
		rec("c", "bozita_00000003", "bozita", "three"),
	}}
	matcher := matching.NewEngine(logging.Nop(), &fakeCatalog{}, nil, matching.DefaultConfig())
	svc := NewService(logging.Nop(), staging, matcher, &fakeCatalog{}, nil)

	report, err := svc.Diagnose(context.Background(), "run-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sampled)
	assert.Len(t, report.Records, 2)
}
