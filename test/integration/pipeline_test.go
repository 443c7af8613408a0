package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/admission"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/logging"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/merging"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/processor"
	"github.com/Ramsey-B/bramble/pkg/productkey"
	"github.com/Ramsey-B/bramble/pkg/publication"
)

// memStaging backs both the ingestion writer and the merge engine reader.
type memStaging struct {
	mu      sync.Mutex
	records []models.StagingRecord
}

func (s *memStaging) Create(_ context.Context, rec *models.StagingRecord) (*models.StagingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	s.records = append(s.records, *rec)
	return rec, nil
}

func (s *memStaging) ListByRunID(_ context.Context, runID string) ([]models.StagingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StagingRecord
	for _, r := range s.records {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memCatalog is an in-memory canonical_products table.
type memCatalog struct {
	mu       sync.Mutex
	products map[string]*models.CanonicalProduct
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: make(map[string]*models.CanonicalProduct)}
}

func (c *memCatalog) GetByProductKey(_ context.Context, productKey string) (*models.CanonicalProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.products[productKey]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (c *memCatalog) GetByBrandNameSlug(_ context.Context, brandSlug, nameSlug string) (*models.CanonicalProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.BrandSlug == brandSlug && p.NameSlug == nameSlug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) ListByBrandSlug(_ context.Context, brandSlug string, _ int) ([]models.CanonicalProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.CanonicalProduct
	for _, p := range c.products {
		if p.BrandSlug == brandSlug {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (c *memCatalog) Insert(_ context.Context, p *models.CanonicalProduct) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.products[p.ProductKey]; exists {
		return errors.New("duplicate product key")
	}
	cp := *p
	c.products[p.ProductKey] = &cp
	return nil
}

func (c *memCatalog) UpdateFilled(_ context.Context, p *models.CanonicalProduct, previousKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.products[previousKey]; !exists {
		return errors.New("row not found")
	}
	delete(c.products, previousKey)
	cp := *p
	c.products[p.ProductKey] = &cp
	return nil
}

// memPublications is an in-memory publication_records table.
type memPublications struct {
	mu      sync.Mutex
	records map[string]*models.PublicationRecord
}

func newMemPublications() *memPublications {
	return &memPublications{records: make(map[string]*models.PublicationRecord)}
}

func (s *memPublications) EnsurePending(_ context.Context, productKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[productKey]; !exists {
		s.records[productKey] = &models.PublicationRecord{
			ProductKey: productKey,
			Status:     models.PublicationStatusPending,
			CreatedAt:  time.Now(),
		}
	}
	return nil
}

func (s *memPublications) Get(_ context.Context, productKey string) (*models.PublicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[productKey]; ok {
		r := *rec
		return &r, nil
	}
	return nil, nil
}

func (s *memPublications) ListByStatus(_ context.Context, status models.PublicationStatus) ([]models.PublicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PublicationRecord
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *memPublications) Update(_ context.Context, rec *models.PublicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rec
	s.records[rec.ProductKey] = &r
	return nil
}

type memAllowlist struct {
	entries map[string]*models.BrandAllowlistEntry
}

func (f *memAllowlist) GetByBrandSlug(_ context.Context, brandSlug string) (*models.BrandAllowlistEntry, error) {
	return f.entries[brandSlug], nil
}

// pipeline wires processor, merge engine and publication gate over in-memory
// stores, the same topology the app assembles over PostgreSQL and Kafka.
type pipeline struct {
	staging   *memStaging
	catalog   *memCatalog
	pubs      *memPublications
	allowlist *memAllowlist
	processor *processor.Processor
}

func newPipeline(mode admission.Mode, entries map[string]*models.BrandAllowlistEntry) *pipeline {
	log := logging.Nop()
	staging := &memStaging{}
	catalog := newMemCatalog()
	pubs := newMemPublications()
	allowlist := &memAllowlist{entries: entries}

	matcher := matching.NewEngine(log, catalog, nil, matching.DefaultConfig())
	policy := admission.New(mode, log, allowlist)
	merger := merging.NewEngine(log, staging, catalog, pubs, matcher, policy, nil, nil, merging.Config{MinSampleSize: 50, WorkerCount: 2})
	gate := publication.NewGate(log, pubs, catalog, nil)
	proc := processor.NewProcessor(log, staging, merger, gate, nil)

	return &pipeline{
		staging:   staging,
		catalog:   catalog,
		pubs:      pubs,
		allowlist: allowlist,
		processor: proc,
	}
}

func (p *pipeline) deliver(t *testing.T, payload any) error {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return p.processor.HandleMessage(context.Background(), &kafka.IncomingMessage{Value: data})
}

func (p *pipeline) harvest(t *testing.T, runID string, msg models.HarvestMessage) {
	t.Helper()
	msg.RunID = runID
	if msg.SourceURL == "" {
		msg.SourceURL = "https://petfood.example.com/" + productkey.Slugify(msg.ProductName)
	}
	require.NoError(t, p.deliver(t, msg))
}

func (p *pipeline) completeRun(t *testing.T, runID string) error {
	t.Helper()
	return p.deliver(t, kafka.RunCompletedMessage{
		Type:      "run.completed",
		RunID:     runID,
		Timestamp: time.Now(),
	})
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func TestPipeline_HarvestToPublication(t *testing.T) {
	p := newPipeline(admission.ModeOpen, nil)

	p.harvest(t, "run-1", models.HarvestMessage{
		Brand:             "Bozita",
		ProductName:       "Robur Sensitive Single Protein Lamb & Rice",
		IngredientsTokens: models.StringList{"lamb", "rice"},
		ProteinPercent:    f64(23),
		ImageURL:          str("https://cdn.example.com/bozita-robur.jpg"),
	})
	p.harvest(t, "run-1", models.HarvestMessage{
		Brand:       "Bozita",
		ProductName: "Original Wheat Free",
	})

	require.NoError(t, p.completeRun(t, "run-1"))

	key := productkey.Compute("Bozita", "Robur Sensitive Single Protein Lamb & Rice")
	product, err := p.catalog.GetByProductKey(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Bozita", product.Brand)
	assert.Equal(t, "bozita", product.BrandSlug)

	// Complete product was promoted by the sweep that follows the merge.
	rec, err := p.pubs.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.PublicationStatusActive, rec.Status)
	assert.NotNil(t, rec.PromotedAt)

	// Incomplete product stays pending with its gap flags recorded.
	incompleteKey := productkey.Compute("Bozita", "Original Wheat Free")
	rec, err = p.pubs.Get(context.Background(), incompleteKey)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.PublicationStatusPending, rec.Status)
	assert.False(t, rec.HasImage)
	assert.False(t, rec.HasMacros)
}

func TestPipeline_LaterRunFillsGapsAndPromotes(t *testing.T) {
	p := newPipeline(admission.ModeOpen, nil)

	p.harvest(t, "run-1", models.HarvestMessage{
		Brand:       "Acana",
		ProductName: "Pacifica Dog",
	})
	require.NoError(t, p.completeRun(t, "run-1"))

	key := productkey.Compute("Acana", "Pacifica Dog")
	rec, err := p.pubs.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.PublicationStatusPending, rec.Status)

	// A later harvest observes the fields the first one missed.
	p.harvest(t, "run-2", models.HarvestMessage{
		Brand:             "Acana",
		ProductName:       "Pacifica Dog",
		IngredientsTokens: models.StringList{"herring", "pilchard"},
		FatPercent:        f64(17),
		ImageURL:          str("https://cdn.example.com/acana-pacifica.jpg"),
	})
	require.NoError(t, p.completeRun(t, "run-2"))

	product, err := p.catalog.GetByProductKey(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, 17.0, *product.FatPercent)
	require.Len(t, p.catalog.products, 1)

	rec, err = p.pubs.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, models.PublicationStatusActive, rec.Status)
}

func TestPipeline_FillNeverOverwrites(t *testing.T) {
	p := newPipeline(admission.ModeOpen, nil)

	p.harvest(t, "run-1", models.HarvestMessage{
		Brand:          "Orijen",
		ProductName:    "Six Fish",
		ProteinPercent: f64(38),
	})
	require.NoError(t, p.completeRun(t, "run-1"))

	// A second observation carries a conflicting protein value.
	p.harvest(t, "run-2", models.HarvestMessage{
		Brand:          "Orijen",
		ProductName:    "Six Fish",
		ProteinPercent: f64(36),
		FatPercent:     f64(18),
	})
	require.NoError(t, p.completeRun(t, "run-2"))

	key := productkey.Compute("Orijen", "Six Fish")
	product, err := p.catalog.GetByProductKey(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, 38.0, *product.ProteinPercent, "first observed value wins")
	assert.Equal(t, 18.0, *product.FatPercent, "null fields are filled")
}

func TestPipeline_GatedAdmission(t *testing.T) {
	entries := map[string]*models.BrandAllowlistEntry{
		"bozita":    {BrandSlug: "bozita", Brand: "Bozita", Status: models.AllowlistStatusActive},
		"wolfsblut": {BrandSlug: "wolfsblut", Brand: "Wolfsblut", Status: models.AllowlistStatusRejected},
	}
	p := newPipeline(admission.ModeGated, entries)

	p.harvest(t, "run-1", models.HarvestMessage{Brand: "Bozita", ProductName: "Original"})
	p.harvest(t, "run-1", models.HarvestMessage{Brand: "Wolfsblut", ProductName: "Wild Duck"})
	p.harvest(t, "run-1", models.HarvestMessage{Brand: "Unknown Brand", ProductName: "Mystery Meal"})

	require.NoError(t, p.completeRun(t, "run-1"))

	admitted, err := p.catalog.GetByProductKey(context.Background(), productkey.Compute("Bozita", "Original"))
	require.NoError(t, err)
	assert.NotNil(t, admitted)

	rejected, err := p.catalog.GetByProductKey(context.Background(), productkey.Compute("Wolfsblut", "Wild Duck"))
	require.NoError(t, err)
	assert.Nil(t, rejected)

	absent, err := p.catalog.GetByProductKey(context.Background(), productkey.Compute("Unknown Brand", "Mystery Meal"))
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestPipeline_MalformedMessagesAreCommitted(t *testing.T) {
	p := newPipeline(admission.ModeOpen, nil)

	err := p.processor.HandleMessage(context.Background(), &kafka.IncomingMessage{Value: []byte("not json")})
	assert.NoError(t, err, "malformed payloads must not wedge the partition")

	// Missing required fields fails validation but still commits.
	err = p.deliver(t, map[string]any{"run_id": "run-1"})
	assert.NoError(t, err)

	records, err := p.staging.ListByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}
