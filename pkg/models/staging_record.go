package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a jsonb-backed string array column.
// Mirrors the JSONB scan/value convention used by the stem database helpers.
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Contains reports whether the list holds the exact value.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// StagingRecord is one harvested observation of a product, scoped to a run.
// Rows are immutable once written; a run is merged and audited as a unit.
type StagingRecord struct {
	ID                 string     `json:"id" db:"id"`
	RunID              string     `json:"run_id" db:"run_id"`
	BrandRaw           string     `json:"brand_raw" db:"brand_raw"`
	ProductNameRaw     string     `json:"product_name_raw" db:"product_name_raw"`
	BrandSlug          string     `json:"brand_slug" db:"brand_slug"`
	NameSlug           string     `json:"name_slug" db:"name_slug"`
	ProductKeyComputed string     `json:"product_key_computed" db:"product_key_computed"`
	IngredientsRaw     *string    `json:"ingredients_raw,omitempty" db:"ingredients_raw"`
	IngredientsTokens  StringList `json:"ingredients_tokens,omitempty" db:"ingredients_tokens"`
	ProteinPercent     *float64   `json:"protein_percent,omitempty" db:"protein_percent"`
	FatPercent         *float64   `json:"fat_percent,omitempty" db:"fat_percent"`
	FiberPercent       *float64   `json:"fiber_percent,omitempty" db:"fiber_percent"`
	AshPercent         *float64   `json:"ash_percent,omitempty" db:"ash_percent"`
	MoisturePercent    *float64   `json:"moisture_percent,omitempty" db:"moisture_percent"`
	KcalPer100g        *float64   `json:"kcal_per_100g,omitempty" db:"kcal_per_100g"`
	ImageURL           *string    `json:"image_url,omitempty" db:"image_url"`
	SourceURL          string     `json:"source_url" db:"source_url"`
	ExtractedAt        time.Time  `json:"extracted_at" db:"extracted_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// CreateStagingRecordRequest is the request for staging a harvested observation
type CreateStagingRecordRequest struct {
	RunID             string     `json:"run_id" validate:"required"`
	BrandRaw          string     `json:"brand_raw" validate:"required"`
	ProductNameRaw    string     `json:"product_name_raw" validate:"required"`
	IngredientsRaw    *string    `json:"ingredients_raw,omitempty"`
	IngredientsTokens StringList `json:"ingredients_tokens,omitempty"`
	ProteinPercent    *float64   `json:"protein_percent,omitempty"`
	FatPercent        *float64   `json:"fat_percent,omitempty"`
	FiberPercent      *float64   `json:"fiber_percent,omitempty"`
	AshPercent        *float64   `json:"ash_percent,omitempty"`
	MoisturePercent   *float64   `json:"moisture_percent,omitempty"`
	KcalPer100g       *float64   `json:"kcal_per_100g,omitempty"`
	ImageURL          *string    `json:"image_url,omitempty"`
	SourceURL         string     `json:"source_url" validate:"required,url"`
	ExtractedAt       time.Time  `json:"extracted_at"`
}

// HarvestMessage is an incoming harvester observation from the staged-products topic.
// The harvester sends raw strings only; slugs and the product key are computed
// on ingestion so producer and consumer share one key implementation.
type HarvestMessage struct {
	RunID             string     `json:"run_id" validate:"required"`
	Brand             string     `json:"brand" validate:"required"`
	ProductName       string     `json:"product_name" validate:"required"`
	IngredientsRaw    *string    `json:"ingredients_raw,omitempty"`
	IngredientsTokens StringList `json:"ingredients_tokens,omitempty"`
	ProteinPercent    *float64   `json:"protein_percent,omitempty"`
	FatPercent        *float64   `json:"fat_percent,omitempty"`
	FiberPercent      *float64   `json:"fiber_percent,omitempty"`
	AshPercent        *float64   `json:"ash_percent,omitempty"`
	MoisturePercent   *float64   `json:"moisture_percent,omitempty"`
	KcalPer100g       *float64   `json:"kcal_per_100g,omitempty"`
	ImageURL          *string    `json:"image_url,omitempty"`
	SourceURL         string     `json:"source_url" validate:"required"`
	Harvester         string     `json:"harvester,omitempty"`
	ExtractedAt       time.Time  `json:"extracted_at"`
}

// StagingRecordListResponse is the response for listing staging records
type StagingRecordListResponse struct {
	Items      []StagingRecord `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
