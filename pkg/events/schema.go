package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of event
type EventType string

const (
	// Catalog events
	EventTypeProductCreated   EventType = "product.created"
	EventTypeProductUpdated   EventType = "product.updated"
	EventTypeProductPublished EventType = "product.published"

	// Run events
	EventTypeRunMerged EventType = "run.merged"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewBaseEvent fills the envelope for an event type
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
	}
}

// ProductCreatedEvent is emitted when a staging record is admitted as a new
// canonical product
type ProductCreatedEvent struct {
	BaseEvent
	ProductKey  string `json:"product_key"`
	Brand       string `json:"brand"`
	BrandSlug   string `json:"brand_slug"`
	ProductName string `json:"product_name"`
}

// ProductUpdatedEvent is emitted when a merge fills canonical fields
type ProductUpdatedEvent struct {
	BaseEvent
	ProductKey   string   `json:"product_key"`
	BrandSlug    string   `json:"brand_slug"`
	FilledFields []string `json:"filled_fields"`
}

// ProductPublishedEvent is emitted when the publication gate promotes a
// product to ACTIVE
type ProductPublishedEvent struct {
	BaseEvent
	ProductKey string `json:"product_key"`
}

// RunMergedEvent summarizes a completed merge pass
type RunMergedEvent struct {
	BaseEvent
	RunID    string `json:"run_id"`
	Staged   int    `json:"staged"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}
