package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/bramble/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string
}

// ParseHarvestMessage parses the message value as a harvester observation
func (m *IncomingMessage) ParseHarvestMessage() (*models.HarvestMessage, error) {
	var msg models.HarvestMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetRunID returns the run id from the message body, falling back to the
// run_id header for older harvesters that only tag the envelope.
func (m *IncomingMessage) GetRunID() string {
	var probe struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(m.Value, &probe); err == nil && probe.RunID != "" {
		return probe.RunID
	}
	return m.Headers["run_id"]
}

// RunCompletedMessage signals that a harvester finished staging a run.
// Consuming it is what triggers the merge pass for that run.
type RunCompletedMessage struct {
	Type      string    `json:"type"` // "run.completed"
	RunID     string    `json:"run_id"`
	Harvester string    `json:"harvester"`
	Staged    int       `json:"staged"`
	Timestamp time.Time `json:"timestamp"`
}

// IsRunCompleted checks if the message is a run.completed event
func (m *IncomingMessage) IsRunCompleted() bool {
	if msgType := m.Headers["type"]; msgType == "run.completed" {
		return true
	}

	var evt RunCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err == nil {
		return evt.Type == "run.completed"
	}

	return false
}

// ParseRunCompleted parses the message as a run.completed event
func (m *IncomingMessage) ParseRunCompleted() (*RunCompletedMessage, error) {
	var evt RunCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}
