package models

import "fmt"

// MergeOutcomeKind is the explicit disposition of one staging record
type MergeOutcomeKind string

const (
	// MergeOutcomeInserted means a new canonical product was created
	MergeOutcomeInserted MergeOutcomeKind = "inserted"
	// MergeOutcomeUpdated means an existing canonical product gained data
	MergeOutcomeUpdated MergeOutcomeKind = "updated"
	// MergeOutcomeNoOp means the record matched but contributed nothing new
	MergeOutcomeNoOp MergeOutcomeKind = "no_op"
	// MergeOutcomeSkipped means the record was set aside with a reason
	MergeOutcomeSkipped MergeOutcomeKind = "skipped"
)

// SkipReason explains why a staging record was skipped
type SkipReason string

const (
	// SkipReasonNotAllowlisted means the brand is forbidden from creating products
	SkipReasonNotAllowlisted SkipReason = "not_allowlisted"
	// SkipReasonInvalidRecord means the record failed normalization
	SkipReasonInvalidRecord SkipReason = "invalid_record"
	// SkipReasonNeedsReview means the best fuzzy candidate fell in the review band
	SkipReasonNeedsReview SkipReason = "needs_review"
)

// MergeOutcome is the per-record result of a merge pass. Every staging record
// in a run produces exactly one outcome; nothing is silently dropped.
type MergeOutcome struct {
	StagingRecordID string           `json:"staging_record_id"`
	ProductKey      string           `json:"product_key,omitempty"`
	Kind            MergeOutcomeKind `json:"kind"`
	Tier            MatchTier        `json:"tier,omitempty"`
	SkipReason      SkipReason       `json:"skip_reason,omitempty"`
	FilledFields    []string         `json:"filled_fields,omitempty"`
}

// MergeSummary is the fully-accounted result of merging one run
type MergeSummary struct {
	RunID    string             `json:"run_id"`
	Staged   int                `json:"staged"`
	Inserted int                `json:"inserted"`
	Updated  int                `json:"updated"`
	NoOps    int                `json:"no_ops"`
	Skipped  int                `json:"skipped"`
	Skips    map[SkipReason]int `json:"skips,omitempty"`
	Outcomes []MergeOutcome     `json:"outcomes,omitempty"`
}

// Merged returns the count of records that produced canonical writes.
func (s *MergeSummary) Merged() int {
	return s.Inserted + s.Updated
}

// Record folds one outcome into the summary counters.
func (s *MergeSummary) Record(o MergeOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case MergeOutcomeInserted:
		s.Inserted++
	case MergeOutcomeUpdated:
		s.Updated++
	case MergeOutcomeNoOp:
		s.NoOps++
	case MergeOutcomeSkipped:
		s.Skipped++
		if s.Skips == nil {
			s.Skips = make(map[SkipReason]int)
		}
		s.Skips[o.SkipReason]++
	}
}

// HealthCheckError is the run-level hard failure: enough records were staged
// that near-zero merge activity indicates product key drift between harvester
// and merge engine rather than a quiet run.
type HealthCheckError struct {
	RunID  string
	Staged int
	Merged int
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("merge health check failed for run %s: %d staged but only %d merged; suspect product key drift", e.RunID, e.Staged, e.Merged)
}

// NormalizationError is a record-local failure: the record is skipped with a
// recorded reason and the run continues.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed on %s: %s", e.Field, e.Reason)
}
