package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stage statuses. Status is set by whoever tracks field progress; the
// sequencer never derives it.
const (
	StatusPending  = "pending"
	StatusProgress = "progress"
	StatusDone     = "done"
)

var validStatuses = map[string]bool{
	StatusPending:  true,
	StatusProgress: true,
	StatusDone:     true,
}

// MaxTotalWeight is the ceiling on the sum of stage weights in one project.
const MaxTotalWeight = 100.0

// WeightEpsilon absorbs float rounding when weights are summed.
const WeightEpsilon = 1e-9

// Stage is a named, weighted, ordered phase of a project's execution.
type Stage struct {
	StageID   string         `json:"stage_id"`
	ProjectID string         `json:"project_id"`
	Ordinal   int            `json:"ordinal"`
	Name      string         `json:"name"`
	Weight    float64        `json:"weight"`
	Status    string         `json:"status"`
	StartDate time.Time      `json:"start_date,omitempty"`
	EndDate   time.Time      `json:"end_date,omitempty"`
	Evidence  []EvidenceFile `json:"evidence,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Stage validation errors.
var (
	ErrInvalidName       = errors.New("name must not be empty")
	ErrInvalidWeight     = errors.New("weight must be greater than zero")
	ErrWeightExceeded    = errors.New("total weight exceeds 100%")
	ErrOrdinalOutOfRange = errors.New("ordinal out of range")
	ErrInvalidStatus     = errors.New("invalid stage status")
	ErrInvalidDateRange  = errors.New("end date is before start date")
)

// WeightExceededError reports a weight that would push the project total over
// MaxTotalWeight. Remaining is what could still be allocated.
type WeightExceededError struct {
	Requested float64
	Remaining float64
}

func (e *WeightExceededError) Error() string {
	return fmt.Sprintf("%s: requested %s%%, remaining %s%%",
		ErrWeightExceeded, FormatWeight(e.Requested), FormatWeight(e.Remaining))
}

// Unwrap lets errors.Is match ErrWeightExceeded.
func (e *WeightExceededError) Unwrap() error { return ErrWeightExceeded }

// FormatWeight renders a weight without trailing zeros.
func FormatWeight(w float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", w), "0"), ".")
}

// IsValidStatus reports whether s is a recognized stage status.
func IsValidStatus(s string) bool {
	return validStatuses[s]
}

// SetStatus sets the stage status. Returns ErrInvalidStatus if the value is
// not recognized. Idempotent.
func (s *Stage) SetStatus(status string) error {
	if !validStatuses[status] {
		return ErrInvalidStatus
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

// Validate checks the per-stage rules: non-blank name, positive weight, known
// status (empty means pending), and an end date not before the start date.
// Cross-stage rules live in the sequencer.
func (s *Stage) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidName
	}
	if s.Weight <= 0 {
		return ErrInvalidWeight
	}
	if s.Status != "" && !validStatuses[s.Status] {
		return ErrInvalidStatus
	}
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
		return ErrInvalidDateRange
	}
	return nil
}

// Clone returns a deep copy of the stage.
func (s Stage) Clone() Stage {
	s.Evidence = cloneEvidence(s.Evidence)
	return s
}

// CloneStages returns a deep copy of a stage list.
func CloneStages(stages []Stage) []Stage {
	if stages == nil {
		return nil
	}
	out := make([]Stage, len(stages))
	for i, s := range stages {
		out[i] = s.Clone()
	}
	return out
}
