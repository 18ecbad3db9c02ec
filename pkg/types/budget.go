package types

import (
	"errors"
	"strings"
	"time"
)

// BudgetItem is a financial line item tied to exactly one stage.
type BudgetItem struct {
	BudgetID    string         `json:"budget_id"`
	ProjectID   string         `json:"project_id"`
	StageID     string         `json:"stage_id"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Amount      int64          `json:"amount"`
	Realized    int64          `json:"realized"`
	Evidence    []EvidenceFile `json:"evidence,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Budget validation errors.
var (
	ErrInvalidCategory = errors.New("category must not be empty")
	ErrInvalidStageRef = errors.New("stage reference must not be empty")
	ErrStageNotFound   = errors.New("referenced stage does not exist")
	ErrInvalidAmount   = errors.New("amount must not be negative")
)

// Validate checks the per-item rules: non-blank category, a non-empty stage
// reference, and amounts that are not negative. Whether the stage exists is
// checked by the allocator.
func (b *BudgetItem) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(b.StageID) == "" {
		return ErrInvalidStageRef
	}
	if b.Amount < 0 || b.Realized < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Clone returns a deep copy of the item.
func (b BudgetItem) Clone() BudgetItem {
	b.Evidence = cloneEvidence(b.Evidence)
	return b
}

// CloneBudget returns a deep copy of a budget list.
func CloneBudget(items []BudgetItem) []BudgetItem {
	if items == nil {
		return nil
	}
	out := make([]BudgetItem, len(items))
	for i, b := range items {
		out[i] = b.Clone()
	}
	return out
}
