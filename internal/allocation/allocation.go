// Package allocation maintains a project's budget line items. Each item is
// tagged to one stage; beyond that reference there is no cross-item rule.
// Functions are pure and follow the same validate-then-return-a-new-list
// contract as package sequence.
package allocation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

var newID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

var now = func() time.Time {
	return time.Now().UTC()
}

// Add appends item after checking its category, its stage reference, and
// that the referenced stage is in stages.
func Add(items []types.BudgetItem, stages []types.Stage, item types.BudgetItem) ([]types.BudgetItem, error) {
	item.Category = strings.TrimSpace(item.Category)
	if err := validate(item, stages); err != nil {
		return nil, err
	}
	if item.BudgetID != "" && indexOf(items, item.BudgetID) >= 0 {
		return nil, fmt.Errorf("budget item %s already exists: %w", item.BudgetID, types.ErrInvalidID)
	}

	next := types.CloneBudget(items)
	if item.BudgetID == "" {
		item.BudgetID = newID()
	}
	t := now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = t
	}
	item.UpdatedAt = t
	item.Evidence = append([]types.EvidenceFile(nil), item.Evidence...)
	return append(next, item), nil
}

// Edit replaces the editable fields of the item with id.
func Edit(items []types.BudgetItem, stages []types.Stage, id string, data types.BudgetItem) ([]types.BudgetItem, error) {
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, types.ErrNotFound
	}
	data.Category = strings.TrimSpace(data.Category)
	if err := validate(data, stages); err != nil {
		return nil, err
	}

	next := types.CloneBudget(items)
	updated := next[idx]
	updated.Category = data.Category
	updated.Description = data.Description
	updated.StageID = data.StageID
	updated.Amount = data.Amount
	updated.Realized = data.Realized
	updated.Evidence = append([]types.EvidenceFile(nil), data.Evidence...)
	updated.UpdatedAt = now()
	next[idx] = updated
	return next, nil
}

// Delete removes the item with id.
func Delete(items []types.BudgetItem, id string) ([]types.BudgetItem, error) {
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, types.ErrNotFound
	}
	next := types.CloneBudget(items)
	return append(next[:idx], next[idx+1:]...), nil
}

// DetachStage drops every item that references stageID and reports how many
// were dropped. Called when a stage is removed.
func DetachStage(items []types.BudgetItem, stageID string) ([]types.BudgetItem, int) {
	next := make([]types.BudgetItem, 0, len(items))
	for _, it := range items {
		if it.StageID == stageID {
			continue
		}
		next = append(next, it.Clone())
	}
	return next, len(items) - len(next)
}

// ByStage returns the items sorted by the ordinal of their stage, keeping
// insertion order within a stage. Items whose stage is unknown sort last.
func ByStage(items []types.BudgetItem, stages []types.Stage) []types.BudgetItem {
	rank := make(map[string]int, len(stages))
	for _, s := range stages {
		rank[s.StageID] = s.Ordinal
	}
	next := types.CloneBudget(items)
	sort.SliceStable(next, func(i, j int) bool {
		return ordinalOf(rank, next[i].StageID) < ordinalOf(rank, next[j].StageID)
	})
	return next
}

func ordinalOf(rank map[string]int, stageID string) int {
	if o, ok := rank[stageID]; ok {
		return o
	}
	return int(^uint(0) >> 1)
}

func validate(item types.BudgetItem, stages []types.Stage) error {
	if err := item.Validate(); err != nil {
		return err
	}
	for _, s := range stages {
		if s.StageID == item.StageID {
			return nil
		}
	}
	return fmt.Errorf("stage %s: %w", item.StageID, types.ErrStageNotFound)
}

func indexOf(items []types.BudgetItem, id string) int {
	for i, it := range items {
		if it.BudgetID == id {
			return i
		}
	}
	return -1
}
