// Package sequence keeps a project's stages in a contiguous 1..N order and
// holds the total stage weight at or below 100%.
//
// Every function here is pure: it validates first, then returns a fresh list,
// and leaves its input untouched. A rejected call returns a nil list and an
// error from pkg/types.
package sequence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// newID generates stage IDs. Replaced in tests.
var newID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// now stamps CreatedAt and UpdatedAt. Replaced in tests.
var now = func() time.Time {
	return time.Now().UTC()
}

// Add appends stage with ordinal max(existing)+1. It rejects a blank name, a
// non-positive weight, and any weight that would push the total past 100%;
// the last case returns a *types.WeightExceededError with the remaining
// allowance.
func Add(stages []types.Stage, stage types.Stage) ([]types.Stage, error) {
	stage.Name = strings.TrimSpace(stage.Name)
	if err := stage.Validate(); err != nil {
		return nil, err
	}
	if err := checkWeight(stages, "", stage.Weight); err != nil {
		return nil, err
	}
	if stage.StageID != "" && indexOf(stages, stage.StageID) >= 0 {
		return nil, fmt.Errorf("stage %s already exists: %w", stage.StageID, types.ErrInvalidID)
	}

	next := types.CloneStages(stages)
	if stage.StageID == "" {
		stage.StageID = newID()
	}
	if stage.Status == "" {
		stage.Status = types.StatusPending
	}
	t := now()
	if stage.CreatedAt.IsZero() {
		stage.CreatedAt = t
	}
	stage.UpdatedAt = t
	stage.Ordinal = maxOrdinal(next) + 1
	stage.Evidence = append([]types.EvidenceFile(nil), stage.Evidence...)

	return append(next, stage), nil
}

// Edit replaces the editable fields of the stage with id using data. The
// weight check excludes the stage being edited. data.Ordinal of 0 keeps the
// current position; any other value must be within 1..N. When the ordinal
// changes the stage is spliced out, reinserted at the new position among the
// remaining stages, and the whole list is renumbered.
func Edit(stages []types.Stage, id string, data types.Stage) ([]types.Stage, error) {
	idx := indexOf(stages, id)
	if idx < 0 {
		return nil, types.ErrNotFound
	}
	data.Name = strings.TrimSpace(data.Name)
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if err := checkWeight(stages, id, data.Weight); err != nil {
		return nil, err
	}

	current := stages[idx]
	target := data.Ordinal
	if target == 0 {
		target = current.Ordinal
	}
	if target < 1 || target > len(stages) {
		return nil, types.ErrOrdinalOutOfRange
	}

	updated := current.Clone()
	updated.Name = data.Name
	updated.Weight = data.Weight
	if data.Status != "" {
		updated.Status = data.Status
	}
	updated.StartDate = data.StartDate
	updated.EndDate = data.EndDate
	updated.Evidence = append([]types.EvidenceFile(nil), data.Evidence...)
	updated.UpdatedAt = now()

	next := types.CloneStages(stages)
	if target == current.Ordinal {
		next[idx] = updated
		return Renumber(next), nil
	}

	rest := append(next[:idx:idx], next[idx+1:]...)
	pos := target - 1
	out := make([]types.Stage, 0, len(stages))
	out = append(out, rest[:pos]...)
	out = append(out, updated)
	out = append(out, rest[pos:]...)
	return Renumber(out), nil
}

// MoveUp swaps the stage with its predecessor. On the first stage it is a
// no-op and changed is false.
func MoveUp(stages []types.Stage, id string) (next []types.Stage, changed bool, err error) {
	return move(stages, id, -1)
}

// MoveDown swaps the stage with its successor. On the last stage it is a
// no-op and changed is false.
func MoveDown(stages []types.Stage, id string) (next []types.Stage, changed bool, err error) {
	return move(stages, id, +1)
}

func move(stages []types.Stage, id string, delta int) ([]types.Stage, bool, error) {
	idx := indexOf(stages, id)
	if idx < 0 {
		return nil, false, types.ErrNotFound
	}
	next := types.CloneStages(stages)
	other := idx + delta
	if other < 0 || other >= len(next) {
		return next, false, nil
	}
	next[idx], next[other] = next[other], next[idx]
	return Renumber(next), true, nil
}

// Remove deletes the stage with id and renumbers the rest.
func Remove(stages []types.Stage, id string) ([]types.Stage, error) {
	idx := indexOf(stages, id)
	if idx < 0 {
		return nil, types.ErrNotFound
	}
	next := types.CloneStages(stages)
	next = append(next[:idx], next[idx+1:]...)
	return Renumber(next), nil
}

// Renumber assigns ordinals 1..N in list order, in place, and returns the
// same slice.
func Renumber(stages []types.Stage) []types.Stage {
	for i := range stages {
		stages[i].Ordinal = i + 1
	}
	return stages
}

// Normalize returns a copy sorted by stored ordinal (stable, so ties keep
// their input order) and renumbered 1..N. Used on lists read from storage or
// plan files.
func Normalize(stages []types.Stage) []types.Stage {
	next := types.CloneStages(stages)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Ordinal < next[j].Ordinal
	})
	return Renumber(next)
}

// Check verifies a whole list as storage receives it. Ordinals must be
// exactly 1..N in list order, every stage must pass Stage.Validate, IDs must
// be present and unique, and the weights must sum to at most 100%.
func Check(stages []types.Stage) error {
	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		if s.Ordinal != i+1 {
			return fmt.Errorf("stage %q has ordinal %d at position %d: %w",
				s.Name, s.Ordinal, i+1, types.ErrOrdinalOutOfRange)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i+1, err)
		}
		if s.StageID == "" || seen[s.StageID] {
			return fmt.Errorf("stage %d id %q: %w", i+1, s.StageID, types.ErrInvalidID)
		}
		seen[s.StageID] = true
	}
	weights := make([]float64, len(stages))
	for i, s := range stages {
		weights[i] = s.Weight
	}
	if !WithinLimit(weights) {
		return &types.WeightExceededError{Requested: TotalWeight(stages), Remaining: 0}
	}
	return nil
}

// Find returns the stage with id.
func Find(stages []types.Stage, id string) (types.Stage, bool) {
	idx := indexOf(stages, id)
	if idx < 0 {
		return types.Stage{}, false
	}
	return stages[idx], true
}

func indexOf(stages []types.Stage, id string) int {
	for i, s := range stages {
		if s.StageID == id {
			return i
		}
	}
	return -1
}

func maxOrdinal(stages []types.Stage) int {
	m := 0
	for _, s := range stages {
		if s.Ordinal > m {
			m = s.Ordinal
		}
	}
	return m
}
