package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/proyek/internal/allocation"
	"github.com/mesh-intelligence/proyek/internal/notify"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// StageLister supplies the stages budget items may reference.
type StageLister interface {
	Stages() []types.Stage
}

// BudgetConfig configures a BudgetEditor.
type BudgetConfig struct {
	ProjectID string
	Items     []types.BudgetItem
	Stages    StageLister

	// OnUpdate receives the full new list after every successful mutation.
	OnUpdate func([]types.BudgetItem) error

	Notify notify.Sink
	Logger *zap.Logger
}

// BudgetEditor maintains the budget line items of one project.
type BudgetEditor struct {
	projectID string
	items     []types.BudgetItem
	stages    StageLister
	onUpdate  func([]types.BudgetItem) error
	notify    notify.Sink
	logger    *zap.Logger
	lastErr   error
}

// NewBudgetEditor returns an editor over a copy of cfg.Items.
func NewBudgetEditor(cfg BudgetConfig) *BudgetEditor {
	e := &BudgetEditor{
		projectID: cfg.ProjectID,
		items:     types.CloneBudget(cfg.Items),
		stages:    cfg.Stages,
		onUpdate:  cfg.OnUpdate,
		notify:    cfg.Notify,
		logger:    cfg.Logger,
	}
	if e.notify == nil {
		e.notify = notify.Nop{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.String("project_id", cfg.ProjectID))
	return e
}

// Items returns a copy of the current list ordered by stage.
func (e *BudgetEditor) Items() []types.BudgetItem {
	return allocation.ByStage(e.items, e.currentStages())
}

// LastErr returns the error behind the most recent false result.
func (e *BudgetEditor) LastErr() error {
	return e.lastErr
}

// Add appends a budget item.
func (e *BudgetEditor) Add(item types.BudgetItem) bool {
	item.ProjectID = e.projectID
	next, err := allocation.Add(e.items, e.currentStages(), item)
	if err != nil {
		return e.fail("add budget item", err)
	}
	added := next[len(next)-1]
	return e.commit(next, fmt.Sprintf("budget item %q added", added.Category))
}

// Edit updates the budget item with id.
func (e *BudgetEditor) Edit(id string, data types.BudgetItem) bool {
	next, err := allocation.Edit(e.items, e.currentStages(), id, data)
	if err != nil {
		return e.fail("edit budget item", err)
	}
	return e.commit(next, fmt.Sprintf("budget item %q updated", data.Category))
}

// Delete removes the budget item with id.
func (e *BudgetEditor) Delete(id string) bool {
	next, err := allocation.Delete(e.items, id)
	if err != nil {
		return e.fail("delete budget item", err)
	}
	return e.commit(next, "budget item deleted")
}

// detachStage drops items tied to a removed stage. Nothing happens when no
// item referenced it. A failed save is returned to the stage editor, which
// reports it; the stale items are then pruned by the next successful write.
func (e *BudgetEditor) detachStage(stage types.Stage) error {
	next, dropped := allocation.DetachStage(e.items, stage.StageID)
	if dropped == 0 {
		return nil
	}
	if e.onUpdate != nil {
		if err := e.onUpdate(types.CloneBudget(next)); err != nil {
			e.lastErr = err
			e.logger.Debug("detach stage rejected", zap.String("stage_id", stage.StageID), zap.Error(err))
			return err
		}
	}
	e.apply(next, fmt.Sprintf("%d budget item(s) of stage %q removed", dropped, stage.Name))
	return nil
}

func (e *BudgetEditor) currentStages() []types.Stage {
	if e.stages == nil {
		return nil
	}
	return e.stages.Stages()
}

func (e *BudgetEditor) commit(next []types.BudgetItem, msg string) bool {
	if e.stages != nil {
		next = pruneOrphans(next, e.currentStages())
	}
	if e.onUpdate != nil {
		if err := e.onUpdate(types.CloneBudget(next)); err != nil {
			return e.fail("save budget", err)
		}
	}
	e.apply(next, msg)
	return true
}

func (e *BudgetEditor) apply(next []types.BudgetItem, msg string) {
	e.items = next
	e.lastErr = nil
	e.logger.Debug("budget updated", zap.Int("count", len(next)))
	e.notify.Success(msg)
}

// pruneOrphans drops items whose stage is not in stages. They are left over
// when a stage removal could not save the budget list.
func pruneOrphans(items []types.BudgetItem, stages []types.Stage) []types.BudgetItem {
	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		known[s.StageID] = true
	}
	kept := items[:0:0]
	for _, it := range items {
		if known[it.StageID] {
			kept = append(kept, it)
		}
	}
	return kept
}

func (e *BudgetEditor) fail(op string, err error) bool {
	e.lastErr = err
	e.logger.Debug(op+" rejected", zap.Error(err))
	e.notify.Error(describe(err))
	return false
}
