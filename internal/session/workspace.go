package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/proyek/internal/notify"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// Workspace binds one project's editors to a ListStore: every successful edit
// replaces the stored list, and removing a stage drops its budget items.
type Workspace struct {
	ProjectID string
	Stages    *StageEditor
	Budget    *BudgetEditor
}

// Open loads the project's lists from store and returns editors wired to
// persist through it.
func Open(store types.ListStore, projectID string, sink notify.Sink, logger *zap.Logger) (*Workspace, error) {
	stages, err := store.LoadStages(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading stages: %w", err)
	}
	items, err := store.LoadBudget(projectID)
	if err != nil {
		return nil, fmt.Errorf("loading budget: %w", err)
	}

	ws := &Workspace{ProjectID: projectID}
	ws.Stages = NewStageEditor(StageConfig{
		ProjectID: projectID,
		Stages:    stages,
		OnUpdate: func(next []types.Stage) error {
			return store.ReplaceStages(projectID, next)
		},
		OnRemove: func(removed types.Stage) error {
			return ws.Budget.detachStage(removed)
		},
		Notify: sink,
		Logger: logger,
	})
	ws.Budget = NewBudgetEditor(BudgetConfig{
		ProjectID: projectID,
		Items:     items,
		Stages:    ws.Stages,
		OnUpdate: func(next []types.BudgetItem) error {
			return store.ReplaceBudget(projectID, next)
		},
		Notify: sink,
		Logger: logger,
	})
	return ws, nil
}
