package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/proyek/internal/allocation"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

var _ types.Table = (*budgetTable)(nil)

// budgetTable implements types.Table for *types.BudgetItem values. Writes
// run through the allocator, so every stored item references a stage of its
// project.
type budgetTable struct {
	backend *Backend
}

// Get retrieves a budget item by ID.
func (bt *budgetTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	bt.backend.mu.RLock()
	defer bt.backend.mu.RUnlock()
	if !bt.backend.attached {
		return nil, types.ErrDetached
	}
	return bt.get(id)
}

func (bt *budgetTable) get(id string) (*types.BudgetItem, error) {
	item, err := hydrateBudget(bt.backend.db.QueryRow(
		"SELECT "+budgetColumns+" FROM budget_items WHERE budget_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting budget item %s: %w", id, err)
	}
	return item, nil
}

// Set adds an item when id is empty or unknown and otherwise edits it. data
// is updated with the stored item.
func (bt *budgetTable) Set(id string, data any) (string, error) {
	item, ok := data.(*types.BudgetItem)
	if !ok || item == nil {
		return "", types.ErrInvalidData
	}

	b := bt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrDetached
	}

	projectID := item.ProjectID
	var existing *types.BudgetItem
	if id != "" {
		it, err := bt.get(id)
		switch {
		case err == nil:
			existing = it
			projectID = it.ProjectID
		case !errors.Is(err, types.ErrNotFound):
			return "", err
		}
	}
	if err := b.requireProject(b.db, projectID); err != nil {
		return "", err
	}
	stages, err := loadStages(b.db, projectID)
	if err != nil {
		return "", err
	}
	items, err := loadBudget(b.db, projectID)
	if err != nil {
		return "", err
	}

	var next []types.BudgetItem
	if existing != nil {
		next, err = allocation.Edit(items, stages, id, *item)
	} else {
		add := *item
		add.BudgetID = id
		add.ProjectID = projectID
		next, err = allocation.Add(items, stages, add)
		if err == nil {
			id = next[len(next)-1].BudgetID
		}
	}
	if err != nil {
		return "", err
	}
	if err := b.replaceBudget(projectID, next); err != nil {
		return "", err
	}

	for _, it := range next {
		if it.BudgetID == id {
			it.ProjectID = projectID
			*item = it
			break
		}
	}
	return id, nil
}

// Delete removes a budget item.
func (bt *budgetTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := bt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	it, err := bt.get(id)
	if err != nil {
		return err
	}
	items, err := loadBudget(b.db, it.ProjectID)
	if err != nil {
		return err
	}
	next, err := allocation.Delete(items, id)
	if err != nil {
		return err
	}
	return b.replaceBudget(it.ProjectID, next)
}

// Fetch returns budget items ordered by project, stage ordinal, and creation
// time. Filter keys: project_id, stage_id, category, q (substring of
// category or description), limit, offset.
func (bt *budgetTable) Fetch(filter types.Filter) ([]any, error) {
	var where whereClause
	if err := where.equals(filter, "project_id", "b.project_id"); err != nil {
		return nil, err
	}
	if err := where.equals(filter, "stage_id", "b.stage_id"); err != nil {
		return nil, err
	}
	if err := where.equals(filter, "category", "b.category"); err != nil {
		return nil, err
	}
	if err := where.contains(filter, "q", "b.category", "b.description"); err != nil {
		return nil, err
	}
	page, err := pageClause(filter)
	if err != nil {
		return nil, err
	}

	bt.backend.mu.RLock()
	defer bt.backend.mu.RUnlock()
	if !bt.backend.attached {
		return nil, types.ErrDetached
	}

	items, err := queryBudget(bt.backend.db,
		"SELECT "+qualified("b", budgetColumns)+" FROM budget_items b"+
			" LEFT JOIN stages s ON s.stage_id = b.stage_id"+
			where.String()+
			" ORDER BY b.project_id, COALESCE(s.ordinal, 2147483647), b.created_at, b.budget_id"+page,
		where.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching budget items: %w", err)
	}
	return toAny(items), nil
}
