package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// LoadStages returns the project's stages ordered by ordinal.
func (b *Backend) LoadStages(projectID string) ([]types.Stage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	if err := b.requireProject(b.db, projectID); err != nil {
		return nil, err
	}
	return loadStages(b.db, projectID)
}

// ReplaceStages swaps the project's stored stage list for stages. The list
// must already satisfy the ordinal and weight invariants. Budget items whose
// stage is no longer in the list are deleted in the same transaction.
func (b *Backend) ReplaceStages(projectID string, stages []types.Stage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	return b.replaceStages(projectID, stages)
}

// LoadBudget returns the project's budget items ordered by stage ordinal and
// creation time.
func (b *Backend) LoadBudget(projectID string) ([]types.BudgetItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	if err := b.requireProject(b.db, projectID); err != nil {
		return nil, err
	}
	return loadBudget(b.db, projectID)
}

// ReplaceBudget swaps the project's stored budget list for items. Every item
// must reference one of the project's stages.
func (b *Backend) ReplaceBudget(projectID string, items []types.BudgetItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	return b.replaceBudget(projectID, items)
}

// requireProject reports ErrNotFound when projectID has no project row.
func (b *Backend) requireProject(q querier, projectID string) error {
	if projectID == "" {
		return types.ErrInvalidID
	}
	var one int
	err := q.QueryRow("SELECT 1 FROM projects WHERE project_id = ?", projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %s: %w", projectID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking project %s: %w", projectID, err)
	}
	return nil
}

func loadStages(q querier, projectID string) ([]types.Stage, error) {
	stages, err := queryStages(q,
		"SELECT "+stageColumns+" FROM stages WHERE project_id = ? ORDER BY ordinal, created_at", projectID)
	if err != nil {
		return nil, fmt.Errorf("loading stages for %s: %w", projectID, err)
	}
	return stages, nil
}

func loadBudget(q querier, projectID string) ([]types.BudgetItem, error) {
	items, err := queryBudget(q,
		"SELECT "+qualified("b", budgetColumns)+" FROM budget_items b"+
			" LEFT JOIN stages s ON s.stage_id = b.stage_id"+
			" WHERE b.project_id = ?"+
			" ORDER BY COALESCE(s.ordinal, 2147483647), b.created_at, b.budget_id", projectID)
	if err != nil {
		return nil, fmt.Errorf("loading budget for %s: %w", projectID, err)
	}
	return items, nil
}

// replaceStages does the work of ReplaceStages. The caller must hold b.mu.
func (b *Backend) replaceStages(projectID string, stages []types.Stage) error {
	if err := sequence.Check(stages); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := b.requireProject(tx, projectID); err != nil {
		return err
	}
	for _, s := range stages {
		if err := requireOwner(tx, "stages", "stage_id", s.StageID, projectID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DELETE FROM stages WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clearing stages: %w", err)
	}
	for i := range stages {
		s := stages[i]
		s.ProjectID = projectID
		if err := upsertStage(tx, &s); err != nil {
			return fmt.Errorf("writing stage %s: %w", s.StageID, err)
		}
	}
	res, err := tx.Exec(
		"DELETE FROM budget_items WHERE project_id = ? AND stage_id NOT IN (SELECT stage_id FROM stages WHERE project_id = ?)",
		projectID, projectID)
	if err != nil {
		return fmt.Errorf("dropping orphaned budget items: %w", err)
	}
	orphans, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stages: %w", err)
	}

	if err := b.persist(types.TableStages); err != nil {
		return fmt.Errorf("persisting stages: %w", err)
	}
	if orphans > 0 {
		if err := b.persist(types.TableBudget); err != nil {
			return fmt.Errorf("persisting budget items: %w", err)
		}
	}
	return nil
}

// replaceBudget does the work of ReplaceBudget. The caller must hold b.mu.
func (b *Backend) replaceBudget(projectID string, items []types.BudgetItem) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := b.requireProject(tx, projectID); err != nil {
		return err
	}
	stages, err := loadStages(tx, projectID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		known[s.StageID] = true
	}

	if _, err := tx.Exec("DELETE FROM budget_items WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clearing budget items: %w", err)
	}
	seen := make(map[string]bool, len(items))
	for i := range items {
		item := items[i]
		if err := item.Validate(); err != nil {
			return fmt.Errorf("budget item %s: %w", item.BudgetID, err)
		}
		if item.BudgetID == "" || seen[item.BudgetID] {
			return fmt.Errorf("budget item %q: %w", item.BudgetID, types.ErrInvalidID)
		}
		seen[item.BudgetID] = true
		if !known[item.StageID] {
			return fmt.Errorf("budget item %s: stage %s: %w", item.BudgetID, item.StageID, types.ErrStageNotFound)
		}
		if err := requireOwner(tx, "budget_items", "budget_id", item.BudgetID, projectID); err != nil {
			return err
		}
		item.ProjectID = projectID
		if err := upsertBudget(tx, &item); err != nil {
			return fmt.Errorf("writing budget item %s: %w", item.BudgetID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing budget items: %w", err)
	}
	if err := b.persist(types.TableBudget); err != nil {
		return fmt.Errorf("persisting budget items: %w", err)
	}
	return nil
}

// requireOwner rejects an ID already stored under a project other than
// projectID. INSERT OR REPLACE would otherwise move the row across projects.
func requireOwner(q querier, table, idColumn, id, projectID string) error {
	var owner string
	err := q.QueryRow("SELECT project_id FROM "+table+" WHERE "+idColumn+" = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", table, id, err)
	}
	if owner != projectID {
		return fmt.Errorf("%s %s belongs to project %s: %w", idColumn, id, owner, types.ErrInvalidID)
	}
	return nil
}

// qualified prefixes each column in a comma-separated list with alias.
func qualified(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
