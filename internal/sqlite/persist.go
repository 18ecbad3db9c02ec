package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// persistTableJSONL dumps one table from SQLite to its JSONL file. Rows are
// written in a stable order so the files diff cleanly.
func persistTableJSONL(db *sql.DB, dataDir, table string) error {
	file, ok := jsonlFiles[table]
	if !ok {
		return types.ErrTableNotFound
	}

	var records []json.RawMessage
	var err error
	switch table {
	case types.TableProjects:
		var all []types.Project
		all, err = queryProjects(db, "SELECT "+projectColumns+" FROM projects ORDER BY created_at, project_id")
		if err == nil {
			records, err = marshalRecords(all)
		}
	case types.TableStages:
		var all []types.Stage
		all, err = queryStages(db, "SELECT "+stageColumns+" FROM stages ORDER BY project_id, ordinal")
		if err == nil {
			records, err = marshalRecords(all)
		}
	case types.TableBudget:
		var all []types.BudgetItem
		all, err = queryBudget(db, "SELECT "+budgetColumns+" FROM budget_items ORDER BY project_id, created_at, budget_id")
		if err == nil {
			records, err = marshalRecords(all)
		}
	}
	if err != nil {
		return fmt.Errorf("dumping %s: %w", table, err)
	}
	return writeJSONL(filepath.Join(dataDir, file), records)
}
