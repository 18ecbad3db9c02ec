package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// jsonlLoaders lists the load order. Parents load before the rows that
// reference them.
var jsonlLoaders = []struct {
	table string
	load  func(tx *sql.Tx, rec json.RawMessage) error
}{
	{types.TableProjects, loadProjectRecord},
	{types.TableStages, loadStageRecord},
	{types.TableBudget, loadBudgetRecord},
}

// loadAllJSONL reads each JSONL file from dataDir and inserts its records.
// Loading is transactional: all tables load or the database stays empty.
// Lines that are not valid JSON, or that lack an ID, are skipped. Unknown
// fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range jsonlLoaders {
		file := jsonlFiles[l.table]
		records, err := readJSONL(filepath.Join(dataDir, file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		for _, rec := range records {
			if err := l.load(tx, rec); err != nil {
				return fmt.Errorf("loading %s into %s: %w", file, l.table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

func loadProjectRecord(tx *sql.Tx, rec json.RawMessage) error {
	var p types.Project
	if json.Unmarshal(rec, &p) != nil || p.ProjectID == "" {
		return nil
	}
	return upsertProject(tx, &p)
}

func loadStageRecord(tx *sql.Tx, rec json.RawMessage) error {
	var s types.Stage
	if json.Unmarshal(rec, &s) != nil || s.StageID == "" {
		return nil
	}
	if s.Status == "" {
		s.Status = types.StatusPending
	}
	return upsertStage(tx, &s)
}

func loadBudgetRecord(tx *sql.Tx, rec json.RawMessage) error {
	var b types.BudgetItem
	if json.Unmarshal(rec, &b) != nil || b.BudgetID == "" {
		return nil
	}
	return upsertBudget(tx, &b)
}
