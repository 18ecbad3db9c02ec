package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const (
	projectColumns = "project_id, name, client, contract_value, created_at, updated_at"
	stageColumns   = "stage_id, project_id, ordinal, name, weight, status, start_date, end_date, evidence, created_at, updated_at"
	budgetColumns  = "budget_id, project_id, stage_id, category, description, amount, realized, evidence, created_at, updated_at"
)

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func encodeEvidence(files []types.EvidenceFile) (string, error) {
	if len(files) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encoding evidence: %w", err)
	}
	return string(b), nil
}

func decodeEvidence(s string) ([]types.EvidenceFile, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var files []types.EvidenceFile
	if err := json.Unmarshal([]byte(s), &files); err != nil {
		return nil, fmt.Errorf("decoding evidence: %w", err)
	}
	return files, nil
}

// parseTimes parses RFC 3339 columns into their destinations, stopping at the
// first error.
func parseTimes(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		src := pairs[i].(string)
		dst := pairs[i+1].(*time.Time)
		t, err := parseTime(src)
		if err != nil {
			return fmt.Errorf("parsing time %q: %w", src, err)
		}
		*dst = t
	}
	return nil
}

func hydrateProject(row scanner) (*types.Project, error) {
	var p types.Project
	var created, updated string
	if err := row.Scan(&p.ProjectID, &p.Name, &p.Client, &p.ContractValue, &created, &updated); err != nil {
		return nil, err
	}
	if err := parseTimes(created, &p.CreatedAt, updated, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func hydrateStage(row scanner) (*types.Stage, error) {
	var s types.Stage
	var start, end, evidence, created, updated string
	if err := row.Scan(&s.StageID, &s.ProjectID, &s.Ordinal, &s.Name, &s.Weight, &s.Status,
		&start, &end, &evidence, &created, &updated); err != nil {
		return nil, err
	}
	if err := parseTimes(start, &s.StartDate, end, &s.EndDate, created, &s.CreatedAt, updated, &s.UpdatedAt); err != nil {
		return nil, err
	}
	files, err := decodeEvidence(evidence)
	if err != nil {
		return nil, err
	}
	s.Evidence = files
	return &s, nil
}

func hydrateBudget(row scanner) (*types.BudgetItem, error) {
	var b types.BudgetItem
	var evidence, created, updated string
	if err := row.Scan(&b.BudgetID, &b.ProjectID, &b.StageID, &b.Category, &b.Description,
		&b.Amount, &b.Realized, &evidence, &created, &updated); err != nil {
		return nil, err
	}
	if err := parseTimes(created, &b.CreatedAt, updated, &b.UpdatedAt); err != nil {
		return nil, err
	}
	files, err := decodeEvidence(evidence)
	if err != nil {
		return nil, err
	}
	b.Evidence = files
	return &b, nil
}

// upsertProject inserts or replaces a project row.
func upsertProject(q querier, p *types.Project) error {
	_, err := q.Exec(
		"INSERT OR REPLACE INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		p.ProjectID, p.Name, p.Client, p.ContractValue, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	return err
}

// upsertStage inserts or replaces a stage row.
func upsertStage(q querier, s *types.Stage) error {
	evidence, err := encodeEvidence(s.Evidence)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		"INSERT OR REPLACE INTO stages ("+stageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.StageID, s.ProjectID, s.Ordinal, s.Name, s.Weight, s.Status,
		formatTime(s.StartDate), formatTime(s.EndDate), evidence,
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	return err
}

// upsertBudget inserts or replaces a budget item row.
func upsertBudget(q querier, b *types.BudgetItem) error {
	evidence, err := encodeEvidence(b.Evidence)
	if err != nil {
		return err
	}
	_, err = q.Exec(
		"INSERT OR REPLACE INTO budget_items ("+budgetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		b.BudgetID, b.ProjectID, b.StageID, b.Category, b.Description,
		b.Amount, b.Realized, evidence,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	return err
}

// queryProjects runs a projects query and hydrates every row.
func queryProjects(q querier, query string, args ...any) ([]types.Project, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Project{}
	for rows.Next() {
		p, err := hydrateProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// queryStages runs a stages query and hydrates every row.
func queryStages(q querier, query string, args ...any) ([]types.Stage, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Stage{}
	for rows.Next() {
		s, err := hydrateStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// queryBudget runs a budget_items query and hydrates every row.
func queryBudget(q querier, query string, args ...any) ([]types.BudgetItem, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.BudgetItem{}
	for rows.Next() {
		b, err := hydrateBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
