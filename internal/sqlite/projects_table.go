package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

var _ types.Table = (*projectsTable)(nil)

// projectsTable implements types.Table for *types.Project values.
type projectsTable struct {
	backend *Backend
}

// Get retrieves a project by ID.
func (pt *projectsTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	pt.backend.mu.RLock()
	defer pt.backend.mu.RUnlock()
	if !pt.backend.attached {
		return nil, types.ErrDetached
	}

	p, err := hydrateProject(pt.backend.db.QueryRow(
		"SELECT "+projectColumns+" FROM projects WHERE project_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return p, nil
}

// Set creates a project when id is empty, generating a UUID v7, and
// otherwise updates it. An update keeps the original creation time.
func (pt *projectsTable) Set(id string, data any) (string, error) {
	p, ok := data.(*types.Project)
	if !ok || p == nil {
		return "", types.ErrInvalidData
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return "", err
	}

	b := pt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrDetached
	}

	now := time.Now().UTC()
	if id == "" {
		id = newUUID()
		p.CreatedAt = now
	} else {
		var created string
		err := b.db.QueryRow("SELECT created_at FROM projects WHERE project_id = ?", id).Scan(&created)
		switch {
		case err == nil:
			if p.CreatedAt, err = parseTime(created); err != nil {
				return "", fmt.Errorf("parsing created_at: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			p.CreatedAt = now
		default:
			return "", fmt.Errorf("checking project existence: %w", err)
		}
	}
	p.ProjectID = id
	p.UpdatedAt = now

	if err := upsertProject(b.db, p); err != nil {
		return "", fmt.Errorf("persisting project: %w", err)
	}
	if err := b.persist(types.TableProjects); err != nil {
		return "", fmt.Errorf("persisting projects.jsonl: %w", err)
	}
	return id, nil
}

// Delete removes a project together with its stages and budget items.
func (pt *projectsTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := pt.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	if err := b.requireProject(b.db, id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM budget_items WHERE project_id = ?",
		"DELETE FROM stages WHERE project_id = ?",
		"DELETE FROM projects WHERE project_id = ?",
	} {
		if _, err := tx.Exec(stmt, id); err != nil {
			return fmt.Errorf("deleting project %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing project deletion: %w", err)
	}

	for _, table := range types.StandardTableNames {
		if err := b.persist(table); err != nil {
			return fmt.Errorf("persisting %s: %w", table, err)
		}
	}
	return nil
}

// Fetch returns projects newest first. Filter keys: q (substring of name or
// client), limit, offset.
func (pt *projectsTable) Fetch(filter types.Filter) ([]any, error) {
	var where whereClause
	if err := where.contains(filter, "q", "name", "client"); err != nil {
		return nil, err
	}
	page, err := pageClause(filter)
	if err != nil {
		return nil, err
	}

	pt.backend.mu.RLock()
	defer pt.backend.mu.RUnlock()
	if !pt.backend.attached {
		return nil, types.ErrDetached
	}

	projects, err := queryProjects(pt.backend.db,
		"SELECT "+projectColumns+" FROM projects"+where.String()+" ORDER BY created_at DESC, project_id"+page,
		where.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	return toAny(projects), nil
}
