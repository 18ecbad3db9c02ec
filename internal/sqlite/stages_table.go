package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

var _ types.Table = (*stagesTable)(nil)

// stagesTable implements types.Table for *types.Stage values. Writes run
// through the sequencer against the stage's whole project list, so ordinals
// and the weight ceiling hold for table callers too.
type stagesTable struct {
	backend *Backend
}

// Get retrieves a stage by ID.
func (st *stagesTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	st.backend.mu.RLock()
	defer st.backend.mu.RUnlock()
	if !st.backend.attached {
		return nil, types.ErrDetached
	}
	return st.get(id)
}

func (st *stagesTable) get(id string) (*types.Stage, error) {
	s, err := hydrateStage(st.backend.db.QueryRow(
		"SELECT "+stageColumns+" FROM stages WHERE stage_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting stage %s: %w", id, err)
	}
	return s, nil
}

// Set appends a stage to its project when id is empty or unknown, and
// otherwise edits it in place. data is updated with the stored stage.
func (st *stagesTable) Set(id string, data any) (string, error) {
	stage, ok := data.(*types.Stage)
	if !ok || stage == nil {
		return "", types.ErrInvalidData
	}

	b := st.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return "", types.ErrDetached
	}

	projectID := stage.ProjectID
	var existing *types.Stage
	if id != "" {
		s, err := st.get(id)
		switch {
		case err == nil:
			existing = s
			projectID = s.ProjectID
		case !errors.Is(err, types.ErrNotFound):
			return "", err
		}
	}
	if err := b.requireProject(b.db, projectID); err != nil {
		return "", err
	}
	list, err := loadStages(b.db, projectID)
	if err != nil {
		return "", err
	}

	var next []types.Stage
	if existing != nil {
		next, err = sequence.Edit(list, id, *stage)
	} else {
		add := *stage
		add.StageID = id
		add.ProjectID = projectID
		next, err = sequence.Add(list, add)
		if err == nil {
			id = next[len(next)-1].StageID
		}
	}
	if err != nil {
		return "", err
	}
	if err := b.replaceStages(projectID, next); err != nil {
		return "", err
	}

	if stored, ok := sequence.Find(next, id); ok {
		stored.ProjectID = projectID
		*stage = stored
	}
	return id, nil
}

// Delete removes a stage, renumbers the rest of its project, and drops the
// budget items that referenced it.
func (st *stagesTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	b := st.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrDetached
	}

	s, err := st.get(id)
	if err != nil {
		return err
	}
	list, err := loadStages(b.db, s.ProjectID)
	if err != nil {
		return err
	}
	next, err := sequence.Remove(list, id)
	if err != nil {
		return err
	}
	return b.replaceStages(s.ProjectID, next)
}

// Fetch returns stages ordered by project and ordinal. Filter keys:
// project_id, status, q (substring of name), limit, offset.
func (st *stagesTable) Fetch(filter types.Filter) ([]any, error) {
	var where whereClause
	if err := where.equals(filter, "project_id", "project_id"); err != nil {
		return nil, err
	}
	if v, ok := filter["status"]; ok {
		if s, ok := v.(string); !ok || !types.IsValidStatus(s) {
			return nil, types.ErrInvalidFilter
		}
	}
	if err := where.equals(filter, "status", "status"); err != nil {
		return nil, err
	}
	if err := where.contains(filter, "q", "name"); err != nil {
		return nil, err
	}
	page, err := pageClause(filter)
	if err != nil {
		return nil, err
	}

	st.backend.mu.RLock()
	defer st.backend.mu.RUnlock()
	if !st.backend.attached {
		return nil, types.ErrDetached
	}

	stages, err := queryStages(st.backend.db,
		"SELECT "+stageColumns+" FROM stages"+where.String()+" ORDER BY project_id, ordinal"+page,
		where.args...)
	if err != nil {
		return nil, fmt.Errorf("fetching stages: %w", err)
	}
	return toAny(stages), nil
}
