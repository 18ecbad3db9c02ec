// Package session holds the stage and budget lists of one project while it is
// being edited. Each mutating call validates through package sequence or
// package allocation, hands the whole new list to an OnUpdate callback, and
// reports a message to a notify.Sink. Methods return true on success so a
// caller can decide whether to close the form it came from.
//
// Editors are owned by one session and are not safe for concurrent use.
package session

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/proyek/internal/notify"
	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// StageConfig configures a StageEditor.
type StageConfig struct {
	ProjectID string
	Stages    []types.Stage

	// OnUpdate receives the full new list after every successful mutation.
	// When it returns an error the editor keeps its previous list.
	OnUpdate func([]types.Stage) error

	// OnRemove runs after a stage has been removed and persisted. An error
	// makes Remove report failure even though the stage list was saved.
	OnRemove func(removed types.Stage) error

	Notify notify.Sink
	Logger *zap.Logger
}

// StageEditor sequences the stages of one project.
type StageEditor struct {
	projectID string
	stages    []types.Stage
	onUpdate  func([]types.Stage) error
	onRemove  func(types.Stage) error
	notify    notify.Sink
	logger    *zap.Logger
	lastErr   error
}

// NewStageEditor returns an editor over a normalized copy of cfg.Stages.
func NewStageEditor(cfg StageConfig) *StageEditor {
	e := &StageEditor{
		projectID: cfg.ProjectID,
		stages:    sequence.Normalize(cfg.Stages),
		onUpdate:  cfg.OnUpdate,
		onRemove:  cfg.OnRemove,
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

// Stages returns a copy of the current list in ordinal order.
func (e *StageEditor) Stages() []types.Stage {
	return types.CloneStages(e.stages)
}

// Remaining returns the weight that can still be allocated.
func (e *StageEditor) Remaining() float64 {
	return sequence.Remaining(e.stages, "")
}

// LastErr returns the error behind the most recent false result, or nil
// after a success.
func (e *StageEditor) LastErr() error {
	return e.lastErr
}

// Add appends a stage.
func (e *StageEditor) Add(stage types.Stage) bool {
	stage.ProjectID = e.projectID
	next, err := sequence.Add(e.stages, stage)
	if err != nil {
		return e.fail("add stage", err)
	}
	added := next[len(next)-1]
	return e.commit(next, fmt.Sprintf("stage %q added as #%d (%s%% remaining)",
		added.Name, added.Ordinal, types.FormatWeight(sequence.Remaining(next, ""))))
}

// Edit updates the stage with id, moving it when data.Ordinal differs.
func (e *StageEditor) Edit(id string, data types.Stage) bool {
	next, err := sequence.Edit(e.stages, id, data)
	if err != nil {
		return e.fail("edit stage", err)
	}
	s, _ := sequence.Find(next, id)
	return e.commit(next, fmt.Sprintf("stage %q updated (#%d)", s.Name, s.Ordinal))
}

// MoveUp swaps the stage with its predecessor. A stage already first is left
// alone: the call succeeds without an update or a message.
func (e *StageEditor) MoveUp(id string) bool {
	return e.move(id, sequence.MoveUp, "up")
}

// MoveDown swaps the stage with its successor. A stage already last is left
// alone: the call succeeds without an update or a message.
func (e *StageEditor) MoveDown(id string) bool {
	return e.move(id, sequence.MoveDown, "down")
}

func (e *StageEditor) move(id string, fn func([]types.Stage, string) ([]types.Stage, bool, error), dir string) bool {
	next, changed, err := fn(e.stages, id)
	if err != nil {
		return e.fail("move stage "+dir, err)
	}
	if !changed {
		e.lastErr = nil
		e.logger.Debug("move at boundary", zap.String("stage_id", id), zap.String("direction", dir))
		return true
	}
	s, _ := sequence.Find(next, id)
	return e.commit(next, fmt.Sprintf("stage %q moved %s to #%d", s.Name, dir, s.Ordinal))
}

// Remove deletes the stage with id and renumbers the rest.
func (e *StageEditor) Remove(id string) bool {
	removed, ok := sequence.Find(e.stages, id)
	next, err := sequence.Remove(e.stages, id)
	if err != nil {
		return e.fail("remove stage", err)
	}
	if !e.commit(next, fmt.Sprintf("stage %q removed", removed.Name)) {
		return false
	}
	if ok && e.onRemove != nil {
		if err := e.onRemove(removed); err != nil {
			return e.fail("remove stage", fmt.Errorf("stage %q removed, but not its budget items: %w", removed.Name, err))
		}
	}
	return true
}

func (e *StageEditor) commit(next []types.Stage, msg string) bool {
	if e.onUpdate != nil {
		if err := e.onUpdate(types.CloneStages(next)); err != nil {
			return e.fail("save stages", err)
		}
	}
	e.stages = next
	e.lastErr = nil
	e.logger.Debug("stages updated", zap.Int("count", len(next)))
	e.notify.Success(msg)
	return true
}

func (e *StageEditor) fail(op string, err error) bool {
	e.lastErr = err
	e.logger.Debug(op+" rejected", zap.Error(err))
	e.notify.Error(describe(err))
	return false
}

// describe turns validation errors into the message shown to the user.
func describe(err error) string {
	var wee *types.WeightExceededError
	switch {
	case errors.As(err, &wee):
		return fmt.Sprintf("total weight would exceed 100%%; at most %s%% can still be allocated",
			types.FormatWeight(wee.Remaining))
	case errors.Is(err, types.ErrNotFound):
		return "item not found"
	default:
		return err.Error()
	}
}
