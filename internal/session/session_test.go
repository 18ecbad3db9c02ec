package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/proyek/internal/notify"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// memStore is an in-memory ListStore keyed by project ID.
type memStore struct {
	mu       sync.Mutex
	stages   map[string][]types.Stage
	budget   map[string][]types.BudgetItem
	failNext error
	writes   int

	// failBudget fails the next budget write only.
	failBudget error
}

func newMemStore() *memStore {
	return &memStore{
		stages: make(map[string][]types.Stage),
		budget: make(map[string][]types.BudgetItem),
	}
}

func (m *memStore) LoadStages(projectID string) ([]types.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CloneStages(m.stages[projectID]), nil
}

func (m *memStore) ReplaceStages(projectID string, stages []types.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.stages[projectID] = types.CloneStages(stages)
	return nil
}

func (m *memStore) LoadBudget(projectID string) ([]types.BudgetItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.CloneBudget(m.budget[projectID]), nil
}

func (m *memStore) ReplaceBudget(projectID string, items []types.BudgetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failBudget; err != nil {
		m.failBudget = nil
		return err
	}
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.budget[projectID] = types.CloneBudget(items)
	return nil
}

func (m *memStore) takeFailure() error {
	m.writes++
	err := m.failNext
	m.failNext = nil
	return err
}

func newEditor(t *testing.T) (*StageEditor, *[][]types.Stage, *notify.Recorder) {
	t.Helper()
	var updates [][]types.Stage
	rec := &notify.Recorder{}
	e := NewStageEditor(StageConfig{
		ProjectID: "p1",
		OnUpdate: func(next []types.Stage) error {
			updates = append(updates, next)
			return nil
		},
		Notify: rec,
	})
	return e, &updates, rec
}

func TestStageEditorAdd(t *testing.T) {
	e, updates, rec := newEditor(t)

	require.True(t, e.Add(types.Stage{Name: "Persiapan", Weight: 60}))
	require.True(t, e.Add(types.Stage{Name: "Pelaksanaan", Weight: 30}))

	assert.Len(t, *updates, 2)
	assert.Equal(t, "p1", e.Stages()[0].ProjectID)
	assert.True(t, rec.Last().OK)
	assert.Contains(t, rec.Last().Text, `"Pelaksanaan" added as #2`)
	assert.Contains(t, rec.Last().Text, "10% remaining")
	assert.NoError(t, e.LastErr())

	assert.False(t, e.Add(types.Stage{Name: "Pelaporan", Weight: 20}))
	assert.Len(t, *updates, 2, "rejected add must not call OnUpdate")
	assert.Len(t, e.Stages(), 2)
	assert.False(t, rec.Last().OK)
	assert.Contains(t, rec.Last().Text, "at most 10% can still be allocated")
	assert.ErrorIs(t, e.LastErr(), types.ErrWeightExceeded)

	assert.False(t, e.Add(types.Stage{Name: "Nol", Weight: 0}))
	assert.ErrorIs(t, e.LastErr(), types.ErrInvalidWeight)
	assert.Len(t, e.Stages(), 2)
}

func TestStageEditorMoveAtBoundary(t *testing.T) {
	e, updates, rec := newEditor(t)
	require.True(t, e.Add(types.Stage{StageID: "a", Name: "A", Weight: 10}))
	require.True(t, e.Add(types.Stage{StageID: "b", Name: "B", Weight: 10}))
	rec.Reset()
	before := len(*updates)

	assert.True(t, e.MoveUp("a"))
	assert.True(t, e.MoveDown("b"))
	assert.Len(t, *updates, before, "no-op moves must not call OnUpdate")
	assert.Empty(t, rec.Messages())

	assert.True(t, e.MoveDown("a"))
	stages := e.Stages()
	assert.Equal(t, "b", stages[0].StageID)
	assert.Equal(t, 1, stages[0].Ordinal)
	assert.Equal(t, "a", stages[1].StageID)
	assert.Equal(t, 2, stages[1].Ordinal)
	assert.Contains(t, rec.Last().Text, `"A" moved down to #2`)

	assert.False(t, e.MoveUp("zzz"))
	assert.Equal(t, "item not found", rec.Last().Text)
}

func TestStageEditorEditAndRemove(t *testing.T) {
	e, _, _ := newEditor(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.True(t, e.Add(types.Stage{StageID: id, Name: id, Weight: 10}))
	}

	require.True(t, e.Edit("c", types.Stage{Name: "c", Weight: 10, Ordinal: 1}))
	assert.Equal(t, []string{"c", "a", "b", "d"}, stageIDs(e.Stages()))

	assert.False(t, e.Edit("c", types.Stage{Name: "c", Weight: 10, Ordinal: 9}))
	assert.ErrorIs(t, e.LastErr(), types.ErrOrdinalOutOfRange)

	require.True(t, e.Remove("a"))
	stages := e.Stages()
	assert.Equal(t, []string{"c", "b", "d"}, stageIDs(stages))
	assert.Equal(t, []int{1, 2, 3}, []int{stages[0].Ordinal, stages[1].Ordinal, stages[2].Ordinal})
}

func TestStageEditorFailingCallbackKeepsState(t *testing.T) {
	boom := errors.New("disk full")
	fail := false
	rec := &notify.Recorder{}
	e := NewStageEditor(StageConfig{
		ProjectID: "p1",
		OnUpdate: func([]types.Stage) error {
			if fail {
				return boom
			}
			return nil
		},
		Notify: rec,
	})
	require.True(t, e.Add(types.Stage{StageID: "a", Name: "A", Weight: 10}))

	fail = true
	assert.False(t, e.Add(types.Stage{Name: "B", Weight: 10}))
	assert.ErrorIs(t, e.LastErr(), boom)
	assert.Len(t, e.Stages(), 1)
	assert.Equal(t, "disk full", rec.Last().Text)

	assert.False(t, e.Remove("a"))
	assert.Len(t, e.Stages(), 1)
}

func TestStageEditorNormalizesInitialList(t *testing.T) {
	e := NewStageEditor(StageConfig{Stages: []types.Stage{
		{StageID: "b", Ordinal: 5, Name: "B", Weight: 1},
		{StageID: "a", Ordinal: 2, Name: "A", Weight: 1},
	}})

	stages := e.Stages()
	assert.Equal(t, []string{"a", "b"}, stageIDs(stages))
	assert.Equal(t, 2, stages[1].Ordinal)
	assert.InDelta(t, 98, e.Remaining(), 1e-9)
}

type fixedStages []types.Stage

func (f fixedStages) Stages() []types.Stage { return f }

func TestBudgetEditor(t *testing.T) {
	var updates [][]types.BudgetItem
	rec := &notify.Recorder{}
	e := NewBudgetEditor(BudgetConfig{
		ProjectID: "p1",
		Stages: fixedStages{
			{StageID: "s1", Name: "Survey", Ordinal: 1, Weight: 40},
			{StageID: "s2", Name: "Laporan", Ordinal: 2, Weight: 60},
		},
		OnUpdate: func(next []types.BudgetItem) error {
			updates = append(updates, next)
			return nil
		},
		Notify: rec,
	})

	require.True(t, e.Add(types.BudgetItem{BudgetID: "b1", Category: "Cetak", StageID: "s2", Amount: 500}))
	require.True(t, e.Add(types.BudgetItem{BudgetID: "b2", Category: "Transport", StageID: "s1", Amount: 200}))
	assert.Len(t, updates, 2)
	assert.Equal(t, "p1", e.Items()[0].ProjectID)
	assert.Equal(t, "b2", e.Items()[0].BudgetID, "items are ordered by stage ordinal")

	require.True(t, e.Edit("b1", types.BudgetItem{Category: "Cetak", StageID: "s2", Amount: 750, Realized: 100}))
	assert.Equal(t, int64(750), e.Items()[1].Amount)
	assert.True(t, rec.Last().OK)

	assert.False(t, e.Edit("b1", types.BudgetItem{Category: "Cetak", StageID: "s9", Amount: 1}))
	assert.ErrorIs(t, e.LastErr(), types.ErrStageNotFound)
	assert.False(t, rec.Last().OK)
	assert.False(t, e.Delete("missing"))
	assert.ErrorIs(t, e.LastErr(), types.ErrNotFound)
	assert.Len(t, updates, 3, "rejections never reach OnUpdate")

	require.True(t, e.Delete("b2"))
	assert.NoError(t, e.LastErr())
	require.Len(t, e.Items(), 1)
	assert.Equal(t, "b1", e.Items()[0].BudgetID)
}

func TestBudgetEditorFailingCallbackKeepsState(t *testing.T) {
	e := NewBudgetEditor(BudgetConfig{
		ProjectID: "p1",
		Stages:    fixedStages{{StageID: "s1", Name: "Survey", Ordinal: 1, Weight: 40}},
		OnUpdate:  func([]types.BudgetItem) error { return errors.New("disk full") },
	})
	assert.False(t, e.Add(types.BudgetItem{Category: "Honor", StageID: "s1", Amount: 10}))
	assert.EqualError(t, e.LastErr(), "disk full")
	assert.Empty(t, e.Items())
}

func TestWorkspace(t *testing.T) {
	store := newMemStore()
	rec := &notify.Recorder{}

	ws, err := Open(store, "p1", rec, nil)
	require.NoError(t, err)

	require.True(t, ws.Stages.Add(types.Stage{StageID: "s1", Name: "Survey", Weight: 30}))
	require.True(t, ws.Stages.Add(types.Stage{StageID: "s2", Name: "Analisis", Weight: 70}))
	require.True(t, ws.Budget.Add(types.BudgetItem{BudgetID: "b1", Category: "Transport", StageID: "s1", Amount: 100}))
	require.True(t, ws.Budget.Add(types.BudgetItem{BudgetID: "b2", Category: "Honor", StageID: "s2", Amount: 300}))

	assert.False(t, ws.Budget.Add(types.BudgetItem{Category: "Honor", StageID: "s9"}))
	assert.ErrorIs(t, ws.Budget.LastErr(), types.ErrStageNotFound)
	assert.False(t, ws.Budget.Add(types.BudgetItem{Category: "", StageID: "s1"}))
	assert.ErrorIs(t, ws.Budget.LastErr(), types.ErrInvalidCategory)

	assert.Len(t, store.stages["p1"], 2)
	assert.Len(t, store.budget["p1"], 2)

	require.True(t, ws.Stages.Remove("s1"))
	assert.Len(t, store.stages["p1"], 1)
	require.Len(t, store.budget["p1"], 1, "budget items of removed stage are dropped")
	assert.Equal(t, "b2", store.budget["p1"][0].BudgetID)
	assert.Equal(t, 1, store.stages["p1"][0].Ordinal)

	reopened, err := Open(store, "p1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, reopened.Stages.Stages(), 1)
	assert.Len(t, reopened.Budget.Items(), 1)
}

func TestWorkspacePersistFailure(t *testing.T) {
	store := newMemStore()
	ws, err := Open(store, "p1", nil, nil)
	require.NoError(t, err)

	store.failNext = errors.New("locked")
	assert.False(t, ws.Stages.Add(types.Stage{Name: "Survey", Weight: 10}))
	assert.Empty(t, ws.Stages.Stages())
	assert.Empty(t, store.stages["p1"])
}

func TestWorkspaceRemoveReportsBudgetFailure(t *testing.T) {
	store := newMemStore()
	rec := &notify.Recorder{}
	ws, err := Open(store, "p1", rec, nil)
	require.NoError(t, err)

	require.True(t, ws.Stages.Add(types.Stage{StageID: "s1", Name: "Survey", Weight: 30}))
	require.True(t, ws.Stages.Add(types.Stage{StageID: "s2", Name: "Laporan", Weight: 30}))
	require.True(t, ws.Budget.Add(types.BudgetItem{BudgetID: "b1", Category: "Transport", StageID: "s1", Amount: 100}))
	require.True(t, ws.Budget.Add(types.BudgetItem{BudgetID: "b2", Category: "Cetak", StageID: "s2", Amount: 200}))

	store.failBudget = errors.New("locked")
	assert.False(t, ws.Stages.Remove("s1"))
	assert.ErrorContains(t, ws.Stages.LastErr(), "locked")
	assert.False(t, rec.Last().OK)
	assert.Len(t, ws.Stages.Stages(), 1, "the stage list was saved")

	require.True(t, ws.Budget.Edit("b2", types.BudgetItem{Category: "Cetak", StageID: "s2", Amount: 250}))
	require.Len(t, store.budget["p1"], 1, "the next write drops the stale item")
	assert.Equal(t, "b2", store.budget["p1"][0].BudgetID)
	assert.Len(t, ws.Budget.Items(), 1)
}

func stageIDs(stages []types.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.StageID
	}
	return out
}
