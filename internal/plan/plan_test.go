package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/proyek/internal/session"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

const samplePlan = `
project: Kajian AMDAL Bendungan
client: BBWS Serayu Opak
stages:
  - name: Persiapan
    weight: 15
    status: done
    start: 2026-01-05
    end: 2026-01-20
    budget:
      - category: Transport
        amount: 2500000
        realized: 2500000
  - name: Survei lapangan
    weight: 45
    budget:
      - category: Tenaga ahli
        amount: 40000000
      - category: Sewa alat
        amount: 7500000
  - name: Pelaporan
    weight: 40
`

// listStore keeps lists in memory for Apply tests.
type listStore struct {
	stages []types.Stage
	items  []types.BudgetItem
}

func (s *listStore) LoadStages(string) ([]types.Stage, error)      { return s.stages, nil }
func (s *listStore) LoadBudget(string) ([]types.BudgetItem, error) { return s.items, nil }
func (s *listStore) ReplaceStages(_ string, st []types.Stage) error {
	s.stages = st
	return nil
}
func (s *listStore) ReplaceBudget(_ string, it []types.BudgetItem) error {
	s.items = it
	return nil
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	assert.Equal(t, "Kajian AMDAL Bendungan", p.Project)
	require.Len(t, p.Stages, 3)
	assert.Equal(t, "2026-01-05", p.Stages[0].Start)
	assert.Len(t, p.Stages[1].Budget, 2)
	assert.Equal(t, int64(40000000), p.Stages[1].Budget[0].Amount)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse([]byte("  \n"))
	assert.Error(t, err)

	_, err = Parse([]byte("stages: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, p.Stages, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	p, err := Load(strings.NewReader(samplePlan))
	require.NoError(t, err)

	store := &listStore{}
	ws, err := session.Open(store, "p1", nil, nil)
	require.NoError(t, err)

	require.NoError(t, Apply(ws, p))

	require.Len(t, store.stages, 3)
	assert.Equal(t, "Survei lapangan", store.stages[1].Name)
	assert.Equal(t, 2, store.stages[1].Ordinal)
	assert.Equal(t, types.StatusDone, store.stages[0].Status)
	assert.Equal(t, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), store.stages[0].EndDate)
	require.Len(t, store.items, 3)
	assert.Equal(t, store.stages[1].StageID, store.items[1].StageID)
}

func TestApplyRejectsOverflowBeforeWriting(t *testing.T) {
	p, err := Parse([]byte(samplePlan))
	require.NoError(t, err)

	store := &listStore{}
	ws, err := session.Open(store, "p1", nil, nil)
	require.NoError(t, err)
	require.True(t, ws.Stages.Add(types.Stage{Name: "Existing", Weight: 10}))

	err = Apply(ws, p)

	assert.ErrorIs(t, err, types.ErrWeightExceeded)
	assert.Contains(t, err.Error(), "stage 3 (Pelaporan)")
	assert.Len(t, store.stages, 1, "nothing from the plan is applied")
}

func TestCheckRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr error
	}{
		{"zero weight", Plan{Stages: []Stage{{Name: "A"}}}, types.ErrInvalidWeight},
		{"empty name", Plan{Stages: []Stage{{Weight: 1}}}, types.ErrInvalidName},
		{"empty category", Plan{Stages: []Stage{{Name: "A", Weight: 1, Budget: []Line{{Amount: 1}}}}}, types.ErrInvalidCategory},
		{"date range", Plan{Stages: []Stage{{Name: "A", Weight: 1, Start: "2026-02-01", End: "2026-01-01"}}}, types.ErrInvalidDateRange},
		{"negative amount", Plan{Stages: []Stage{{Name: "A", Weight: 1, Budget: []Line{{Category: "Honor", Amount: -5000000}}}}}, types.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Check(&tt.plan, nil), tt.wantErr)
		})
	}

	err := Check(&Plan{Stages: []Stage{{Name: "A", Weight: 1, Start: "05/01/2026"}}}, nil)
	assert.ErrorContains(t, err, "want YYYY-MM-DD")
}

func TestWriteRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	stages := []types.Stage{
		{StageID: "s1", Ordinal: 1, Name: "Desain", Weight: 30, Status: types.StatusProgress, StartDate: start},
		{StageID: "s2", Ordinal: 2, Name: "Konstruksi", Weight: 70, Status: types.StatusPending},
	}
	items := []types.BudgetItem{{StageID: "s2", Category: "Material", Amount: 900}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FromProject(types.Project{Name: "Gedung"}, stages, items)))

	out := buf.String()
	assert.Contains(t, out, "project: Gedung")
	assert.Contains(t, out, "2026-03-02")

	back, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, back.Stages, 2)
	assert.Equal(t, "2026-03-02", back.Stages[0].Start)
	require.Len(t, back.Stages[1].Budget, 1)
	assert.Equal(t, int64(900), back.Stages[1].Budget[0].Amount)
	assert.Empty(t, back.Stages[0].Budget)
}
