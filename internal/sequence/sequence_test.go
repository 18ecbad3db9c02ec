package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// build returns stages named after names with the given weights, numbered
// 1..N, with IDs "s1".."sN".
func build(t *testing.T, weights ...float64) []types.Stage {
	t.Helper()
	var stages []types.Stage
	for i, w := range weights {
		var err error
		stages, err = Add(stages, types.Stage{
			StageID: fmt.Sprintf("s%d", i+1),
			Name:    fmt.Sprintf("Stage %d", i+1),
			Weight:  w,
		})
		require.NoError(t, err)
	}
	return stages
}

func ids(stages []types.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.StageID
	}
	return out
}

func ordinals(stages []types.Stage) []int {
	out := make([]int, len(stages))
	for i, s := range stages {
		out[i] = s.Ordinal
	}
	return out
}

func assertContiguous(t *testing.T, stages []types.Stage) {
	t.Helper()
	want := make([]int, len(stages))
	for i := range want {
		want[i] = i + 1
	}
	if diff := cmp.Diff(want, ordinals(stages)); diff != "" {
		t.Fatalf("ordinals not contiguous (-want +got):\n%s", diff)
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		initial []float64
		stage   types.Stage
		wantErr error
	}{
		{
			name:  "first stage gets ordinal 1",
			stage: types.Stage{Name: "Persiapan", Weight: 10},
		},
		{
			name:    "appends after existing stages",
			initial: []float64{30, 30},
			stage:   types.Stage{Name: "Pelaksanaan", Weight: 40},
		},
		{
			name:    "empty name rejected",
			initial: []float64{10},
			stage:   types.Stage{Name: "", Weight: 10},
			wantErr: types.ErrInvalidName,
		},
		{
			name:    "whitespace name rejected",
			initial: []float64{10},
			stage:   types.Stage{Name: "  \t", Weight: 10},
			wantErr: types.ErrInvalidName,
		},
		{
			name:    "zero weight rejected",
			initial: []float64{10},
			stage:   types.Stage{Name: "Survey", Weight: 0},
			wantErr: types.ErrInvalidWeight,
		},
		{
			name:    "negative weight rejected",
			initial: []float64{10},
			stage:   types.Stage{Name: "Survey", Weight: -1},
			wantErr: types.ErrInvalidWeight,
		},
		{
			name:    "total over 100 rejected",
			initial: []float64{60, 30},
			stage:   types.Stage{Name: "Survey", Weight: 10.5},
			wantErr: types.ErrWeightExceeded,
		},
		{
			name:    "total exactly 100 accepted",
			initial: []float64{60, 30},
			stage:   types.Stage{Name: "Survey", Weight: 10},
		},
		{
			name:    "rounding tolerated",
			initial: []float64{33.3, 33.3},
			stage:   types.Stage{Name: "Survey", Weight: 33.4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := build(t, tt.initial...)
			snapshot := types.CloneStages(initial)

			got, err := Add(initial, tt.stage)

			assert.Equal(t, snapshot, initial, "input must not be mutated")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(initial)+1)
			added := got[len(got)-1]
			assert.Equal(t, len(got), added.Ordinal)
			assert.NotEmpty(t, added.StageID)
			assert.Equal(t, types.StatusPending, added.Status)
			assertContiguous(t, got)
		})
	}
}

func TestAddReportsRemainingAllowance(t *testing.T) {
	stages := build(t, 60, 30)

	_, err := Add(stages, types.Stage{Name: "Pelaporan", Weight: 25})

	var wee *types.WeightExceededError
	require.True(t, errors.As(err, &wee))
	assert.InDelta(t, 10, wee.Remaining, 1e-9)
	assert.Equal(t, 25.0, wee.Requested)
}

func TestAddRejectsOverflowFromInconsistentList(t *testing.T) {
	// Two stages at 60% and 50% already exceed the ceiling; adding a third
	// at 10% must be rejected and the list keeps its two stages.
	stages := []types.Stage{
		{StageID: "a", Name: "A", Weight: 60, Ordinal: 1},
		{StageID: "b", Name: "B", Weight: 50, Ordinal: 2},
	}

	got, err := Add(stages, types.Stage{Name: "C", Weight: 10})

	assert.ErrorIs(t, err, types.ErrWeightExceeded)
	assert.Nil(t, got)
	assert.Len(t, stages, 2)

	var wee *types.WeightExceededError
	require.True(t, errors.As(err, &wee))
	assert.Equal(t, 0.0, wee.Remaining)
}

func TestAddRejectsDuplicateID(t *testing.T) {
	stages := build(t, 10)
	_, err := Add(stages, types.Stage{StageID: "s1", Name: "Again", Weight: 5})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestAddSumNeverExceedsLimit(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var stages []types.Stage
	for i := 0; i < 200; i++ {
		w := float64(r.Intn(40)) - 5
		next, err := Add(stages, types.Stage{Name: fmt.Sprintf("S%d", i), Weight: w})
		if err == nil {
			stages = next
		}
		assert.LessOrEqual(t, TotalWeight(stages), types.MaxTotalWeight+types.WeightEpsilon)
		assertContiguous(t, stages)
	}
}

func TestEdit(t *testing.T) {
	t.Run("updates fields in place", func(t *testing.T) {
		stages := build(t, 10, 20, 30)

		got, err := Edit(stages, "s2", types.Stage{Name: "Desain", Weight: 25, Status: types.StatusProgress})

		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, ids(got))
		assert.Equal(t, "Desain", got[1].Name)
		assert.Equal(t, 25.0, got[1].Weight)
		assert.Equal(t, types.StatusProgress, got[1].Status)
		assert.Equal(t, "Stage 2", stages[1].Name, "input must not be mutated")
	})

	t.Run("weight check excludes the edited stage", func(t *testing.T) {
		stages := build(t, 50, 50)

		got, err := Edit(stages, "s2", types.Stage{Name: "B", Weight: 50})
		require.NoError(t, err)
		assert.InDelta(t, 100, TotalWeight(got), 1e-9)

		_, err = Edit(stages, "s2", types.Stage{Name: "B", Weight: 51})
		var wee *types.WeightExceededError
		require.True(t, errors.As(err, &wee))
		assert.InDelta(t, 50, wee.Remaining, 1e-9)
	})

	t.Run("ordinal 3 to 1 in four stages", func(t *testing.T) {
		stages := build(t, 10, 10, 10, 10)

		got, err := Edit(stages, "s3", types.Stage{Name: "Stage 3", Weight: 10, Ordinal: 1})

		require.NoError(t, err)
		assert.Equal(t, []string{"s3", "s1", "s2", "s4"}, ids(got))
		assertContiguous(t, got)
	})

	t.Run("ordinal 1 to 4 moves to the end", func(t *testing.T) {
		stages := build(t, 10, 10, 10, 10)

		got, err := Edit(stages, "s1", types.Stage{Name: "Stage 1", Weight: 10, Ordinal: 4})

		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s3", "s4", "s1"}, ids(got))
		assertContiguous(t, got)
	})

	t.Run("zero ordinal keeps position", func(t *testing.T) {
		stages := build(t, 10, 10, 10)

		got, err := Edit(stages, "s2", types.Stage{Name: "Renamed", Weight: 10})

		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2", "s3"}, ids(got))
	})

	errorCases := []struct {
		name    string
		id      string
		data    types.Stage
		wantErr error
	}{
		{"unknown id", "missing", types.Stage{Name: "X", Weight: 1}, types.ErrNotFound},
		{"empty name", "s1", types.Stage{Name: "", Weight: 1}, types.ErrInvalidName},
		{"zero weight", "s1", types.Stage{Name: "X", Weight: 0}, types.ErrInvalidWeight},
		{"ordinal above N", "s1", types.Stage{Name: "X", Weight: 1, Ordinal: 4}, types.ErrOrdinalOutOfRange},
		{"negative ordinal", "s1", types.Stage{Name: "X", Weight: 1, Ordinal: -1}, types.ErrOrdinalOutOfRange},
		{"bad status", "s1", types.Stage{Name: "X", Weight: 1, Status: "paused"}, types.ErrInvalidStatus},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			stages := build(t, 10, 10, 10)
			snapshot := types.CloneStages(stages)

			got, err := Edit(stages, tt.id, tt.data)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
			assert.Equal(t, snapshot, stages)
		})
	}
}

func TestMove(t *testing.T) {
	t.Run("move up swaps with predecessor", func(t *testing.T) {
		stages := build(t, 10, 10, 10)
		got, changed, err := MoveUp(stages, "s3")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"s1", "s3", "s2"}, ids(got))
		assertContiguous(t, got)
	})

	t.Run("move down swaps with successor", func(t *testing.T) {
		stages := build(t, 10, 10, 10)
		got, changed, err := MoveDown(stages, "s1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"s2", "s1", "s3"}, ids(got))
		assertContiguous(t, got)
	})

	t.Run("move up on first is a no-op", func(t *testing.T) {
		stages := build(t, 10, 10, 10)
		got, changed, err := MoveUp(stages, "s1")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, stages, got)
	})

	t.Run("move down on last is a no-op", func(t *testing.T) {
		stages := build(t, 10, 10, 10)
		got, changed, err := MoveDown(stages, "s3")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, stages, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := MoveUp(build(t, 10), "nope")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRemove(t *testing.T) {
	stages := build(t, 10, 20, 30, 40)

	got, err := Remove(stages, "s2")

	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3", "s4"}, ids(got))
	assert.Equal(t, []int{1, 2, 3}, ordinals(got))
	assert.Len(t, stages, 4, "input must not be mutated")

	_, err = Remove(got, "s2")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestOrdinalsStayContiguousUnderRandomOps(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	var stages []types.Stage
	for i := 0; i < 500; i++ {
		var next []types.Stage
		var err error
		pick := func() string {
			if len(stages) == 0 {
				return "none"
			}
			return stages[r.Intn(len(stages))].StageID
		}
		switch r.Intn(5) {
		case 0:
			next, err = Add(stages, types.Stage{Name: "S", Weight: float64(r.Intn(15) + 1)})
		case 1:
			next, err = Remove(stages, pick())
		case 2:
			next, _, err = MoveUp(stages, pick())
		case 3:
			next, _, err = MoveDown(stages, pick())
		case 4:
			id := pick()
			s, _ := Find(stages, id)
			next, err = Edit(stages, id, types.Stage{Name: "E", Weight: s.Weight, Ordinal: r.Intn(len(stages)+1) + 1})
		}
		if err == nil {
			stages = next
		}
		require.NoError(t, Check(stages))
	}
}

func TestNormalize(t *testing.T) {
	stages := []types.Stage{
		{StageID: "c", Ordinal: 7},
		{StageID: "a", Ordinal: 2},
		{StageID: "b", Ordinal: 2},
	}

	got := Normalize(stages)

	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, []int{1, 2, 3}, ordinals(got))
	assert.Equal(t, 7, stages[0].Ordinal, "input must not be mutated")
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(nil))
	assert.NoError(t, Check(build(t, 50, 50)))

	tests := []struct {
		name    string
		stages  []types.Stage
		wantErr error
	}{
		{"gap", []types.Stage{{StageID: "a", Name: "A", Ordinal: 2, Weight: 1}}, types.ErrOrdinalOutOfRange},
		{"over limit", []types.Stage{
			{StageID: "a", Name: "A", Ordinal: 1, Weight: 60},
			{StageID: "b", Name: "B", Ordinal: 2, Weight: 50},
		}, types.ErrWeightExceeded},
		{"blank name", []types.Stage{{StageID: "a", Name: " ", Ordinal: 1, Weight: 10}}, types.ErrInvalidName},
		{"negative weight", []types.Stage{{StageID: "a", Name: "A", Ordinal: 1, Weight: -20}}, types.ErrInvalidWeight},
		{"zero weight", []types.Stage{{StageID: "a", Name: "A", Ordinal: 1}}, types.ErrInvalidWeight},
		{"unknown status", []types.Stage{{StageID: "a", Name: "A", Ordinal: 1, Weight: 5, Status: "paused"}}, types.ErrInvalidStatus},
		{"missing id", []types.Stage{{Name: "A", Ordinal: 1, Weight: 5}}, types.ErrInvalidID},
		{"duplicate id", []types.Stage{
			{StageID: "a", Name: "A", Ordinal: 1, Weight: 5},
			{StageID: "a", Name: "B", Ordinal: 2, Weight: 5},
		}, types.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Check(tt.stages), tt.wantErr)
		})
	}
}
