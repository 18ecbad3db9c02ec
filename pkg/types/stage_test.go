package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStageValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		stage   Stage
		wantErr error
	}{
		{
			name:  "valid stage",
			stage: Stage{Name: "Survey", Weight: 20},
		},
		{
			name:    "blank name rejected",
			stage:   Stage{Name: "   ", Weight: 20},
			wantErr: ErrInvalidName,
		},
		{
			name:    "zero weight rejected",
			stage:   Stage{Name: "Survey", Weight: 0},
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "negative weight rejected",
			stage:   Stage{Name: "Survey", Weight: -5},
			wantErr: ErrInvalidWeight,
		},
		{
			name:    "unknown status rejected",
			stage:   Stage{Name: "Survey", Weight: 5, Status: "blocked"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:  "known status accepted",
			stage: Stage{Name: "Survey", Weight: 5, Status: StatusDone},
		},
		{
			name:    "end before start rejected",
			stage:   Stage{Name: "Survey", Weight: 5, StartDate: start, EndDate: start.AddDate(0, 0, -1)},
			wantErr: ErrInvalidDateRange,
		},
		{
			name:  "open ended range accepted",
			stage: Stage{Name: "Survey", Weight: 5, StartDate: start},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stage.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStageSetStatus(t *testing.T) {
	s := &Stage{Name: "Design", Weight: 10, Status: StatusPending, UpdatedAt: time.Now().Add(-time.Hour)}
	before := s.UpdatedAt

	assert.NoError(t, s.SetStatus(StatusProgress))
	assert.Equal(t, StatusProgress, s.Status)
	assert.True(t, s.UpdatedAt.After(before), "UpdatedAt should advance")

	assert.ErrorIs(t, s.SetStatus("archived"), ErrInvalidStatus)
	assert.Equal(t, StatusProgress, s.Status, "status should not change on error")
}

func TestWeightExceededError(t *testing.T) {
	err := error(&WeightExceededError{Requested: 10, Remaining: 2.5})

	assert.True(t, errors.Is(err, ErrWeightExceeded))
	assert.Contains(t, err.Error(), "requested 10%")
	assert.Contains(t, err.Error(), "remaining 2.5%")

	var wee *WeightExceededError
	assert.True(t, errors.As(err, &wee))
	assert.Equal(t, 2.5, wee.Remaining)
}

func TestFormatWeight(t *testing.T) {
	assert.Equal(t, "100", FormatWeight(100))
	assert.Equal(t, "12.5", FormatWeight(12.5))
	assert.Equal(t, "33.33", FormatWeight(33.333))
	assert.Equal(t, "0", FormatWeight(0))
}

func TestCloneStagesDoesNotShareEvidence(t *testing.T) {
	orig := []Stage{{Name: "A", Weight: 1, Evidence: []EvidenceFile{{Name: "ba.pdf"}}}}
	cp := CloneStages(orig)
	cp[0].Evidence[0].Name = "changed.pdf"

	assert.Equal(t, "ba.pdf", orig[0].Evidence[0].Name)
}
