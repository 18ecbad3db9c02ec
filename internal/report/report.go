// Package report derives progress and budget summaries from a project's
// stage and budget lists.
package report

import (
	"github.com/mesh-intelligence/proyek/internal/allocation"
	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// ProgressReport summarizes stage weights by status.
type ProgressReport struct {
	Stages    int            `json:"stages"`
	Allocated float64        `json:"allocated"`
	Completed float64        `json:"completed"`
	Ongoing   float64        `json:"ongoing"`
	Remaining float64        `json:"remaining"`
	ByStatus  map[string]int `json:"by_status"`
}

// Progress counts a stage's weight as completed once its status is done.
// Stages in progress are reported separately and contribute nothing to
// Completed.
func Progress(stages []types.Stage) ProgressReport {
	r := ProgressReport{
		Stages: len(stages),
		ByStatus: map[string]int{
			types.StatusPending:  0,
			types.StatusProgress: 0,
			types.StatusDone:     0,
		},
	}
	for _, s := range stages {
		r.Allocated += s.Weight
		status := s.Status
		if status == "" {
			status = types.StatusPending
		}
		r.ByStatus[status]++
		switch status {
		case types.StatusDone:
			r.Completed += s.Weight
		case types.StatusProgress:
			r.Ongoing += s.Weight
		}
	}
	r.Remaining = sequence.Remaining(stages, "")
	return r
}

// StageBudget is the planned and realized total of one stage.
type StageBudget struct {
	StageID  string  `json:"stage_id"`
	Ordinal  int     `json:"ordinal"`
	Name     string  `json:"name"`
	Items    int     `json:"items"`
	Planned  int64   `json:"planned"`
	Realized int64   `json:"realized"`
	Percent  float64 `json:"percent"`
}

// BudgetReport rolls budget items up per stage in stage order.
type BudgetReport struct {
	Stages   []StageBudget    `json:"stages"`
	Planned  int64            `json:"planned"`
	Realized int64            `json:"realized"`
	Percent  float64          `json:"percent"`
	ByCat    map[string]int64 `json:"by_category"`
}

// BudgetSummary totals items per stage. Stages with no items appear with
// zero totals. Items referencing an unknown stage count toward the overall
// totals only.
func BudgetSummary(stages []types.Stage, items []types.BudgetItem) BudgetReport {
	r := BudgetReport{
		Stages: make([]StageBudget, len(stages)),
		ByCat:  make(map[string]int64),
	}
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		index[s.StageID] = i
		r.Stages[i] = StageBudget{StageID: s.StageID, Ordinal: s.Ordinal, Name: s.Name}
	}
	for _, it := range allocation.ByStage(items, stages) {
		r.Planned += it.Amount
		r.Realized += it.Realized
		r.ByCat[it.Category] += it.Amount
		if i, ok := index[it.StageID]; ok {
			r.Stages[i].Items++
			r.Stages[i].Planned += it.Amount
			r.Stages[i].Realized += it.Realized
		}
	}
	for i := range r.Stages {
		r.Stages[i].Percent = percent(r.Stages[i].Realized, r.Stages[i].Planned)
	}
	r.Percent = percent(r.Realized, r.Planned)
	return r
}

// ProjectReport combines progress and budget figures for one project.
type ProjectReport struct {
	Project  types.Project  `json:"project"`
	Progress ProgressReport `json:"progress"`
	Budget   BudgetReport   `json:"budget"`
	// Margin is the contract value minus the planned budget.
	Margin int64 `json:"margin"`
}

// ProjectSummary builds the combined report.
func ProjectSummary(p types.Project, stages []types.Stage, items []types.BudgetItem) ProjectReport {
	b := BudgetSummary(stages, items)
	return ProjectReport{
		Project:  p,
		Progress: Progress(stages),
		Budget:   b,
		Margin:   p.ContractValue - b.Planned,
	}
}

func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
