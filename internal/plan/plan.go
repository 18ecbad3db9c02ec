// Package plan reads and writes YAML plan files: a project's stages in order,
// each with the budget lines allocated to it.
package plan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/proyek/internal/allocation"
	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/internal/session"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// DateLayout is the on-disk format of stage dates.
const DateLayout = "2006-01-02"

// Plan is the YAML document.
type Plan struct {
	Project string  `yaml:"project,omitempty"`
	Client  string  `yaml:"client,omitempty"`
	Stages  []Stage `yaml:"stages"`
}

// Stage is one plan entry. Its budget lines need no stage reference: they
// belong to the stage they are listed under.
type Stage struct {
	Name     string               `yaml:"name"`
	Weight   float64              `yaml:"weight"`
	Status   string               `yaml:"status,omitempty"`
	Start    string               `yaml:"start,omitempty"`
	End      string               `yaml:"end,omitempty"`
	Evidence []types.EvidenceFile `yaml:"evidence,omitempty"`
	Budget   []Line               `yaml:"budget,omitempty"`
}

// Line is one budget item of a plan stage.
type Line struct {
	Category    string `yaml:"category"`
	Description string `yaml:"description,omitempty"`
	Amount      int64  `yaml:"amount"`
	Realized    int64  `yaml:"realized,omitempty"`
}

// Parse decodes a plan from YAML bytes.
func Parse(data []byte) (*Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("plan: payload is empty")
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("plan: decode: %w", err)
	}
	return &p, nil
}

// Load reads a plan from r.
func Load(r io.Reader) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("plan: read: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a plan from path.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("plan: %s: %w", path, err)
	}
	return p, nil
}

// Write encodes p as YAML to w.
func Write(w io.Writer, p *Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("plan: encode: %w", err)
	}
	return enc.Close()
}

// FromProject builds a plan from the current lists.
func FromProject(p types.Project, stages []types.Stage, items []types.BudgetItem) *Plan {
	out := &Plan{Project: p.Name, Client: p.Client}
	for _, s := range stages {
		ps := Stage{
			Name:     s.Name,
			Weight:   s.Weight,
			Status:   s.Status,
			Start:    formatDate(s.StartDate),
			End:      formatDate(s.EndDate),
			Evidence: s.Evidence,
		}
		for _, it := range items {
			if it.StageID != s.StageID {
				continue
			}
			ps.Budget = append(ps.Budget, Line{
				Category:    it.Category,
				Description: it.Description,
				Amount:      it.Amount,
				Realized:    it.Realized,
			})
		}
		out.Stages = append(out.Stages, ps)
	}
	return out
}

// Check dry-runs the plan on top of existing stages using the same rules as
// the editors, so Apply either fits completely or is not started.
func Check(p *Plan, existing []types.Stage) error {
	stages := types.CloneStages(existing)
	var items []types.BudgetItem
	for i, ps := range p.Stages {
		s, err := ps.toStage()
		if err != nil {
			return fmt.Errorf("plan: stage %d (%s): %w", i+1, ps.Name, err)
		}
		next, err := sequence.Add(stages, s)
		if err != nil {
			return fmt.Errorf("plan: stage %d (%s): %w", i+1, ps.Name, err)
		}
		stages = next
		added := stages[len(stages)-1]
		for j, line := range ps.Budget {
			items, err = allocation.Add(items, stages, line.toItem(added.StageID))
			if err != nil {
				return fmt.Errorf("plan: stage %d (%s) budget line %d: %w", i+1, ps.Name, j+1, err)
			}
		}
	}
	return nil
}

// Apply checks the plan and then appends its stages and budget lines through
// the workspace editors.
func Apply(ws *session.Workspace, p *Plan) error {
	if err := Check(p, ws.Stages.Stages()); err != nil {
		return err
	}
	for _, ps := range p.Stages {
		s, _ := ps.toStage()
		if !ws.Stages.Add(s) {
			return fmt.Errorf("plan: stage %s: %w", ps.Name, ws.Stages.LastErr())
		}
		stages := ws.Stages.Stages()
		stageID := stages[len(stages)-1].StageID
		for _, line := range ps.Budget {
			if !ws.Budget.Add(line.toItem(stageID)) {
				return fmt.Errorf("plan: stage %s budget %s: %w", ps.Name, line.Category, ws.Budget.LastErr())
			}
		}
	}
	return nil
}

func (ps Stage) toStage() (types.Stage, error) {
	start, err := parseDate(ps.Start)
	if err != nil {
		return types.Stage{}, err
	}
	end, err := parseDate(ps.End)
	if err != nil {
		return types.Stage{}, err
	}
	return types.Stage{
		Name:      ps.Name,
		Weight:    ps.Weight,
		Status:    strings.TrimSpace(ps.Status),
		StartDate: start,
		EndDate:   end,
		Evidence:  ps.Evidence,
	}, nil
}

func (l Line) toItem(stageID string) types.BudgetItem {
	return types.BudgetItem{
		StageID:     stageID,
		Category:    l.Category,
		Description: l.Description,
		Amount:      l.Amount,
		Realized:    l.Realized,
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
