package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/proyek/internal/notify"
	"github.com/mesh-intelligence/proyek/internal/paths"
	"github.com/mesh-intelligence/proyek/internal/plan"
	"github.com/mesh-intelligence/proyek/internal/session"
	"github.com/mesh-intelligence/proyek/pkg/sqlite"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// attachBackend resolves the data directory and attaches a SQLite backend.
// The caller must defer backend.Detach().
func (a *app) attachBackend() (sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.flagDataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	backend := sqlite.NewBackend(a.logger)
	if err := backend.Attach(storeConfig(a.cfg, dataDir)); err != nil {
		return nil, sysError(fmt.Errorf("attach backend: %w", err))
	}
	return backend, nil
}

// table returns a named table or a system error.
func (a *app) table(backend sqlite.Backend, name string) (types.Table, error) {
	t, err := backend.GetTable(name)
	if err != nil {
		return nil, sysError(fmt.Errorf("get table %s: %w", name, err))
	}
	return t, nil
}

// findProject resolves ref as a project ID, then as a case-insensitive name.
func (a *app) findProject(backend sqlite.Backend, ref string) (*types.Project, error) {
	projects, err := a.table(backend, types.TableProjects)
	if err != nil {
		return nil, err
	}
	got, err := projects.Get(ref)
	if err == nil {
		return got.(*types.Project), nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, classify(err)
	}

	all, err := projects.Fetch(nil)
	if err != nil {
		return nil, sysError(err)
	}
	var match *types.Project
	for _, e := range all {
		p := e.(*types.Project)
		if !strings.EqualFold(p.Name, ref) {
			continue
		}
		if match != nil {
			return nil, userError(fmt.Errorf("project name %q is ambiguous; use its ID", ref))
		}
		match = p
	}
	if match == nil {
		return nil, userError(fmt.Errorf("project %q: %w", ref, types.ErrNotFound))
	}
	return match, nil
}

// sink prints editor messages for humans and logs them. --json keeps stdout
// for the JSON document.
func (a *app) sink() notify.Sink {
	out := a.out
	if a.flagJSON {
		out = io.Discard
	}
	return notify.Multi{notify.NewWriterSink(out, a.errOut), notify.NewZapSink(a.logger)}
}

// openWorkspace attaches the backend and opens editors for the project.
// The returned close func detaches the backend.
func (a *app) openWorkspace(ref string) (*session.Workspace, *types.Project, func(), error) {
	backend, err := a.attachBackend()
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := backend.Detach(); err != nil {
			a.logger.Warn("detach failed", zap.Error(err))
		}
	}
	p, err := a.findProject(backend, ref)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	ws, err := session.Open(backend, p.ProjectID, a.sink(), a.logger)
	if err != nil {
		closeFn()
		return nil, nil, nil, classify(err)
	}
	return ws, p, closeFn, nil
}

// findStage resolves ref as an ordinal, a stage ID, or a case-insensitive
// stage name, in that order.
func findStage(stages []types.Stage, ref string) (types.Stage, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(stages) {
		return stages[n-1], nil
	}
	for _, s := range stages {
		if s.StageID == ref {
			return s, nil
		}
	}
	for _, s := range stages {
		if strings.EqualFold(s.Name, ref) {
			return s, nil
		}
	}
	return types.Stage{}, userError(fmt.Errorf("stage %q: %w", ref, types.ErrNotFound))
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("encode json: %w", err))
	}
	fmt.Fprintln(a.out, string(data))
	return nil
}

// printTable renders rows with a lipgloss table.
func (a *app) printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(a.out, t.Render())
}

func (a *app) printTitle(title string) {
	fmt.Fprintln(a.out, titleStyle.Render(title))
}

// rupiah formats an amount with dot thousands separators.
func rupiah(amount int64) string {
	return "Rp " + strings.ReplaceAll(humanize.Comma(amount), ",", ".")
}

func percentText(p float64) string {
	return types.FormatWeight(p) + "%"
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(plan.DateLayout)
}

// parseDate accepts YYYY-MM-DD or an empty string.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(plan.DateLayout, s)
	if err != nil {
		return time.Time{}, userError(fmt.Errorf("invalid date %q (want %s)", s, plan.DateLayout))
	}
	return t, nil
}
