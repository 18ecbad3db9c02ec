package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/proyek/internal/sequence"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

func newStageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Sequence and weight a project's stages",
	}
	cmd.AddCommand(
		newStageAddCmd(a),
		newStageEditCmd(a),
		newStageMoveCmd(a, "up"),
		newStageMoveCmd(a, "down"),
		newStageRemoveCmd(a),
		newStageListCmd(a),
	)
	return cmd
}

// stageFlags are the editable stage fields shared by add and edit.
type stageFlags struct {
	name    string
	weight  float64
	ordinal int
	status  string
	start   string
	end     string
}

func (f *stageFlags) register(cmd *cobra.Command, withOrdinal bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "stage name")
	cmd.Flags().Float64Var(&f.weight, "weight", 0, "weight in percent of the project")
	cmd.Flags().StringVar(&f.status, "status", "", "pending, progress, or done")
	cmd.Flags().StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	if withOrdinal {
		cmd.Flags().IntVar(&f.ordinal, "ordinal", 0, "move the stage to this position")
	}
}

// apply copies the flags the user set onto s.
func (f *stageFlags) apply(cmd *cobra.Command, s *types.Stage) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		s.Name = f.name
	}
	if changed("weight") {
		s.Weight = f.weight
	}
	if changed("status") {
		s.Status = f.status
	}
	if changed("ordinal") {
		s.Ordinal = f.ordinal
	}
	if changed("start") {
		t, err := parseDate(f.start)
		if err != nil {
			return err
		}
		s.StartDate = t
	}
	if changed("end") {
		t, err := parseDate(f.end)
		if err != nil {
			return err
		}
		s.EndDate = t
	}
	return nil
}

func newStageAddCmd(a *app) *cobra.Command {
	var f stageFlags
	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Append a stage to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			var s types.Stage
			if err := f.apply(cmd, &s); err != nil {
				return err
			}
			if !ws.Stages.Add(s) {
				return reportedError(ws.Stages.LastErr())
			}
			if a.flagJSON {
				stages := ws.Stages.Stages()
				return a.printJSON(stages[len(stages)-1])
			}
			return nil
		},
	}
	f.register(cmd, false)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}

func newStageEditCmd(a *app) *cobra.Command {
	var f stageFlags
	cmd := &cobra.Command{
		Use:   "edit <project> <stage>",
		Short: "Edit a stage; --ordinal moves it",
		Long: `Edit a stage. <stage> is its ordinal, ID, or name. Fields not given
keep their current value. --ordinal moves the stage to that position and
renumbers the others.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := findStage(ws.Stages.Stages(), args[1])
			if err != nil {
				return err
			}
			data := s
			data.Ordinal = 0
			if err := f.apply(cmd, &data); err != nil {
				return err
			}
			if !ws.Stages.Edit(s.StageID, data) {
				return reportedError(ws.Stages.LastErr())
			}
			return a.printStageJSON(ws.Stages.Stages(), s.StageID)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newStageMoveCmd(a *app, dir string) *cobra.Command {
	return &cobra.Command{
		Use:   dir + " <project> <stage>",
		Short: "Move a stage one position " + dir,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := findStage(ws.Stages.Stages(), args[1])
			if err != nil {
				return err
			}
			move := ws.Stages.MoveUp
			if dir == "down" {
				move = ws.Stages.MoveDown
			}
			if !move(s.StageID) {
				return reportedError(ws.Stages.LastErr())
			}
			return a.printStageJSON(ws.Stages.Stages(), s.StageID)
		},
	}
}

func newStageRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <project> <stage>",
		Aliases: []string{"rm"},
		Short:   "Remove a stage and the budget items allocated to it",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := findStage(ws.Stages.Stages(), args[1])
			if err != nil {
				return err
			}
			if !ws.Stages.Remove(s.StageID) {
				return reportedError(ws.Stages.LastErr())
			}
			if a.flagJSON {
				return a.printJSON(ws.Stages.Stages())
			}
			return nil
		},
	}
}

func newStageListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List a project's stages in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			p, err := a.findProject(backend, args[0])
			if err != nil {
				return err
			}
			stagesTable, err := a.table(backend, types.TableStages)
			if err != nil {
				return err
			}
			filter := types.Filter{"project_id": p.ProjectID}
			if status != "" {
				filter["status"] = status
			}
			entities, err := stagesTable.Fetch(filter)
			if err != nil {
				return classify(err)
			}
			stages := make([]types.Stage, 0, len(entities))
			for _, e := range entities {
				stages = append(stages, *e.(*types.Stage))
			}
			if a.flagJSON {
				return a.printJSON(stages)
			}
			a.printStages(stages)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only stages with this status")
	return cmd
}

// printStageJSON prints the stage with id under --json.
func (a *app) printStageJSON(stages []types.Stage, id string) error {
	if !a.flagJSON {
		return nil
	}
	for _, s := range stages {
		if s.StageID == id {
			return a.printJSON(s)
		}
	}
	return nil
}

func (a *app) printStages(stages []types.Stage) {
	if len(stages) == 0 {
		fmt.Fprintln(a.out, "no stages")
		return
	}
	var total float64
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		total += s.Weight
		rows = append(rows, []string{
			strconv.Itoa(s.Ordinal),
			s.Name,
			percentText(s.Weight),
			s.Status,
			dateText(s.StartDate),
			dateText(s.EndDate),
			s.StageID,
		})
	}
	a.printTable([]string{"#", "STAGE", "WEIGHT", "STATUS", "START", "END", "ID"}, rows)
	fmt.Fprintf(a.out, "allocated %s, remaining %s\n",
		percentText(total), percentText(sequence.Remaining(stages, "")))
}
