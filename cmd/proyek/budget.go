package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

func newBudgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Allocate budget items to stages",
	}
	cmd.AddCommand(
		newBudgetAddCmd(a),
		newBudgetEditCmd(a),
		newBudgetDeleteCmd(a),
		newBudgetListCmd(a),
	)
	return cmd
}

type budgetFlags struct {
	stage       string
	category    string
	description string
	amount      int64
	realized    int64
}

func (f *budgetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.stage, "stage", "", "stage ordinal, ID, or name")
	cmd.Flags().StringVar(&f.category, "category", "", "budget category")
	cmd.Flags().StringVar(&f.description, "description", "", "free-text description")
	cmd.Flags().Int64Var(&f.amount, "amount", 0, "planned amount in rupiah")
	cmd.Flags().Int64Var(&f.realized, "realized", 0, "realized amount in rupiah")
}

// apply copies the flags the user set onto item, resolving --stage against
// the project's stages.
func (f *budgetFlags) apply(cmd *cobra.Command, stages []types.Stage, item *types.BudgetItem) error {
	changed := cmd.Flags().Changed
	if changed("stage") {
		s, err := findStage(stages, f.stage)
		if err != nil {
			return err
		}
		item.StageID = s.StageID
	}
	if changed("category") {
		item.Category = f.category
	}
	if changed("description") {
		item.Description = f.description
	}
	if changed("amount") {
		item.Amount = f.amount
	}
	if changed("realized") {
		item.Realized = f.realized
	}
	return nil
}

func newBudgetAddCmd(a *app) *cobra.Command {
	var f budgetFlags
	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a budget item to a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			var item types.BudgetItem
			if err := f.apply(cmd, ws.Stages.Stages(), &item); err != nil {
				return err
			}
			before := ws.Budget.Items()
			if !ws.Budget.Add(item) {
				return reportedError(ws.Budget.LastErr())
			}
			if a.flagJSON {
				return a.printJSON(addedItem(before, ws.Budget.Items()))
			}
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// addedItem returns the item of after whose ID is not in before.
func addedItem(before, after []types.BudgetItem) types.BudgetItem {
	seen := make(map[string]bool, len(before))
	for _, it := range before {
		seen[it.BudgetID] = true
	}
	for _, it := range after {
		if !seen[it.BudgetID] {
			return it
		}
	}
	return types.BudgetItem{}
}

func newBudgetEditCmd(a *app) *cobra.Command {
	var f budgetFlags
	cmd := &cobra.Command{
		Use:   "edit <project> <item-id>",
		Short: "Edit a budget item; fields not given keep their value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := findItem(ws.Budget.Items(), args[1])
			if err != nil {
				return err
			}
			if err := f.apply(cmd, ws.Stages.Stages(), &item); err != nil {
				return err
			}
			if !ws.Budget.Edit(item.BudgetID, item) {
				return reportedError(ws.Budget.LastErr())
			}
			if a.flagJSON {
				updated, _ := findItem(ws.Budget.Items(), item.BudgetID)
				return a.printJSON(updated)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newBudgetDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <project> <item-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a budget item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := findItem(ws.Budget.Items(), args[1])
			if err != nil {
				return err
			}
			if !ws.Budget.Delete(item.BudgetID) {
				return reportedError(ws.Budget.LastErr())
			}
			if a.flagJSON {
				return a.printJSON(map[string]string{"deleted": item.BudgetID})
			}
			return nil
		},
	}
}

func newBudgetListCmd(a *app) *cobra.Command {
	var stageRef, category, query string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "List budget items in stage order",
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
			stages, err := backend.LoadStages(p.ProjectID)
			if err != nil {
				return classify(err)
			}

			filter := types.Filter{"project_id": p.ProjectID, "q": query, "limit": limit, "offset": offset}
			if stageRef != "" {
				s, err := findStage(stages, stageRef)
				if err != nil {
					return err
				}
				filter["stage_id"] = s.StageID
			}
			if category != "" {
				filter["category"] = category
			}

			budgetTable, err := a.table(backend, types.TableBudget)
			if err != nil {
				return err
			}
			entities, err := budgetTable.Fetch(filter)
			if err != nil {
				return classify(err)
			}
			items := make([]types.BudgetItem, 0, len(entities))
			for _, e := range entities {
				items = append(items, *e.(*types.BudgetItem))
			}
			if a.flagJSON {
				return a.printJSON(items)
			}
			a.printBudget(items, stages)
			return nil
		},
	}
	cmd.Flags().StringVar(&stageRef, "stage", "", "only items of this stage")
	cmd.Flags().StringVar(&category, "category", "", "only items of this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "substring of category or description")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func findItem(items []types.BudgetItem, id string) (types.BudgetItem, error) {
	for _, it := range items {
		if it.BudgetID == id {
			return it, nil
		}
	}
	return types.BudgetItem{}, userError(fmt.Errorf("budget item %q: %w", id, types.ErrNotFound))
}

// printBudget renders items, which must already be in stage order.
func (a *app) printBudget(items []types.BudgetItem, stages []types.Stage) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no budget items")
		return
	}
	names := make(map[string]string, len(stages))
	for _, s := range stages {
		names[s.StageID] = fmt.Sprintf("#%d %s", s.Ordinal, s.Name)
	}
	var planned, realized int64
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		planned += it.Amount
		realized += it.Realized
		rows = append(rows, []string{
			names[it.StageID],
			it.Category,
			it.Description,
			rupiah(it.Amount),
			rupiah(it.Realized),
			it.BudgetID,
		})
	}
	a.printTable([]string{"STAGE", "CATEGORY", "DESCRIPTION", "PLANNED", "REALIZED", "ID"}, rows)
	fmt.Fprintf(a.out, "planned %s, realized %s\n", rupiah(planned), rupiah(realized))
}
