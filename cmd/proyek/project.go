package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/proyek/internal/allocation"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, list, show, and delete projects",
	}
	cmd.AddCommand(
		newProjectCreateCmd(a),
		newProjectListCmd(a),
		newProjectShowCmd(a),
		newProjectDeleteCmd(a),
	)
	return cmd
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var client string
	var contract int64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			projects, err := a.table(backend, types.TableProjects)
			if err != nil {
				return err
			}
			p := &types.Project{Name: args[0], Client: client, ContractValue: contract}
			if _, err := projects.Set("", p); err != nil {
				return classify(err)
			}
			if a.flagJSON {
				return a.printJSON(p)
			}
			fmt.Fprintf(a.out, "project %q created (%s)\n", p.Name, p.ProjectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&client, "client", "", "client name")
	cmd.Flags().Int64Var(&contract, "contract", 0, "contract value in rupiah")
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	var query string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			projects, err := a.table(backend, types.TableProjects)
			if err != nil {
				return err
			}
			filter := types.Filter{"q": query, "limit": limit, "offset": offset}
			entities, err := projects.Fetch(filter)
			if err != nil {
				return classify(err)
			}

			list := make([]*types.Project, 0, len(entities))
			for _, e := range entities {
				list = append(list, e.(*types.Project))
			}
			if a.flagJSON {
				return a.printJSON(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "no projects")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{p.ProjectID, p.Name, p.Client, rupiah(p.ContractValue)})
			}
			a.printTable([]string{"ID", "NAME", "CLIENT", "CONTRACT"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "substring of name or client")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newProjectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project>",
		Short: "Show a project with its stages and budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, p, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			stages := ws.Stages.Stages()
			items := ws.Budget.Items()
			if a.flagJSON {
				return a.printJSON(struct {
					Project *types.Project     `json:"project"`
					Stages  []types.Stage      `json:"stages"`
					Budget  []types.BudgetItem `json:"budget"`
				}{p, stages, items})
			}

			a.printTitle(fmt.Sprintf("%s (%s)", p.Name, p.ProjectID))
			if p.Client != "" {
				fmt.Fprintln(a.out, "client:  ", p.Client)
			}
			fmt.Fprintln(a.out, "contract:", rupiah(p.ContractValue))
			a.printStages(stages)
			a.printBudget(allocation.ByStage(items, stages), stages)
			return nil
		},
	}
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project>",
		Short: "Delete a project with its stages and budget",
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
			projects, err := a.table(backend, types.TableProjects)
			if err != nil {
				return err
			}
			if err := projects.Delete(p.ProjectID); err != nil {
				return classify(err)
			}
			if a.flagJSON {
				return a.printJSON(map[string]string{"deleted": p.ProjectID})
			}
			fmt.Fprintf(a.out, "project %q deleted\n", p.Name)
			return nil
		},
	}
}
