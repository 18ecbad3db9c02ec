package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/proyek/internal/plan"
	"github.com/mesh-intelligence/proyek/internal/session"
	"github.com/mesh-intelligence/proyek/pkg/sqlite"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Import and export YAML plan files",
	}
	cmd.AddCommand(newPlanImportCmd(a), newPlanExportCmd(a))
	return cmd
}

func newPlanImportCmd(a *app) *cobra.Command {
	var projectRef string
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Append a plan's stages and budget lines to a project",
		Long: `Append a plan's stages and budget lines to a project. The whole plan is
checked first, so either every stage fits or nothing is written. Without
--project the plan's project name is used and the project is created when
it does not exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPlan(cmd.InOrStdin(), args[0])
			if err != nil {
				return userError(err)
			}

			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			project, err := a.planProject(backend, projectRef, p)
			if err != nil {
				return err
			}
			ws, err := session.Open(backend, project.ProjectID, a.sink(), a.logger)
			if err != nil {
				return classify(err)
			}
			if err := plan.Apply(ws, p); err != nil {
				return classify(err)
			}
			if a.flagJSON {
				return a.printJSON(ws.Stages.Stages())
			}
			fmt.Fprintf(a.out, "imported %d stages into %q\n", len(p.Stages), project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectRef, "project", "", "target project (ID or name)")
	return cmd
}

// planProject resolves the import target, creating it from the plan header
// when no --project was given and no project carries the plan's name.
func (a *app) planProject(backend sqlite.Backend, ref string, p *plan.Plan) (*types.Project, error) {
	if ref != "" {
		return a.findProject(backend, ref)
	}
	if p.Project == "" {
		return nil, userError(errors.New("plan has no project name; pass --project"))
	}
	found, err := a.findProject(backend, p.Project)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	projects, err := a.table(backend, types.TableProjects)
	if err != nil {
		return nil, err
	}
	created := &types.Project{Name: p.Project, Client: p.Client}
	if _, err := projects.Set("", created); err != nil {
		return nil, classify(err)
	}
	if !a.flagJSON {
		fmt.Fprintf(a.out, "project %q created (%s)\n", created.Name, created.ProjectID)
	}
	return created, nil
}

func readPlan(stdin io.Reader, path string) (*plan.Plan, error) {
	if path == "-" {
		return plan.Load(stdin)
	}
	return plan.LoadFile(path)
}

func newPlanExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <project>",
		Short: "Write a project's stages and budget as a YAML plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, p, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			doc := plan.FromProject(*p, ws.Stages.Stages(), ws.Budget.Items())
			if output == "" || output == "-" {
				if err := plan.Write(a.out, doc); err != nil {
					return sysError(err)
				}
				return nil
			}

			f, err := os.Create(output)
			if err != nil {
				return sysError(fmt.Errorf("create %s: %w", output, err))
			}
			if err := plan.Write(f, doc); err != nil {
				f.Close()
				return sysError(err)
			}
			if err := f.Close(); err != nil {
				return sysError(err)
			}
			fmt.Fprintf(a.errOut, "plan written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
