package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/proyek/internal/report"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report <project>",
		Short: "Summarize progress and budget for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, p, closeFn, err := a.openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			r := report.ProjectSummary(*p, ws.Stages.Stages(), ws.Budget.Items())
			if a.flagJSON {
				return a.printJSON(r)
			}
			a.printReport(r)
			return nil
		},
	}
}

func (a *app) printReport(r report.ProjectReport) {
	a.printTitle(r.Project.Name)
	pr := r.Progress
	fmt.Fprintf(a.out, "progress:  %s done, %s in progress, %s unallocated\n",
		percentText(pr.Completed), percentText(pr.Ongoing), percentText(pr.Remaining))
	fmt.Fprintf(a.out, "stages:    %d (%d pending, %d in progress, %d done)\n",
		pr.Stages, pr.ByStatus[types.StatusPending], pr.ByStatus[types.StatusProgress], pr.ByStatus[types.StatusDone])

	b := r.Budget
	rows := make([][]string, 0, len(b.Stages))
	for _, s := range b.Stages {
		rows = append(rows, []string{
			strconv.Itoa(s.Ordinal),
			s.Name,
			strconv.Itoa(s.Items),
			rupiah(s.Planned),
			rupiah(s.Realized),
			percentText(s.Percent),
		})
	}
	if len(rows) > 0 {
		a.printTable([]string{"#", "STAGE", "ITEMS", "PLANNED", "REALIZED", "ABSORBED"}, rows)
	}

	cats := make([]string, 0, len(b.ByCat))
	for c := range b.ByCat {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(a.out, "  %-16s %s\n", c, rupiah(b.ByCat[c]))
	}

	fmt.Fprintf(a.out, "contract:  %s\n", rupiah(r.Project.ContractValue))
	fmt.Fprintf(a.out, "planned:   %s (realized %s, %s)\n", rupiah(b.Planned), rupiah(b.Realized), percentText(b.Percent))
	fmt.Fprintf(a.out, "margin:    %s\n", rupiah(r.Margin))
}
