package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/logger"
)

// DepthCmd prints BFS depths from the root protein
var DepthCmd = &cobra.Command{
	Use:   "depth <payload.json>",
	Short: "Show BFS depths from the root protein",
	Long: `Build the interaction graph of a payload file and list every protein
with its shortest-hop distance from the root. Depths embedded in the
payload records are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runDepth,
}

var (
	depthMax    int
	depthReport bool
)

func init() {
	DepthCmd.Flags().IntVar(&depthMax, "max", -1, "Only list proteins at or below this depth (-1 = all)")
	DepthCmd.Flags().BoolVar(&depthReport, "report", false, "Also show what the build repaired or skipped")
}

func runDepth(cmd *cobra.Command, args []string) error {
	log := logger.ComponentLogger("cli.depth")

	m, err := buildModel(args[0], graph.ContextAuto, log)
	if err != nil {
		return err
	}
	logProblems(m, log)

	if err := pterm.DefaultTable.WithHasHeader().WithData(depthRows(m, depthMax)).Render(); err != nil {
		return errors.Wrap(err, "failed to render depth table")
	}

	if depthReport {
		r := m.Report
		pterm.Info.Printfln("%d records: %d skipped, %d duplicates, %d bidirectional merges",
			r.Records, r.Skipped, r.Duplicates, r.BidirectionalMerges)
		pterm.Info.Printfln("%d mediator repairs, %d orphan repairs",
			r.MediatorRepairs, r.OrphanRepairs)
	}
	return nil
}

// depthRows renders the table rows for proteins at or below maxDepth.
// A negative maxDepth lists every protein.
func depthRows(m *graph.Model, maxDepth int) [][]string {
	limit := maxDepth
	if limit < 0 {
		for _, d := range m.Depths {
			if d > limit {
				limit = d
			}
		}
	}

	roles := make(map[string]graph.Role, len(m.Nodes))
	for _, n := range m.Nodes {
		roles[n.ID] = n.Role
	}
	degree := make(map[string]int, len(m.Nodes))
	for _, l := range m.Links {
		degree[l.ID.Source]++
		if l.ID.Target != l.ID.Source {
			degree[l.ID.Target]++
		}
	}

	rows := [][]string{{"Protein", "Role", "Depth", "Links"}}
	for _, id := range graph.FilterByDepth(m.Depths, limit) {
		rows = append(rows, []string{id, string(roles[id]), strconv.Itoa(m.Depths[id]), fmt.Sprint(degree[id])})
	}
	return rows
}
