package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/logger"
	"github.com/aryanzandi123/yesah/provider"
)

// LayoutCmd builds a payload, runs the simulation to rest and prints the snapshot
var LayoutCmd = &cobra.Command{
	Use:   "layout <payload.json>",
	Short: "Print the settled layout of a payload as JSON",
	Long: `Build the interaction graph of a payload file, run the force simulation
until it settles (or simulation.max_ticks is reached) and print the
positioned snapshot as JSON.

Proteins passed with --expand are expanded in order through the configured
provider before the layout settles.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

var (
	layoutOut     string
	layoutExpand  []string
	layoutContext string
	layoutCompact bool
)

func init() {
	LayoutCmd.Flags().StringVarP(&layoutOut, "out", "o", "", "Write the snapshot to a file instead of stdout")
	LayoutCmd.Flags().StringSliceVarP(&layoutExpand, "expand", "e", nil, "Proteins to expand before settling")
	LayoutCmd.Flags().StringVar(&layoutContext, "context", "", "Force a dual-track context: net or direct")
	LayoutCmd.Flags().BoolVar(&layoutCompact, "compact", false, "Print compact JSON")
}

func runLayout(cmd *cobra.Command, args []string) error {
	log := logger.ComponentLogger("cli.layout")

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	opts := engine.OptionsFromConfig(cfg)
	opts.ArrowContext = graph.ParseArrowContext(layoutContext)

	var prov provider.Provider
	if len(layoutExpand) > 0 {
		p, closeProv, err := provider.FromConfig(cfg, log)
		if err != nil {
			return err
		}
		defer closeProv()
		prov = p
	}

	eng, err := loadEngine(args[0], prov, opts, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	for _, protein := range layoutExpand {
		if err := expandOne(cmd.Context(), eng, protein, opts.FetchTimeout, log); err != nil {
			return err
		}
	}

	start := time.Now()
	ticks := eng.Settle()
	snap := eng.Snapshot()
	log.Infow("Layout settled",
		logger.FieldRoot, snap.Meta.Root,
		logger.FieldNodeCount, len(snap.Nodes),
		"ticks", ticks,
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	var data []byte
	if layoutCompact {
		data, err = json.Marshal(snap)
	} else {
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal snapshot")
	}

	if layoutOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(layoutOut, data, am.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", layoutOut)
	}
	pterm.Success.Printfln("Wrote %d nodes and %d links to %s (%d ticks)",
		len(snap.Nodes), len(snap.Links), layoutOut, ticks)
	return nil
}

// expandOne expands protein and waits for the merge. stdout is reserved for
// the snapshot so progress goes to the log.
func expandOne(parent context.Context, eng *engine.Engine, protein string, timeout time.Duration, log *zap.SugaredLogger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}
	res, err := eng.ExpandAndWait(ctx, protein)
	if err != nil {
		return errors.Wrapf(err, "failed to expand %s", protein)
	}
	if res == nil {
		log.Infow("Node was already expanded, collapsed it", logger.FieldNodeID, protein)
		return nil
	}
	log.Infow("Expanded node",
		logger.FieldNodeID, protein,
		logger.FieldClusterID, res.Cluster,
		logger.FieldCount, len(res.NewNodes))
	return nil
}
