package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryanzandi123/yesah/cmd/yesah/commands"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/logger"
)

var jsonLogs bool

var rootCmd = &cobra.Command{
	Use:   "yesah",
	Short: "yesah - interaction network layout and expansion engine",
	Long: `yesah - interaction network layout and expansion engine.

Turns interaction payloads into clustered, force-directed layouts and
serves them to viewers that expand and collapse proteins live.

Available commands:
  layout  - Build a payload and print the settled layout as JSON
  depth   - Show BFS depths from the root protein
  serve   - Stream a live layout over websocket
  am      - Manage yesah configuration ("I am")
  version - Show version information

Examples:
  yesah layout cache/ATXN3.json           # Settled snapshot on stdout
  yesah layout cache/ATXN3.json -e VCP    # Expand VCP before settling
  yesah depth cache/ATXN3.json --max 1    # Root and direct interactors
  yesah serve cache/ATXN3.json            # Live websocket server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.LayoutCmd)
	rootCmd.AddCommand(commands.DepthCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
