package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cd3-tool/cd3/internal/engine"
	"github.com/cd3-tool/cd3/internal/storage"
)

var (
	dbPath      string
	backendName string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	logger  *zap.Logger
	dataDir string
	store   *storage.Store
	eng     *engine.Engine
)

// Command groups for help output.
const (
	GroupItems      = "items"
	GroupPrioritize = "prioritize"
	GroupResults    = "results"
	GroupSetup      = "setup"
)

// noStoreCommands run without opening the session. Subcommands of an
// entry inherit it.
var noStoreCommands = map[string]bool{
	"init":       true,
	"version":    true,
	"config":     true,
	"help":       true,
	"completion": true,
	"__complete": true,
}

func needsStore(cmd *cobra.Command) bool {
	if !cmd.HasParent() {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if noStoreCommands[c.Name()] {
			return false
		}
	}
	return true
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupItems, Title: "Items:"},
		&cobra.Group{ID: GroupPrioritize, Title: "Prioritize:"},
		&cobra.Group{ID: GroupResults, Title: "Results:"},
		&cobra.Group{ID: GroupSetup, Title: "Setup & Configuration:"},
	)

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Data directory (default: nearest .cd3 above the working directory)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Storage backend: file, sqlite, dolt (default from config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "cd3",
	Short: "cd3 - rank a backlog by Cost of Delay divided by duration",
	Long: `cd3 walks a backlog through urgency, value and duration ratings and ranks
the items by CD3 = Cost of Delay / Duration. Buckets set the weights of every
rating level and can be tuned at any time; manual reordering of the results
is kept when new items are scored.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			printVersion(cmd)
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
}

func main() {
	err := rootCmd.Execute()
	teardown()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// mustEngine returns the session engine opened by bootstrap.
func mustEngine() (*engine.Engine, error) {
	if eng == nil {
		return nil, fmt.Errorf("no session loaded")
	}
	return eng, nil
}
