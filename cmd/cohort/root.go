package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/cohort/internal/config"
	"github.com/ShayCichocki/cohort/internal/orchestrator"
)

// cfg is the loaded configuration, available to all subcommands.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Multi-agent orchestration planner",
	Long: `Cohort plans how a team of agents should execute a dependency graph
of tasks: which team topology to use, how to batch tasks so parallel work
never touches the same files, how to split the token budget, and what each
handoff message between agents should carry.

Planning is fully deterministic. The same task file and settings always
produce the same plan, so plans can be reviewed, diffed, and replayed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		orchestrator.SetDebugLogger(orchestrator.NewDebugLoggerFromEnv())
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
