package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/cohort/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved planning runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenGlobal()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No saved runs. Use 'cohort plan --save' to record one.")
			return nil
		}

		fmt.Printf("%-20s %-20s %-14s %6s %8s %12s\n", "RUN", "CREATED", "TOPOLOGY", "TASKS", "BATCHES", "BUDGET")
		for _, rec := range records {
			fmt.Printf("%-20s %-20s %-14s %6d %8d %12d\n",
				rec.RunID,
				rec.CreatedAt.Format("2006-01-02 15:04:05"),
				rec.Topology,
				rec.Tasks,
				rec.Batches,
				rec.RunBudget,
			)
		}
		return nil
	},
}

var historyShowJSON bool

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved planning bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenGlobal()
		if err != nil {
			return err
		}
		defer db.Close()

		bundle, err := db.GetBundle(args[0])
		if err != nil {
			return err
		}

		if historyShowJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(bundle)
		}
		fmt.Print(renderBundle(bundle))
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Remove a saved planning run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := state.OpenGlobal()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Removed run %s\n", color.GreenString("✓"), args[0])
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list (0 for all)")
	historyShowCmd.Flags().BoolVar(&historyShowJSON, "json", false, "Emit the bundle as JSON")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyRmCmd)
}
