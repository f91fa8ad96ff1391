package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/cohort/internal/orchestrator"
	"github.com/ShayCichocki/cohort/internal/state"
	"github.com/ShayCichocki/cohort/pkg/models"
)

var (
	planRunID       string
	planWorkload    string
	planProtocol    string
	planTier        string
	planMode        string
	planDegradation string
	planJSON        bool
	planSave        bool
	planWatch       bool
)

// planFile is the on-disk shape of a task file. Everything but tasks is
// optional; unset fields fall back to flags, then config.
type planFile struct {
	RunID       string             `yaml:"run_id,omitempty"`
	Workload    string             `yaml:"workload,omitempty"`
	Protocol    string             `yaml:"protocol,omitempty"`
	BudgetTier  string             `yaml:"budget_tier,omitempty"`
	Mode        string             `yaml:"mode,omitempty"`
	Degradation string             `yaml:"degradation,omitempty"`
	Tasks       []*models.TaskSpec `yaml:"tasks"`
}

var planCmd = &cobra.Command{
	Use:   "plan <tasks.yaml>",
	Short: "Build an execution plan from a task file",
	Long: `Build a full planning bundle from a YAML task file: topology
recommendation, conflict-aware batches, budget allocations, diagnostics,
and batch handoff messages.

Example task file:

  workload: implementation
  tasks:
    - id: schema
      estimated_tokens: 4000
    - id: api
      depends_on: [schema]
      owners: [server/api.go]
      estimated_tokens: 6000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if err := planOnce(path); err != nil {
			return err
		}
		if planWatch {
			return watchAndReplan(path)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planRunID, "run-id", "", "Run identifier (default: random)")
	planCmd.Flags().StringVar(&planWorkload, "workload", "", "Workload profile: implementation, debugging, research, mixed")
	planCmd.Flags().StringVar(&planProtocol, "protocol", "", "Message protocol: a2a_lite, transcript")
	planCmd.Flags().StringVar(&planTier, "tier", "", "Budget tier: low, medium, high")
	planCmd.Flags().StringVar(&planMode, "mode", "", "Recommendation mode: balanced, cost, quality")
	planCmd.Flags().StringVar(&planDegradation, "degradation", "", "Degradation policy: none, auto, aggressive")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Emit the bundle as JSON")
	planCmd.Flags().BoolVar(&planSave, "save", false, "Save the bundle to run history")
	planCmd.Flags().BoolVar(&planWatch, "watch", false, "Re-plan whenever the task file changes")
}

// planOnce loads the task file, runs the pipeline, and renders the result.
func planOnce(path string) error {
	req, err := loadRequest(path)
	if err != nil {
		return err
	}

	bundle, err := orchestrator.Orchestrate(*req)
	if err != nil {
		return err
	}

	if planSave {
		db, err := state.OpenGlobal()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveBundle(bundle); err != nil {
			return err
		}
	}

	if planJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(bundle)
	}

	fmt.Print(renderBundle(bundle))
	return nil
}

// loadRequest assembles an orchestrator request from the task file, flags,
// and configured defaults, in that order of precedence.
func loadRequest(path string) (*orchestrator.Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var file planFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if len(file.Tasks) == 0 {
		return nil, fmt.Errorf("task file %s contains no tasks", path)
	}

	pick := func(flag, fromFile, fromConfig string) string {
		if flag != "" {
			return flag
		}
		if fromFile != "" {
			return fromFile
		}
		return fromConfig
	}

	runID := pick(planRunID, file.RunID, "")
	if runID == "" {
		runID = "run-" + uuid.New().String()[:8]
	}

	envelope := cfg.Envelope()
	policy := cfg.HandoffPolicy()
	return &orchestrator.Request{
		RunID:       runID,
		Tasks:       file.Tasks,
		Workload:    models.WorkloadProfile(pick(planWorkload, file.Workload, cfg.Defaults.Workload)),
		Protocol:    models.ProtocolMode(pick(planProtocol, file.Protocol, cfg.Defaults.Protocol)),
		BudgetTier:  models.BudgetTier(pick(planTier, file.BudgetTier, cfg.Defaults.BudgetTier)),
		Mode:        models.RecommendationMode(pick(planMode, file.Mode, cfg.Defaults.Mode)),
		Degradation: models.DegradationPolicy(pick(planDegradation, file.Degradation, cfg.Defaults.Degradation)),
		Envelope:    &envelope,
		Policy:      &policy,
		Coordinator: cfg.Handoff.Coordinator,
	}, nil
}

// watchAndReplan re-runs the pipeline every time the task file is written.
// Watches the parent directory because editors often replace the file
// instead of writing it in place.
func watchAndReplan(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Printf("\nWatching %s for changes (ctrl-c to stop)\n", path)
	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Printf("\n%s %s changed, re-planning\n", color.CyanString("↻"), path)
			if err := planOnce(path); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("✗"), err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
