package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/cohort/internal/topology"
	"github.com/ShayCichocki/cohort/pkg/models"
)

var (
	evalWorkload    string
	evalProtocol    string
	evalTier        string
	evalMode        string
	evalDegradation string
	evalJSON        bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare team topologies for a workload",
	Long: `Evaluate every team topology against a workload, protocol, and
budget tier without needing a task file. Shows estimated KPIs, gate
outcomes, and which topology each scoring mode would pick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pick := func(flag, fromConfig string) string {
			if flag != "" {
				return flag
			}
			return fromConfig
		}

		workload := models.WorkloadProfile(pick(evalWorkload, cfg.Defaults.Workload))
		protocol := models.ProtocolMode(pick(evalProtocol, cfg.Defaults.Protocol))
		tier := models.BudgetTier(pick(evalTier, cfg.Defaults.BudgetTier))
		mode := models.RecommendationMode(pick(evalMode, cfg.Defaults.Mode))
		degradation := models.DegradationPolicy(pick(evalDegradation, cfg.Defaults.Degradation))

		if !workload.Valid() {
			return fmt.Errorf("unknown workload profile %q", workload)
		}
		if !protocol.Valid() {
			return fmt.Errorf("unknown protocol mode %q", protocol)
		}
		if !tier.Valid() {
			return fmt.Errorf("unknown budget tier %q", tier)
		}
		if !degradation.Valid() {
			return fmt.Errorf("unknown degradation policy %q", degradation)
		}

		runBudget := cfg.Envelope().Levels(tier).Run
		gates := topology.GateConfig{
			MaxCoordinationRatio: cfg.Gates.MaxCoordinationRatio,
			MinPassRate:          cfg.Gates.MinPassRate,
			MaxP95LatencySeconds: cfg.Gates.MaxP95LatencySeconds,
			MaxTotalTokens:       runBudget,
		}

		rec, err := topology.Recommend(models.AllTopologies(), mode, workload, protocol, tier, degradation, gates)
		if err != nil {
			return err
		}

		if evalJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(rec)
		}

		fmt.Print(renderRecommendation(rec))
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalWorkload, "workload", "", "Workload profile: implementation, debugging, research, mixed")
	evaluateCmd.Flags().StringVar(&evalProtocol, "protocol", "", "Message protocol: a2a_lite, transcript")
	evaluateCmd.Flags().StringVar(&evalTier, "tier", "", "Budget tier: low, medium, high")
	evaluateCmd.Flags().StringVar(&evalMode, "mode", "", "Recommendation mode: balanced, cost, quality")
	evaluateCmd.Flags().StringVar(&evalDegradation, "degradation", "", "Degradation policy: none, auto, aggressive")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "Emit the recommendation as JSON")
}
