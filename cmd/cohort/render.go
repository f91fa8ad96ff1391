package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/cohort/internal/orchestrator"
	"github.com/ShayCichocki/cohort/internal/topology"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	chosenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")) // Green

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Orange

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// renderBundle formats a full planning bundle for the terminal.
func renderBundle(bundle *orchestrator.Bundle) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Plan "+bundle.RunID) + "\n\n")
	b.WriteString(renderRecommendation(bundle.Recommendation))

	b.WriteString(sectionStyle.Render("Execution") + "\n")
	b.WriteString(fmt.Sprintf("  %s · up to %d workers per batch · %s tier\n\n",
		bundle.Config.Topology, bundle.Config.MaxWorkers, bundle.Config.BudgetTier))

	b.WriteString(sectionStyle.Render("Batches") + "\n")
	var lines []string
	for i, batch := range bundle.Plan.Batches {
		var members []string
		for _, id := range batch {
			members = append(members, fmt.Sprintf("%s (%d tok)", id, bundle.Plan.Budgets[id]))
		}
		lines = append(lines, fmt.Sprintf("%d  %s", i, strings.Join(members, ", ")))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")) + "\n\n")

	b.WriteString(sectionStyle.Render("Budget") + "\n")
	budgetLine := fmt.Sprintf("run %d · estimated %d", bundle.Plan.RunBudget, bundle.Plan.TotalEstimatedTokens)
	if bundle.Plan.BudgetScaled {
		budgetLine += " · " + warnStyle.Render("allocations scaled to fit")
	}
	b.WriteString("  " + budgetLine + "\n\n")

	b.WriteString(sectionStyle.Render("Diagnostics") + "\n")
	b.WriteString(fmt.Sprintf("  critical path %d tok · parallel efficiency %.2f · lock conflicts resolved %d\n\n",
		bundle.Diagnostics.CriticalPathTokens,
		bundle.Diagnostics.ParallelEfficiency,
		bundle.Diagnostics.LockConflictsResolved,
	))

	b.WriteString(sectionStyle.Render("Handoffs") + "\n")
	b.WriteString(fmt.Sprintf("  %d messages · %d tok coordination footprint (message budget %d)\n",
		len(bundle.Handoffs), bundle.HandoffTokens, bundle.Budgets.Message))
	for _, msg := range bundle.Handoffs {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s → %s  %s", msg.Sender, msg.Recipient, msg.Summary)) + "\n")
	}

	return b.String()
}

// renderRecommendation formats the topology comparison table.
func renderRecommendation(rec *topology.Recommendation) string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Topology ("+string(rec.Mode)+" mode)") + "\n")

	var lines []string
	lines = append(lines, fmt.Sprintf("%-16s %8s %7s %7s %10s %8s %7s  %s",
		"TOPOLOGY", "SCORE", "PASS", "COORD", "TOKENS", "P95(s)", "WORKERS", "GATES"))
	for _, c := range rec.Candidates {
		name := string(c.Topology)
		marker := "  "
		switch {
		case c.Topology == rec.Chosen:
			marker = chosenStyle.Render("▸ ")
			name = chosenStyle.Render(name)
		case !c.Eligible:
			name = dimStyle.Render(name)
		}

		gates := chosenStyle.Render("pass")
		if !c.Eligible {
			gates = failStyle.Render(strings.Join(c.Gates.Failures, ","))
		}
		if c.KPI.DegradedExhausted {
			gates += " " + warnStyle.Render("(degradation exhausted)")
		} else if len(c.KPI.LeversApplied) > 0 {
			gates += " " + dimStyle.Render(fmt.Sprintf("(%d levers)", len(c.KPI.LeversApplied)))
		}

		lines = append(lines, fmt.Sprintf("%s%-14s %8.3f %7.2f %7.2f %10d %8.1f %7d  %s",
			marker, name, c.Score, c.KPI.PassRate, c.KPI.CoordinationRatio,
			c.KPI.TotalTokens, c.KPI.P95LatencySeconds, c.KPI.Workers, gates))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")) + "\n")

	if rec.Chosen == "" {
		b.WriteString(failStyle.Render("No topology passed the gates.") +
			dimStyle.Render(" Best effort: "+string(rec.BestEffort)) + "\n")
	}
	b.WriteString("\n")

	return b.String()
}
