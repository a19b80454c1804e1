package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/me/teamplan/pkg/model"
)

func newAllocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate",
		Short: "Auto-assign unassigned tasks to available resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post("/api/v1/tasks/auto-assign", nil)
			if err != nil {
				return fmt.Errorf("auto-assign: %w", err)
			}

			var report model.AllocationReport
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Assigned %d task(s), %d unassigned\n",
				report.Summary.Assigned, report.Summary.Unassigned)

			for _, sa := range report.SharedAssignments {
				fmt.Printf("  shared: %s -> %s (from %s, suggested split %d%%)\n",
					sa.TaskTitle, sa.AssignedTo, sa.PrimaryPortfolioID, sa.SuggestedSplit)
			}

			if len(report.Gaps) > 0 {
				fmt.Println("Gaps:")
				for _, g := range report.Gaps {
					line := fmt.Sprintf("  %s (%s, %dh): %s", g.TaskTitle, g.RequiredTeam, g.Estimate, g.Reason)
					if g.HasCrossPortfolioOption {
						line += " [cross-portfolio option]"
					}
					fmt.Println(line)
				}
			}

			for _, s := range report.CrossPortfolioSuggestions {
				fmt.Printf("  suggestion for %s:\n", s.TaskTitle)
				for _, c := range s.Candidates {
					fmt.Printf("    - %s (%s, %dh available in %s)\n",
						c.Name, s.RequiredTeam, c.AvailableHours, c.PortfolioID)
				}
			}

			return nil
		},
	}
}
