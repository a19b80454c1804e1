package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/me/teamplan/internal/kvi"
)

func newKVICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kvi",
		Short: "Show the portfolio KVI rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/kvi/portfolio")
			if err != nil {
				return fmt.Errorf("get portfolio KVI: %w", err)
			}

			var report kvi.PortfolioReport
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			h := report.PortfolioHealth
			fmt.Printf("Portfolio health: %d/100 (%s, %d projects)\n", h.HealthScore, h.Trend, h.TotalProjects)
			statuses := make([]string, 0, len(h.StatusBreakdown))
			for s := range h.StatusBreakdown {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Printf("  %-12s %d\n", s, h.StatusBreakdown[s])
			}

			v := report.InitiativeValue
			fmt.Printf("\nInitiative value: %.0f total across %d initiative(s)\n", v.GrandTotal, len(v.Initiatives))
			cats := make([]string, 0, len(v.TotalsByCategory))
			for c := range v.TotalsByCategory {
				cats = append(cats, c)
			}
			sort.Strings(cats)
			for _, c := range cats {
				fmt.Printf("  %-24s %.0f\n", c, v.TotalsByCategory[c])
			}

			s := report.ScheduleVariance
			fmt.Printf("\nSchedule variance: %.1f days average, %d of %d projects at risk\n",
				s.AverageVarianceDays, s.ProjectsAtRisk, s.TotalProjects)
			for _, p := range s.AtRiskDetails {
				fmt.Printf("  %s: %d day(s) late\n", p.Name, p.DaysLate)
			}

			return nil
		},
	}
}
