package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/projects/")
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No projects found.")
				return nil
			}

			fmt.Printf("%-40s  %-30s  %-12s  %-10s  %s\n", "ID", "NAME", "STATUS", "HEALTH", "CREATED")
			fmt.Printf("%-40s  %-30s  %-12s  %-10s  %s\n", "----", "----", "------", "------", "-------")
			for _, p := range data {
				id, _ := p["id"].(string)
				name, _ := p["name"].(string)
				status, _ := p["status"].(string)
				health, _ := p["health"].(string)
				created, _ := p["created_at"].(string)
				fmt.Printf("%-40s  %-30s  %-12s  %-10s  %s\n", id, name, status, health, relativeTime(created))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}

			return nil
		},
	}
}

// relativeTime renders an RFC 3339 timestamp as "3 days ago", falling back
// to the raw string when it does not parse.
func relativeTime(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}
