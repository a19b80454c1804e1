package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newResourcesCmd() *cobra.Command {
	var available bool

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			if available {
				return printAvailableResources()
			}

			resp, err := client.Get("/api/v1/resources/")
			if err != nil {
				return fmt.Errorf("list resources: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No resources found.")
				return nil
			}

			fmt.Printf("%-40s  %-24s  %-16s  %s\n", "ID", "NAME", "TEAM", "CAPACITY")
			fmt.Printf("%-40s  %-24s  %-16s  %s\n", "----", "----", "----", "--------")
			for _, r := range data {
				id, _ := r["id"].(string)
				name, _ := r["name"].(string)
				team, _ := r["team"].(string)
				capacity, _ := r["capacity"].(float64)
				fmt.Printf("%-40s  %-24s  %-16s  %dh\n", id, name, team, int(capacity))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&available, "available", false, "Show availability grouped into primary and shared tiers")
	return cmd
}

func printAvailableResources() error {
	resp, err := client.Get("/api/v1/resources/available")
	if err != nil {
		return fmt.Errorf("list available resources: %w", err)
	}

	var data struct {
		Primary []map[string]any `json:"primary"`
		Shared  []map[string]any `json:"shared"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	printTier := func(label string, rows []map[string]any) {
		fmt.Printf("%s:\n", label)
		if len(rows) == 0 {
			fmt.Println("  (none)")
			return
		}
		for _, r := range rows {
			name, _ := r["name"].(string)
			team, _ := r["team"].(string)
			used, _ := r["used_hours"].(float64)
			avail, _ := r["available_hours"].(float64)
			fmt.Printf("  %-24s  %-16s  %dh used, %dh available\n", name, team, int(used), int(avail))
		}
	}

	printTier("Primary", data.Primary)
	fmt.Println()
	printTier("Shared", data.Shared)
	return nil
}
