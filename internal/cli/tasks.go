package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/me/teamplan/pkg/model"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks",
	}
	cmd.AddCommand(newTasksListCmd(), newTasksUpdateCmd(), newTasksDepsCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/tasks/"
			if projectID != "" {
				path += "?project_id=" + url.QueryEscape(projectID)
			}
			resp, err := client.Get(path)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}

			fmt.Printf("%-40s  %-30s  %-12s  %-10s  %-10s  %s\n", "ID", "TITLE", "STATUS", "START", "END", "ASSIGNEE")
			fmt.Printf("%-40s  %-30s  %-12s  %-10s  %-10s  %s\n", "----", "-----", "------", "-----", "---", "--------")
			for _, t := range data {
				id, _ := t["id"].(string)
				title, _ := t["title"].(string)
				status, _ := t["status"].(string)
				start, _ := t["start_date"].(string)
				end, _ := t["end_date"].(string)
				assignee, _ := t["assignee_id"].(string)
				if assignee == "" {
					assignee = "-"
				}
				fmt.Printf("%-40s  %-30s  %-12s  %-10s  %-10s  %s\n", id, title, status, start, end, assignee)
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Only tasks belonging to this project")
	return cmd
}

func newTasksUpdateCmd() *cobra.Command {
	var (
		endDate   string
		startDate string
		title     string
		status    string
		noCascade bool
	)

	cmd := &cobra.Command{
		Use:   "update <task_id>",
		Short: "Update a task, shifting dependent tasks by default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := map[string]any{}
			if endDate != "" {
				upd["end_date"] = endDate
			}
			if startDate != "" {
				upd["start_date"] = startDate
			}
			if title != "" {
				upd["title"] = title
			}
			if status != "" {
				upd["status"] = status
			}
			if len(upd) == 0 {
				return fmt.Errorf("nothing to update: pass at least one of --end-date, --start-date, --title, --status")
			}

			path := "/api/v1/tasks/" + args[0]
			if noCascade {
				path += "?cascade=false"
			}
			resp, err := client.Patch(path, upd)
			if err != nil {
				return fmt.Errorf("update task: %w", err)
			}

			var report model.CascadeReport
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Updated: %s (%s)\n", report.UpdatedTask.ID, report.UpdatedTask.Title)
			for _, c := range report.CascadedTasks {
				fmt.Printf("  shifted %s (%s): %s..%s -> %s..%s\n",
					c.ID, c.Title, c.OldStart, c.OldEnd, c.NewStart, c.NewEnd)
			}
			fmt.Printf("%d task(s) affected\n", report.TotalAffected)
			return nil
		},
	}

	cmd.Flags().StringVar(&endDate, "end-date", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	cmd.Flags().BoolVar(&noCascade, "no-cascade", false, "Do not shift dependent tasks")
	return cmd
}

func newTasksDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <task_id>",
		Short: "Show a task's dependency chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/tasks/" + args[0] + "/dependencies")
			if err != nil {
				return fmt.Errorf("get dependencies: %w", err)
			}

			var chain model.DependencyChain
			if err := json.Unmarshal(resp.Data, &chain); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Task: %s (%s)\n", chain.Task.ID, chain.Task.Title)
			if len(chain.Predecessors) > 0 {
				fmt.Println("  Depends on:")
				for _, p := range chain.Predecessors {
					fmt.Printf("    - %s (%s)\n", p.ID, p.Title)
				}
			}
			if len(chain.Successors) > 0 {
				fmt.Println("  Blocks:")
				printSuccessors(chain.Successors, "    ")
			}
			if len(chain.Predecessors) == 0 && len(chain.Successors) == 0 {
				fmt.Println("  No dependencies.")
			}
			return nil
		},
	}
}

func printSuccessors(succs []model.SuccessorRef, indent string) {
	for _, s := range succs {
		fmt.Printf("%s- %s (%s)\n", indent, s.ID, s.Title)
		printSuccessors(s.Successors, indent+"  ")
	}
}
