package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/teamplan/internal/logging"
)

var (
	flagServer    string
	flagOrg       string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking TEAMPLAN_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("TEAMPLAN_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the teamplan CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "teamplan",
		Short: "teamplan — portfolio planning from the terminal",
		Long:  "teamplan manages projects, tasks, and resource allocation against a teamplan server.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
			client.Token = LoadToken()
			client.OrgID = flagOrg
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "teamplan server URL (or TEAMPLAN_SERVER env)")
	root.PersistentFlags().StringVar(&flagOrg, "org", "", "Organization ID (development servers only)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newProjectsCmd(),
		newTasksCmd(),
		newResourcesCmd(),
		newAllocateCmd(),
		newKVICmd(),
	)

	return root
}
