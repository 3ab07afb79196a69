package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/cli/tui"
)

var (
	refreshInterval time.Duration
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Long: `Launch a terminal dashboard showing the server status, learner statistics
and the latest audit log events.

Examples:
  pacer tui                    # Basic launch with default settings
  pacer tui --refresh 500ms    # Faster refresh rate
  pacer tui --host 10.0.0.1    # Connect to remote server`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&refreshInterval, "refresh", 2*time.Second, "dashboard refresh interval")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(tui.Config{
		ServerURL:       GetServerURL(),
		RefreshInterval: refreshInterval,
		User:            user,
		Password:        password,
	})
}
