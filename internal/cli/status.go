package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/monitor"
	"github.com/haskel/pacer/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long:  `Query the running pacer server for its learner, event count, snapshot and process metrics.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type serverStatus struct {
	Status        string             `json:"status"`
	Version       string             `json:"version"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Learner       string             `json:"learner"`
	UseRL         bool               `json:"use_rl"`
	Actions       int                `json:"actions"`
	Events        int                `json:"events"`
	Host          *monitor.HostState `json:"host"`
	Snapshot      *storage.Info      `json:"snapshot"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	var status serverStatus
	data, err := NewClient().Call(http.MethodGet, "/status", nil, &status)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)

	fmt.Println("=== Pacer Status ===")
	fmt.Printf("Version: %s, up %s\n", status.Version, uptime)
	fmt.Printf("Learner: %s (use_rl=%v)\n", status.Learner, status.UseRL)
	fmt.Printf("Actions: %d\n", status.Actions)
	fmt.Printf("Events:  %d\n", status.Events)

	if snap := status.Snapshot; snap != nil {
		fmt.Printf("\nSnapshot:\n")
		if snap.Exists {
			fmt.Printf("  %s (%d bytes, saved %s)\n", snap.Path, snap.Size, snap.UpdatedAt.Format(time.RFC3339))
		} else {
			fmt.Printf("  %s (not saved yet)\n", snap.Path)
		}
		if snap.Dirty {
			fmt.Printf("  Unsaved updates pending\n")
		}
	}

	if h := status.Host; h != nil {
		fmt.Printf("\nProcess:\n")
		fmt.Printf("  PID %d, RSS %.1f MB, CPU %.1f%%\n", h.Process.PID, float64(h.Process.RSSBytes)/1024/1024, h.Process.CPUPercent)
		fmt.Printf("  Threads: %d, goroutines: %d\n", h.Process.Threads, h.Process.Goroutines)
		fmt.Printf("\nMemory:\n")
		fmt.Printf("  Usage: %.1f%% of %.1f GB\n", h.Memory.UsagePercent, float64(h.Memory.TotalBytes)/1024/1024/1024)
	}

	return nil
}
