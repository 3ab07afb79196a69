package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/bandit"
	"github.com/haskel/pacer/internal/eventstore"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learner statistics",
	Long: `Query the pacer server for per-action learner statistics: update counts,
total rewards, posterior parameters and, when the event store is enabled,
the mean reward observed per action.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

type modelStats struct {
	Stats         *bandit.Stats              `json:"stats"`
	Probabilities map[int]float64            `json:"probabilities"`
	Rewards       []eventstore.RewardSummary `json:"rewards"`
}

func runStats(cmd *cobra.Command, args []string) error {
	var stats modelStats
	data, err := NewClient().Call(http.MethodGet, "/model/stats", nil, &stats)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	printModelStats(&stats)
	return nil
}

func printModelStats(stats *modelStats) {
	if stats.Stats == nil {
		fmt.Println("No learner statistics.")
		return
	}

	fmt.Printf("=== Learner: %s ===\n", stats.Stats.Learner)
	fmt.Printf("Total updates: %d\n\n", stats.Stats.TotalUpdates)

	observed := make(map[int]eventstore.RewardSummary, len(stats.Rewards))
	for _, r := range stats.Rewards {
		observed[r.ActionID] = r
	}

	shown := 0
	for _, a := range stats.Stats.Actions {
		if a.Count == 0 && !verbose {
			continue
		}
		shown++

		fmt.Printf("Action #%d\n", a.ActionID)
		fmt.Printf("  Updates:      %d\n", a.Count)
		fmt.Printf("  Total reward: %.3f\n", a.TotalReward)
		if a.ExpectedReward != nil {
			fmt.Printf("  Posterior:    Beta(%.1f, %.1f), mean %.3f\n", a.Alpha, a.Beta, *a.ExpectedReward)
		}
		if p, ok := stats.Probabilities[a.ActionID]; ok {
			fmt.Printf("  Share:        %.1f%%\n", p*100)
		}
		if r, ok := observed[a.ActionID]; ok {
			fmt.Printf("  Observed:     %d feedbacks, mean reward %.3f\n", r.Feedbacks, r.MeanReward)
		}
	}

	if shown == 0 {
		fmt.Println("No feedback recorded yet.")
	}
}
