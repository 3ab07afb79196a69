package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/logger"
	"github.com/haskel/pacer/internal/simulate"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Train the learner offline on synthetic athletes",
	Long: `Run the recommender against synthetic daily states without a server.
Each episode completes with probability readiness/100 and the completion is
fed back as the reward.

Examples:
  pacer simulate --episodes 500 --seed 7
  pacer simulate --episodes 1000 --resume --save`,
	RunE: runSimulate,
}

var (
	simEpisodes int
	simSeed     uint64
	simResume   bool
	simSave     bool
)

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simEpisodes, "episodes", 100, "number of simulated days")
	f.Uint64Var(&simSeed, "seed", 0, "seed for states, outcomes and the learner (0 = random)")
	f.BoolVar(&simResume, "resume", false, "start from the saved learner snapshot")
	f.BoolVar(&simSave, "save", false, "save the learner snapshot when done")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault(cfgFile)
	if cmd.Flags().Changed("seed") {
		cfg.Engine.Seed = simSeed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, "text")

	eng, err := buildEngine(context.Background(), cfg, log, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	if eng.storage == nil && (simResume || simSave) {
		return fmt.Errorf("learner %q has no snapshot to resume or save", eng.learnerName())
	}
	if simResume {
		if err := eng.storage.Load(); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
	}

	opts := simulate.Options{
		Episodes: simEpisodes,
		Seed:     simSeed,
	}
	if !jsonOut {
		opts.Progress = func(done int) {
			fmt.Printf("  Episode %d/%d\n", done, simEpisodes)
		}
		fmt.Printf("=== Simulating %d episodes (%s) ===\n", simEpisodes, eng.learnerName())
	}

	res, err := simulate.Run(eng.recommender, opts)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if simSave {
		if err := eng.storage.Save(); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("\nCompleted %d of %d days (%.1f%%)\n\n", res.Completions, res.Episodes,
		100*float64(res.Completions)/float64(res.Episodes))
	fmt.Println("Action counts:")
	for _, a := range res.Actions {
		fmt.Printf("  #%-2d %-40s %4d times, mean reward %.3f\n", a.ActionID, a.Description, a.Count, a.MeanReward)
	}
	if simSave {
		fmt.Printf("\n✓ Snapshot saved to %s\n", eng.storage.Path())
	}
	return nil
}
