package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/safety"
	"github.com/haskel/pacer/internal/state"
)

var checkPlanCmd = &cobra.Command{
	Use:   "check-plan",
	Short: "Check a concrete training plan against a daily state",
	Long: `Check a concrete plan before doing it. Exercises that match the injury
history are critical; a high intensity plan on an elevated fatigue day is
high risk.

Examples:
  pacer check-plan --intensity high --state '{"fatigue":8}'
  pacer check-plan --intensity low --exercise "knee extensions" --state '{"injury_history":["knee"]}'`,
	RunE: runCheckPlan,
}

var (
	planIntensity string
	planVolume    string
	planExercises []string
)

func init() {
	f := checkPlanCmd.Flags()
	f.StringVar(&planIntensity, "intensity", "", "plan intensity: low, medium or high")
	f.StringVar(&planVolume, "volume", "", "plan volume")
	f.StringArrayVar(&planExercises, "exercise", nil, "exercise name (repeatable)")
	f.StringVar(&stateJSON, "state", "", "daily state as a JSON object")
	f.StringVar(&stateFile, "state-file", "", "read the daily state from a JSON file")
	rootCmd.AddCommand(checkPlanCmd)
}

type planCheckRequest struct {
	State state.State `json:"state"`
	Plan  safety.Plan `json:"plan"`
}

func runCheckPlan(cmd *cobra.Command, args []string) error {
	s, err := readState(stateJSON, stateFile)
	if err != nil {
		return err
	}

	plan := safety.Plan{Intensity: planIntensity, Volume: planVolume}
	for _, name := range planExercises {
		plan.Exercises = append(plan.Exercises, safety.Exercise{Name: name})
	}

	var result safety.CheckResult
	data, err := NewClient().Call(http.MethodPost, "/safety/plan", planCheckRequest{State: s, Plan: plan}, &result)
	if err != nil {
		return fmt.Errorf("failed to check plan: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	if result.IsSafe {
		fmt.Printf("✓ Plan is SAFE (%s risk)\n", result.RiskLevel)
	} else {
		fmt.Printf("✗ Plan is UNSAFE (%s risk)\n", result.RiskLevel)
	}
	fmt.Printf("  %s\n", result.Message)
	fmt.Printf("  Recommended: %s\n", result.RecommendedAction)
	return nil
}
