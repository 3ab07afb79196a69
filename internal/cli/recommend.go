package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/recommend"
	"github.com/haskel/pacer/internal/state"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Request today's training recommendation",
	Long: `Send a daily state to the pacer server and print the recommended action.

The state is a JSON object of features such as readiness_score,
sleep_duration_hours, fatigue, soreness, hrv and resting_hr.

Examples:
  pacer recommend --user-id athlete-1 --state '{"readiness_score":82,"fatigue":3}'
  pacer recommend --user-id athlete-1 --state-file today.json --use-rl=false`,
	RunE: runRecommend,
}

var (
	userID    string
	stateJSON string
	stateFile string
	useRL     bool
)

func init() {
	recommendCmd.Flags().StringVar(&userID, "user-id", "", "athlete user ID")
	recommendCmd.Flags().StringVar(&stateJSON, "state", "", "daily state as a JSON object")
	recommendCmd.Flags().StringVar(&stateFile, "state-file", "", "read the daily state from a JSON file")
	recommendCmd.Flags().BoolVar(&useRL, "use-rl", true, "use the learner instead of rules (server default when unset)")
	rootCmd.AddCommand(recommendCmd)
}

type recommendRequest struct {
	UserID string      `json:"user_id"`
	State  state.State `json:"state"`
	UseRL  *bool       `json:"use_rl,omitempty"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	if userID == "" {
		return errors.New("--user-id is required")
	}

	s, err := readState(stateJSON, stateFile)
	if err != nil {
		return err
	}

	req := recommendRequest{UserID: userID, State: s}
	if cmd.Flags().Changed("use-rl") {
		req.UseRL = &useRL
	}

	var rec recommend.Recommendation
	data, err := NewClient().Call(http.MethodPost, "/recommend", req, &rec)
	if err != nil {
		return fmt.Errorf("failed to get recommendation: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	printRecommendation(&rec)
	return nil
}

func printRecommendation(rec *recommend.Recommendation) {
	fmt.Printf("=== Recommendation ===\n")
	fmt.Printf("Action:    #%d %s\n", rec.ActionID, rec.Description)
	fmt.Printf("Rationale: %s\n", rec.Rationale)
	fmt.Printf("Strategy:  %s\n", rec.Strategy)
	if rec.RecommendationID != "" {
		fmt.Printf("ID:        %s\n", rec.RecommendationID)
	}

	mark := "✓"
	if !rec.Safety.IsSafe {
		mark = "✗"
	}
	fmt.Printf("\nSafety: %s %s risk - %s\n", mark, rec.Safety.RiskLevel, rec.Safety.Message)
	if verbose {
		fmt.Printf("Allowed actions: %v\n", rec.Candidates)
	}
}

// readState parses a state from inline JSON or a file. Neither yields an
// empty state.
func readState(inline, path string) (state.State, error) {
	if inline != "" && path != "" {
		return nil, errors.New("use either --state or --state-file, not both")
	}

	raw := []byte(inline)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read state file: %w", err)
		}
		raw = data
	}

	s := state.State{}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return s, nil
}
