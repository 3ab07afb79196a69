package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <action_id>",
	Short: "Report the outcome of a served action",
	Long: `Report how a served action went. The server turns the outcome into a
reward and updates its learner with the state the action was served in.

Only the outcome flags given are sent; the rest take the server defaults.

Examples:
  pacer feedback 4 --user-id athlete-1 --completion 1 --satisfaction 0.8
  pacer feedback 0 --user-id athlete-1 --recommendation-id 3f6c... --adherence 1`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

var (
	recommendationID string
	completion       float64
	adherence        float64
	recoveryChange   float64
	satisfaction     float64
	overtraining     bool
)

func init() {
	f := feedbackCmd.Flags()
	f.StringVar(&userID, "user-id", "", "athlete user ID")
	f.StringVar(&recommendationID, "recommendation-id", "", "ID of the served recommendation")
	f.Float64Var(&completion, "completion", 0, "completion in [0, 1]")
	f.Float64Var(&adherence, "adherence", 0, "adherence ratio in [0, 1]")
	f.Float64Var(&recoveryChange, "recovery-change", 0, "change in recovery score")
	f.Float64Var(&satisfaction, "satisfaction", 0, "satisfaction in [0, 1]")
	f.BoolVar(&overtraining, "overtraining", false, "the session led to overtraining")
	rootCmd.AddCommand(feedbackCmd)
}

type feedbackRequest struct {
	UserID           string         `json:"user_id"`
	ActionID         int            `json:"action_id"`
	RecommendationID string         `json:"recommendation_id,omitempty"`
	Feedback         map[string]any `json:"feedback"`
}

type feedbackResponse struct {
	Reward float64 `json:"reward"`
	Status string  `json:"status"`
}

func runFeedback(cmd *cobra.Command, args []string) error {
	actionID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid action id %q", args[0])
	}
	if userID == "" {
		return errors.New("--user-id is required")
	}

	feedback := make(map[string]any)
	fields := []struct {
		flag string
		key  string
		val  any
	}{
		{"completion", "completion", completion},
		{"adherence", "adherence_ratio", adherence},
		{"recovery-change", "recovery_change", recoveryChange},
		{"satisfaction", "satisfaction", satisfaction},
		{"overtraining", "overtraining", overtraining},
	}
	for _, f := range fields {
		if cmd.Flags().Changed(f.flag) {
			feedback[f.key] = f.val
		}
	}

	req := feedbackRequest{
		UserID:           userID,
		ActionID:         actionID,
		RecommendationID: recommendationID,
		Feedback:         feedback,
	}

	var resp feedbackResponse
	data, err := NewClient().Call(http.MethodPost, "/feedback", req, &resp)
	if err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	fmt.Printf("✓ Feedback recorded for action #%d (reward %.3f)\n", actionID, resp.Reward)
	return nil
}
