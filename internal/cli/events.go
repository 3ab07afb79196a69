package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/loop"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the recommendation and feedback audit log",
	RunE:  runEvents,
}

var eventsLimit int

func init() {
	eventsCmd.Flags().StringVar(&userID, "user-id", "", "only events of this user")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "number of most recent events")
	rootCmd.AddCommand(eventsCmd)
}

type eventsResponse struct {
	Events []loop.Event `json:"events"`
	Count  int          `json:"count"`
}

func runEvents(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(eventsLimit))
	if userID != "" {
		q.Set("user_id", userID)
	}

	var resp eventsResponse
	data, err := NewClient().Call(http.MethodGet, "/events?"+q.Encode(), nil, &resp)
	if err != nil {
		return fmt.Errorf("failed to get events: %w", err)
	}

	if jsonOut {
		printJSON(data)
		return nil
	}

	if resp.Count == 0 {
		fmt.Println("No events recorded yet.")
		return nil
	}

	for _, e := range resp.Events {
		line := fmt.Sprintf("%s  %-17s %-12s action #%-2d", e.Timestamp.Local().Format(time.DateTime), e.Type, e.UserID, e.ActionID)
		if e.Reward != nil {
			line += fmt.Sprintf("  reward %.3f", *e.Reward)
		}
		fmt.Println(line)
	}
	return nil
}
