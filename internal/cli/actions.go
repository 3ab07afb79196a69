package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haskel/pacer/internal/action"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the action catalogue",
	Long:  `Print every action a recommendation can name, with its stable ID.`,
	RunE:  runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
}

func runActions(cmd *cobra.Command, args []string) error {
	actions := action.NewSpace().All()

	if jsonOut {
		data, err := json.MarshalIndent(actions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%3s  %-9s %-9s %5s  %s\n", "ID", "TYPE", "INTENSITY", "MIN", "DESCRIPTION")
	for _, a := range actions {
		fmt.Printf("%3d  %-9s %-9s %5d  %s\n", a.ID, a.WorkoutType, a.Intensity, a.DurationMinutes, a.Description)
	}
	return nil
}
