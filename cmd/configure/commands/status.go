package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the remote and local data summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			st := a.Sync.Status()
			settings := a.Workspace.Settings()
			fmt.Printf("Remote:    %s\n", st.Remote)
			fmt.Printf("  Ready:     %t\n", st.RemoteReady)
			fmt.Printf("  Signed in: %t\n", st.SignedIn)
			fmt.Printf("Auto-save: %t\n", settings.AutoSave)
			fmt.Println()
			fmt.Printf("Projects:  %d\n", len(a.Workspace.Projects()))
			fmt.Printf("Tasks:     %d\n", len(a.Workspace.Tasks()))
			fmt.Printf("Notes:     %d\n", len(a.Workspace.Notes().Notes))

			var total float64
			for _, d := range a.Workspace.DailyTotals() {
				total += d.Hours
			}
			fmt.Printf("Hours this week: %.2f\n", total)
			return nil
		},
	}
}
