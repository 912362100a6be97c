package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/workflow/internal/remote"
	"github.com/spf13/cobra"
)

// NewPushCmd creates the push command
func NewPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write the local data to the backup file",
		Long: `Write the local data to the backup file. The write fails when the file
changed since this device last saved or loaded it; use --force to overwrite it anyway.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := a.Sync.SaveNow(ctx, force); err != nil {
				switch {
				case errors.Is(err, remote.ErrNotSignedIn):
					return fmt.Errorf("not signed in, run 'drive login' first")
				case errors.Is(err, remote.ErrRevisionConflict):
					return fmt.Errorf("the backup file changed on another device, run 'pull' or 'push --force'")
				}
				return err
			}
			fmt.Printf("Saved to %s\n", a.Remote.Name())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the backup file even if it changed elsewhere")
	return cmd
}

// NewPullCmd creates the pull command
func NewPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local data with the backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.Sync.LoadNow(ctx)
			if err != nil {
				if errors.Is(err, remote.ErrNotSignedIn) {
					return fmt.Errorf("not signed in, run 'drive login' first")
				}
				return err
			}
			if !res.Found {
				fmt.Println("No backup file found")
				return nil
			}
			fmt.Printf("Loaded backup from %s (last updated %s)\n", a.Remote.Name(), res.LastUpdated)
			return nil
		},
	}
}
