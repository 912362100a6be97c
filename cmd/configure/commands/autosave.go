package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewAutoSaveCmd creates the autosave command
func NewAutoSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "autosave <on|off>",
		Short:     "Turn auto-save to the backup file on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected 'on' or 'off', got %q", args[0])
			}

			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			a.Workspace.SetAutoSave(ctx, enabled)
			fmt.Printf("Auto-save is %s\n", args[0])
			return nil
		},
	}
}
