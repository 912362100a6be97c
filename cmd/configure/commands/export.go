package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/benvon/workflow/internal/store"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a dated JSON backup of the local data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			name, data, err := a.Workspace.ExportBackup(time.Now())
			if err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if err := store.WriteFileAtomic(path, data); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the backup to")

	return cmd
}
