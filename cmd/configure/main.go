package main

import (
	"fmt"
	"os"

	"github.com/benvon/workflow/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "workflow-configure",
		Short: "Configuration tool for WorkFlow",
		Long:  "CLI tool for drive credentials, auto-save and manual backup sync",
	}
	rootCmd.PersistentFlags().BoolVarP(&commands.Verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(commands.NewDriveCmd())
	rootCmd.AddCommand(commands.NewAutoSaveCmd())
	rootCmd.AddCommand(commands.NewPushCmd())
	rootCmd.AddCommand(commands.NewPullCmd())
	rootCmd.AddCommand(commands.NewExportCmd())
	rootCmd.AddCommand(commands.NewStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
