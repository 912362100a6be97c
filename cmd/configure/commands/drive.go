package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/workflow/internal/app"
	"github.com/spf13/cobra"
)

// NewDriveCmd creates the drive command and its subcommands
func NewDriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Manage the Google Drive connection",
	}
	cmd.AddCommand(newDriveSetCmd(), newDriveLoginCmd(), newDriveLogoutCmd())
	return cmd
}

func requireDrive(a *app.App) error {
	if a.Drive == nil {
		return fmt.Errorf("REMOTE_BACKEND is not %q", "drive")
	}
	return nil
}

func newDriveSetCmd() *cobra.Command {
	var apiKey, clientID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the drive API key and OAuth client id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" && clientID == "" {
				return fmt.Errorf("required flags: --api-key and/or --client-id")
			}

			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)

			creds := a.Workspace.Settings().Drive
			if apiKey != "" {
				creds.APIKey = apiKey
			}
			if clientID != "" {
				creds.ClientID = clientID
			}
			creds = a.Workspace.SetDriveCredentials(ctx, creds)

			fmt.Printf("Saved drive credentials (client id: %s)\n", creds.ClientID)
			if !creds.Complete() {
				fmt.Println("Both --api-key and --client-id are needed before signing in")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Google API key")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID")

	return cmd
}

func newDriveLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google Drive with a device code",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)
			if err := requireDrive(a); err != nil {
				return err
			}

			login, err := a.Drive.BeginDeviceLogin(ctx)
			if err != nil {
				return fmt.Errorf("failed to start sign-in: %w", err)
			}
			fmt.Printf("Open %s and enter the code %s\n", login.VerificationURL, login.UserCode)

			deadline := login.ExpiresAt
			if deadline.IsZero() {
				deadline = time.Now().Add(15 * time.Minute)
			}
			waitCtx, cancel := context.WithDeadline(ctx, deadline)
			defer cancel()
			if err := a.Drive.CompleteDeviceLogin(waitCtx, login); err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}

			fmt.Println("Connected to Google Drive")
			return nil
		},
	}
}

func newDriveLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke and forget the drive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeApp(a)
			if err := requireDrive(a); err != nil {
				return err
			}

			if err := a.Drive.SignOut(ctx); err != nil {
				return fmt.Errorf("failed to sign out: %w", err)
			}
			fmt.Println("Disconnected from Google Drive")
			return nil
		},
	}
}
