package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		Long:  "Removes the stored session token from the config file. The server is not contacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context) error {
	a, file, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := file.LoadToken()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if token == "" {
		fmt.Println("Not logged in.")
		return nil
	}

	if err := a.Session.Logout(); err != nil {
		return err
	}

	fmt.Println("✓ Logged out. Session token removed.")
	return nil
}
