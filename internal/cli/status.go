package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/app"
	"github.com/evcraddock/house-market/internal/apperr"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and session status",
		Long:  "Shows the configured endpoints and checks whether the stored session token is still valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	file, err := configFile()
	if err != nil {
		return err
	}
	cfg := file.Resolve()

	fmt.Printf("Server:  %s\n", cfg.ServerURL)
	fmt.Printf("Socket:  %s\n", cfg.SocketURL)

	token, err := file.LoadToken()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if token == "" {
		fmt.Println("Session: not logged in")
		fmt.Println("\nRun 'hm login' to authenticate.")
		return nil
	}

	a := app.New(ctx, cfg, file)
	defer a.Close()

	err = a.Session.Initialize(ctx)
	switch {
	case errors.Is(err, apperr.ErrSessionExpired):
		fmt.Println("Status:  ✗ session expired")
		fmt.Println("\nRun 'hm login' to re-authenticate.")
	case err != nil:
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
	default:
		user, _ := a.Session.User()
		fmt.Printf("Status:  ✓ connected as %s (%s)\n", user.Name, user.Email)
	}

	return nil
}
