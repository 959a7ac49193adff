package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/config"
)

func newLoginCmd() *cobra.Command {
	var email, server string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long:  "Prompts for your password, signs in, and stores the session token in the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), email, server)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (prompted if omitted)")
	cmd.Flags().StringVar(&server, "server", "", "server URL to store in the config")

	return cmd
}

func runLogin(ctx context.Context, email, server string) error {
	if err := saveServer(server); err != nil {
		return err
	}

	var err error
	if email == "" {
		if email, err = prompt(stdin, "Email: "); err != nil {
			return err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	creds := account.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validateCredentials(creds); err != nil {
		return err
	}

	a, _, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.Session.Login(ctx, creds)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(user)
	}
	fmt.Printf("✓ Logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

// validateCredentials checks the fields the server requires.
func validateCredentials(c account.Credentials) error {
	if c.Email == "" {
		return fmt.Errorf("no email provided")
	}
	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("invalid email address: %s", c.Email)
	}
	if c.Password == "" {
		return fmt.Errorf("no password provided")
	}
	return nil
}

// saveServer stores a server URL given on the command line.
func saveServer(server string) error {
	if server == "" {
		return nil
	}
	file, err := configFile()
	if err != nil {
		return err
	}
	// Load existing config to preserve other fields
	cfg, err := file.Load()
	if err != nil {
		cfg = config.Config{}
	}
	cfg.ServerURL = strings.TrimRight(server, "/")
	if err := file.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}
