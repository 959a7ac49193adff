package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/account"
)

func newRegisterCmd() *cobra.Command {
	var profile account.Profile

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), profile)
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "your name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "account email")
	cmd.Flags().StringVar(&profile.Phone, "phone", "", "contact phone shown on your listings")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runRegister(ctx context.Context, profile account.Profile) error {
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	profile.Email = strings.TrimSpace(profile.Email)
	profile.Password = password
	if err := validateCredentials(account.Credentials{Email: profile.Email, Password: password}); err != nil {
		return err
	}

	a, _, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.Session.Register(ctx, profile)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(user)
	}
	fmt.Printf("✓ Registered and logged in as %s\n", user.Name)
	return nil
}
