package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/account"
)

func newProfileCmd() *cobra.Command {
	var profile account.Profile

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
		Long:  "Without flags, prints the signed-in user. With --name, --email or --phone, updates the profile.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), profile)
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "new name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "new email")
	cmd.Flags().StringVar(&profile.Phone, "phone", "", "new phone")

	return cmd
}

func runProfile(ctx context.Context, profile account.Profile) error {
	a, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	user, _ := a.Session.User()
	if profile != (account.Profile{}) {
		if user, err = a.Session.UpdateProfile(ctx, profile); err != nil {
			return fmt.Errorf("updating profile: %w", err)
		}
	}

	if isJSON() {
		return printJSON(user)
	}
	fmt.Printf("Name:   %s\n", user.Name)
	fmt.Printf("Email:  %s\n", user.Email)
	if user.Phone != "" {
		fmt.Printf("Phone:  %s\n", user.Phone)
	}
	return nil
}
