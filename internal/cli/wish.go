package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wish <apn>",
		Short: "Add or remove a property from your wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			apn := args[0]

			a, err := requireLogin(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Catalog.FetchAll(ctx); err != nil {
				return fmt.Errorf("fetching properties: %w", err)
			}
			wish, err := a.Catalog.ToggleWishlist(ctx, apn)
			if err != nil {
				return fmt.Errorf("updating wishlist: %w", err)
			}

			if isJSON() {
				return printJSON(map[string]interface{}{
					"apn":     apn,
					"is_wish": wish,
				})
			}
			if wish {
				fmt.Printf("♥ %s added to your wishlist\n", apn)
			} else {
				fmt.Printf("%s removed from your wishlist\n", apn)
			}
			return nil
		},
	}
}
