package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAmenitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "amenities",
		Short: "List the amenities a property can offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			amenities, err := a.Catalog.FetchAmenities(ctx)
			if err != nil {
				return fmt.Errorf("fetching amenities: %w", err)
			}
			if isJSON() {
				return printJSON(amenities)
			}
			if len(amenities) == 0 {
				fmt.Println("No amenities.")
				return nil
			}
			for _, name := range amenities {
				fmt.Println(name)
			}
			return nil
		},
	}
}
