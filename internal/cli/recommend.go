package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <apn>",
		Short: "List properties similar to one you like",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Catalog.FetchAll(ctx); err != nil {
				return fmt.Errorf("fetching properties: %w", err)
			}
			props, err := a.Catalog.Recommend(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetching recommendations: %w", err)
			}

			if isJSON() {
				return printJSON(props)
			}
			return printPropertyTable(props)
		},
	}
}
