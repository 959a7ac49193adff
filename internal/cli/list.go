package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/property"
)

type listOptions struct {
	wishlist bool
	forMode  string
	city     string
}

func newListCmd() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List marketplace properties",
		Long:  "List the marketplace catalog, optionally only your wishlist, filtered by availability or city.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.wishlist, "wishlist", false, "only properties on your wishlist")
	cmd.Flags().StringVar(&opts.forMode, "for", "", "only properties available for Rent, Sell or Both")
	cmd.Flags().StringVar(&opts.city, "city", "", "only properties in this city")

	return cmd
}

func runList(ctx context.Context, opts listOptions) error {
	mode, err := parseAvailability(opts.forMode)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Catalog.FetchAll(ctx); err != nil {
		return fmt.Errorf("fetching properties: %w", err)
	}

	props := a.Catalog.Properties()
	if opts.wishlist {
		props = a.Catalog.Wishlist()
	}
	props = filterProperties(props, mode, opts.city)

	if isJSON() {
		return printJSON(props)
	}
	return printPropertyTable(props)
}

func newMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the properties you own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := requireLogin(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Catalog.FetchOwned(ctx); err != nil {
				return fmt.Errorf("fetching your properties: %w", err)
			}
			if isJSON() {
				return printJSON(a.Catalog.Owned())
			}
			return printPropertyTable(a.Catalog.Owned())
		},
	}
}

// parseAvailability accepts an availability mode case-insensitively.
// Empty means no filter.
func parseAvailability(s string) (property.Availability, error) {
	if s == "" {
		return "", nil
	}
	for _, m := range []property.Availability{property.ForRent, property.ForSale, property.ForBoth} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid availability %q (must be Rent, Sell or Both)", s)
}

// filterProperties keeps listings offered in mode and located in city.
// A listing available for Both matches Rent and Sell.
func filterProperties(props []property.Property, mode property.Availability, city string) []property.Property {
	out := make([]property.Property, 0, len(props))
	for _, p := range props {
		if mode != "" && p.AvailableFor != mode && p.AvailableFor != property.ForBoth {
			continue
		}
		if city != "" && !strings.EqualFold(p.City, city) {
			continue
		}
		out = append(out, p)
	}
	return out
}
