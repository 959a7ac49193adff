package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/app"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/review"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <apn>",
		Short: "Show property details",
		Long:  "Show full details for a property, including its reviews.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), args[0])
		},
	}
}

func runShow(ctx context.Context, apn string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := loadProperty(ctx, a, apn)
	if err != nil {
		return err
	}

	if err := a.Reviews.Open(ctx, apn); err != nil {
		return fmt.Errorf("fetching reviews: %w", err)
	}
	defer a.Reviews.Close()
	reviews := a.Reviews.Reviews()

	if isJSON() {
		return printJSON(struct {
			Property property.Property `json:"property"`
			Reviews  []review.Review   `json:"reviews"`
		}{p, reviews})
	}

	printPropertySummary(p)
	fmt.Println()
	if len(reviews) > 0 {
		fmt.Printf("Reviews (%d):\n", len(reviews))
	}
	printReviewList(reviews)
	return nil
}

// loadProperty fetches the catalog, plus the viewer's own listings when
// signed in, and returns apn from it.
func loadProperty(ctx context.Context, a *app.App, apn string) (property.Property, error) {
	if err := a.Catalog.FetchAll(ctx); err != nil {
		return property.Property{}, fmt.Errorf("fetching properties: %w", err)
	}
	if p, ok := a.Catalog.Property(apn); ok {
		return p, nil
	}
	if a.Session.IsAuthenticated() {
		if err := a.Catalog.FetchOwned(ctx); err != nil {
			return property.Property{}, fmt.Errorf("fetching your properties: %w", err)
		}
		if p, ok := a.Catalog.Property(apn); ok {
			return p, nil
		}
	}
	return property.Property{}, fmt.Errorf("property not found: %s", apn)
}
