package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/property"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <apn> <field=value>...",
		Short: "Change fields of a property you own",
		Long: `Change fields of a property you own. Values are parsed as JSON when they
can be, otherwise taken as text:

  hm update 123-45 monthly_rent=1500 title="Sunny two bed"
  hm update 123-45 available_for=Both price=420000
  hm update 123-45 tour_url=null`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), args[0], args[1:])
		},
	}
}

func runUpdate(ctx context.Context, apn string, assignments []string) error {
	patch, err := parsePatch(assignments)
	if err != nil {
		return err
	}

	a, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := loadProperty(ctx, a, apn); err != nil {
		return err
	}
	if err := a.Catalog.Update(ctx, apn, patch); err != nil {
		return fmt.Errorf("updating property: %w", err)
	}

	p, _ := a.Catalog.Property(apn)
	if isJSON() {
		return printJSON(p)
	}
	fmt.Println("Property updated.")
	printPropertySummary(p)
	return nil
}

// parsePatch turns field=value arguments into a patch.
func parsePatch(assignments []string) (property.Patch, error) {
	patch := property.Patch{}
	for _, arg := range assignments {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q (want field=value)", arg)
		}

		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		patch[key] = v
	}
	return patch, nil
}
