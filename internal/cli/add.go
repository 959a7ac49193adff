package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/house-market/internal/property"
)

func newAddCmd() *cobra.Command {
	var images []string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Publish a property from a JSON or YAML file",
		Long:  "Reads a listing from a JSON or YAML file, uploads any --image files to the image host, and publishes it. Rent listings need monthly_rent and security_deposit; sale listings need price.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd.Context(), args[0], images)
		},
	}

	cmd.Flags().StringArrayVar(&images, "image", nil, "photo to upload and attach (repeatable)")

	return cmd
}

func runAdd(ctx context.Context, path string, images []string) error {
	p, err := loadPropertyFile(path)
	if err != nil {
		return err
	}
	if err := property.Validate(p); err != nil {
		if required := property.RequiredPricing(p.AvailableFor); len(required) > 0 {
			return fmt.Errorf("%w (%s listings need %s)", err, p.AvailableFor, strings.Join(required, ", "))
		}
		return err
	}

	a, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(images) > 0 {
		host, err := a.Assets()
		if err != nil {
			return err
		}
		if !isJSON() {
			fmt.Printf("Uploading %d images...\n", len(images))
		}
		urls, err := host.UploadMany(ctx, images)
		if err != nil {
			return fmt.Errorf("uploading images: %w", err)
		}
		for i, u := range urls {
			p.Images = append(p.Images, property.Image{URL: u, Description: filepath.Base(images[i])})
		}
	}

	apn, err := a.Catalog.Add(ctx, p)
	if err != nil {
		return fmt.Errorf("adding property: %w", err)
	}
	p.APN = apn

	if isJSON() {
		return printJSON(p)
	}

	fmt.Println("Property added successfully!")
	printPropertySummary(p)
	return nil
}

// loadPropertyFile reads a listing from path. Files ending in .yaml or .yml
// are YAML, anything else JSON. YAML keys are the JSON field names.
func loadPropertyFile(path string) (property.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return property.Property{}, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var fields map[string]interface{}
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return property.Property{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if data, err = json.Marshal(fields); err != nil {
			return property.Property{}, fmt.Errorf("converting %s: %w", path, err)
		}
	}

	var p property.Property
	if err := json.Unmarshal(data, &p); err != nil {
		return property.Property{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}
