package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload listing photos to the image host",
		Long:  "Uploads photos and prints their URLs. With --delete, the arguments are URLs of earlier uploads to remove; this needs asset_api_key and asset_api_secret.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			host, err := a.Assets()
			if err != nil {
				return err
			}

			if remove {
				for _, u := range args {
					if err := host.Delete(ctx, u); err != nil {
						return fmt.Errorf("deleting %s: %w", u, err)
					}
					if !isJSON() {
						fmt.Printf("✓ Deleted %s\n", u)
					}
				}
				if isJSON() {
					return printJSON(map[string]interface{}{"deleted": args})
				}
				return nil
			}

			urls, err := host.UploadMany(ctx, args)
			if err != nil {
				return fmt.Errorf("uploading: %w", err)
			}
			if isJSON() {
				return printJSON(urls)
			}
			for i, u := range urls {
				fmt.Printf("%s\t%s\n", args[i], u)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "delete the given URLs instead of uploading")

	return cmd
}
