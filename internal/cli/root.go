// Package cli defines the cobra command tree for house-market.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/logging"
)

var (
	flagFormat string
	flagConfig string
	flagDev    bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hm",
		Short:         "Browse, list and review homes on the marketplace",
		Long:          "A client for the house marketplace. Browse listings, keep a wishlist, publish your own properties, and review homes with live updates from other users.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(flagDev)
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default: ~/.config/hm/config.yaml)")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "verbose, human-readable logging on stderr")

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newProfileCmd(),
		newStatusCmd(),
		newListCmd(),
		newMineCmd(),
		newShowCmd(),
		newAddCmd(),
		newUpdateCmd(),
		newWishCmd(),
		newAmenitiesCmd(),
		newReviewsCmd(),
		newReviewCmd(),
		newWatchCmd(),
		newRecommendCmd(),
		newChatCmd(),
		newUploadCmd(),
		newVersionCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}
