package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/review"
)

func newReviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <apn>",
		Short: "List the reviews of a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Reviews.Open(ctx, args[0]); err != nil {
				return fmt.Errorf("fetching reviews: %w", err)
			}
			defer a.Reviews.Close()

			if isJSON() {
				return printJSON(a.Reviews.Reviews())
			}
			printReviewList(a.Reviews.Reviews())
			return nil
		},
	}
}

func newReviewCmd() *cobra.Command {
	var rating int
	var comment string

	cmd := &cobra.Command{
		Use:   "review <apn>",
		Short: "Review a property",
		Long:  "Rate a property from 1 to 5 stars with an optional comment. Reviewing a property twice edits your earlier review. Other users watching the property see the change live.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd.Context(), args[0], rating, comment)
		},
	}

	cmd.Flags().IntVar(&rating, "rating", 0, "stars, 1-5")
	cmd.Flags().StringVar(&comment, "comment", "", "review text")
	_ = cmd.MarkFlagRequired("rating")

	return cmd
}

func runReview(ctx context.Context, apn string, rating int, comment string) error {
	if !review.ValidRating(rating) {
		return fmt.Errorf("rating must be %d-%d, got %d", review.MinRating, review.MaxRating, rating)
	}

	a, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Without the push channel the review is still saved, just not broadcast.
	if err := a.Connect(ctx); err != nil {
		slog.Warn("realtime channel unavailable", "error", err)
	}

	if err := a.Reviews.Open(ctx, apn); err != nil {
		return fmt.Errorf("fetching reviews: %w", err)
	}
	defer a.Reviews.Close()

	if err := a.Reviews.Submit(ctx, apn, rating, comment); err != nil {
		return fmt.Errorf("saving review: %w", err)
	}

	own, _ := a.Reviews.OwnReview()
	if isJSON() {
		return printJSON(own)
	}
	fmt.Printf("✓ Review saved for %s\n", apn)
	printReview(own)
	return nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <apn>",
		Short: "Stream review changes for a property",
		Long:  "Prints the current reviews of a property, then every review other users write or edit until interrupted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), args[0])
		},
	}
}

func runWatch(ctx context.Context, apn string) error {
	a, err := requireLogin(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Connect(ctx); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	a.Reviews.OnRemote(func(r review.Review) {
		if isJSON() {
			_ = printJSON(r)
			return
		}
		printReview(r)
	})
	if err := a.Reviews.Open(ctx, apn); err != nil {
		return fmt.Errorf("fetching reviews: %w", err)
	}
	defer a.Reviews.Close()

	if !isJSON() {
		printReviewList(a.Reviews.Reviews())
		fmt.Fprintf(os.Stderr, "Watching %s for new reviews. Press Ctrl-C to stop.\n", apn)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	return nil
}
