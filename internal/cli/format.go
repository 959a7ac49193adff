package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/review"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single listing in text format.
func printPropertySummary(p property.Property) {
	fmt.Printf("%s (%s)\n", p.Title, p.APN)
	if addr := p.Address(); addr != "" {
		fmt.Printf("  Address:   %s\n", addr)
	}
	if p.Type != "" {
		fmt.Printf("  Type:      %s\n", p.Type)
	}
	if p.Status != "" {
		fmt.Printf("  Status:    %s\n", p.Status)
	}
	fmt.Printf("  For:       %s\n", p.AvailableFor)
	if p.Price != nil {
		fmt.Printf("  Price:     $%s\n", formatPrice(*p.Price))
	}
	if p.MonthlyRent != nil {
		fmt.Printf("  Rent:      $%s/mo\n", formatPrice(*p.MonthlyRent))
	}
	if p.SecurityDeposit != nil {
		fmt.Printf("  Deposit:   $%s\n", formatPrice(*p.SecurityDeposit))
	}
	if p.Area != nil {
		fmt.Printf("  Area:      %g sqft\n", *p.Area)
	}
	if p.BuiltYear != nil {
		fmt.Printf("  Built:     %d\n", *p.BuiltYear)
	}
	if len(p.Floors) > 0 {
		t := p.Totals()
		fmt.Printf("  Rooms:     %d bed, %d bath, %d hall, %d kitchen (%d floors)\n",
			t.Beds, t.Baths, t.Halls, t.Kitchens, len(p.Floors))
	}
	if amenities := append(append([]string(nil), p.IndividualAmenities...), p.SharedAmenities...); len(amenities) > 0 {
		fmt.Printf("  Amenities: %s\n", strings.Join(amenities, ", "))
	}
	if p.OwnerName != "" {
		fmt.Printf("  Owner:     %s %s\n", p.OwnerName, p.OwnerEmail)
	}
	if len(p.Images) > 0 {
		fmt.Printf("  Images:    %d\n", len(p.Images))
	}
	if p.IsWish {
		fmt.Println("  ♥ on your wishlist")
	}
}

// printPropertyTable prints a list of listings as a formatted table.
func printPropertyTable(props []property.Property) error {
	if len(props) == 0 {
		fmt.Println("No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "APN\tTITLE\tCITY\tFOR\tPRICE\tBED\tWISH"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "---\t-----\t----\t---\t-----\t---\t----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		beds := "-"
		if len(p.Floors) > 0 {
			beds = fmt.Sprintf("%d", p.Totals().Beds)
		}
		city := p.City
		if city == "" {
			city = "-"
		}
		wish := ""
		if p.IsWish {
			wish = "♥"
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.APN, truncate(p.Title, 40), city, p.AvailableFor, priceLabel(p), beds, wish); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Printf("\nTotal: %d properties\n", len(props))
	return nil
}

// priceLabel shows the sale price, the monthly rent, or both.
func priceLabel(p property.Property) string {
	var parts []string
	if p.Price != nil {
		parts = append(parts, "$"+formatPrice(*p.Price))
	}
	if p.MonthlyRent != nil {
		parts = append(parts, "$"+formatPrice(*p.MonthlyRent)+"/mo")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " | ")
}

// printReviewList prints reviews in text format.
func printReviewList(reviews []review.Review) {
	if len(reviews) == 0 {
		fmt.Println("No reviews.")
		return
	}

	for _, r := range reviews {
		printReview(r)
	}
}

func printReview(r review.Review) {
	author := r.Name
	if author == "" {
		author = "anonymous"
	}
	fmt.Printf("%s  %s\n", formatRating(r.Ratings), author)
	if r.Comments != "" {
		fmt.Printf("  %s\n", r.Comments)
	}
	fmt.Println()
}

// formatPrice formats a dollar amount, rounded to whole dollars, with commas.
func formatPrice(dollars float64) string {
	s := fmt.Sprintf("%d", int64(math.Round(dollars)))

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) > 3 {
		var parts []string
		for len(s) > 3 {
			parts = append([]string{s[len(s)-3:]}, parts...)
			s = s[:len(s)-3]
		}
		s = strings.Join(append([]string{s}, parts...), ",")
	}
	if neg {
		return "-" + s
	}
	return s
}

// formatRating returns a star representation of a rating.
func formatRating(rating int) string {
	if rating < review.MinRating {
		rating = review.MinRating
	}
	if rating > review.MaxRating {
		rating = review.MaxRating
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", review.MaxRating-rating)
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
