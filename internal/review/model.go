// Package review provides the listing review model and the store that keeps a
// listing's reviews in sync across connected sessions.
package review

import "strings"

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating returns true if r is within the accepted star range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// Review is one user's rating of one listing. A user has at most one review
// per listing; a second submission is an edit.
type Review struct {
	PropertyID string `json:"property_id"`
	UserID     string `json:"user_id"`
	Ratings    int    `json:"ratings"`
	Comments   string `json:"comments"`
	Name       string `json:"name"`
}

// AuthoredBy reports whether r was written by userID.
func (r Review) AuthoredBy(userID string) bool {
	return strings.TrimSpace(r.UserID) == strings.TrimSpace(userID)
}
