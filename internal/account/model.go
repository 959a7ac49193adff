// Package account provides the signed-in user model.
package account

import "strings"

// User is the authenticated user's profile.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// NormalizedID returns the user id with surrounding whitespace removed.
// The backend has been seen to pad ids, so comparisons use this form.
func (u User) NormalizedID() string {
	return strings.TrimSpace(u.ID)
}

// Credentials are the fields needed to log in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the registration or profile-update payload.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}
