package assets

import "time"

// SetTestURL points a client at a test server and fixes its clock.
// This should only be used in tests.
func SetTestURL(c *Client, baseURL string, now time.Time) {
	if baseURL != "" {
		c.baseURL = baseURL
	}
	if !now.IsZero() {
		c.now = func() time.Time { return now }
	}
}
