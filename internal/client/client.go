// Package client provides an HTTP client for the marketplace REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evcraddock/house-market/internal/account"
	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/logging"
	"github.com/evcraddock/house-market/internal/property"
	"github.com/evcraddock/house-market/internal/review"
)

// Client is an HTTP client for the marketplace API.
// It is safe for concurrent use; the bearer token may be swapped at any time.
type Client struct {
	baseURL      string
	recommendURL string
	httpClient   *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a new API client.
func New(baseURL, token string) *Client {
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:      base,
		recommendURL: base,
		token:        token,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: logging.NewTransport(nil),
		},
	}
}

// SetToken replaces the bearer credential sent with every request.
// An empty token sends unauthenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetRecommendURL points recommendation lookups at a separate service.
func (c *Client) SetRecommendURL(u string) {
	if u != "" {
		c.recommendURL = strings.TrimRight(u, "/")
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	return e.Message
}

// UserMessage returns the server-provided message.
func (e *APIError) UserMessage() string {
	return e.Message
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string       `json:"token"`
	User  account.User `json:"user"`
}

type userResponse struct {
	User account.User `json:"user"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, profile account.Profile) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, c.baseURL+"/auth/register", profile, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds account.Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, c.baseURL+"/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*account.User, error) {
	var resp userResponse
	if err := c.get(ctx, c.baseURL+"/auth/me", &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// UpdateUser updates the signed-in user's profile.
func (c *Client) UpdateUser(ctx context.Context, profile account.Profile) (*account.User, error) {
	var resp userResponse
	if err := c.send(ctx, http.MethodPut, c.baseURL+"/auth/update", profile, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ListProperties returns the catalog as seen by the current viewer,
// with is_wish set per viewer.
func (c *Client) ListProperties(ctx context.Context) ([]property.Property, error) {
	var props []property.Property
	if err := c.get(ctx, c.baseURL+"/property/properties", &props); err != nil {
		return nil, err
	}
	return props, nil
}

// ListOwnedProperties returns the listings owned by the current user.
func (c *Client) ListOwnedProperties(ctx context.Context) ([]property.Property, error) {
	var props []property.Property
	if err := c.get(ctx, c.baseURL+"/property/properties_owner", &props); err != nil {
		return nil, err
	}
	return props, nil
}

// addResponse accepts both a bare listing and a {"property": ...} wrapper.
type addResponse struct {
	APN      string             `json:"apn"`
	Property *property.Property `json:"property"`
}

// AddProperty submits a new listing and returns its server-assigned APN.
func (c *Client) AddProperty(ctx context.Context, p property.Property) (string, error) {
	var resp addResponse
	if err := c.post(ctx, c.baseURL+"/property/add", p, &resp); err != nil {
		return "", err
	}
	if resp.APN == "" && resp.Property != nil {
		resp.APN = resp.Property.APN
	}
	if resp.APN == "" {
		return "", apperr.Network(fmt.Errorf("add property: response has no apn"))
	}
	return resp.APN, nil
}

// UpdateProperty writes a partial update to a listing.
func (c *Client) UpdateProperty(ctx context.Context, apn string, patch property.Patch) error {
	return c.send(ctx, http.MethodPut, c.baseURL+"/property/update/"+url.PathEscape(apn), patch, nil)
}

// AddToWishlist adds a listing to the current user's wishlist.
func (c *Client) AddToWishlist(ctx context.Context, apn string) error {
	body := map[string]string{"propertyId": apn}
	return c.post(ctx, c.baseURL+"/property/wish", body, nil)
}

// RemoveFromWishlist removes a listing from the current user's wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, apn string) error {
	return c.send(ctx, http.MethodDelete, c.baseURL+"/property/unwish/"+url.PathEscape(apn), nil, nil)
}

// ListAmenities returns the amenity names a listing may offer.
func (c *Client) ListAmenities(ctx context.Context) ([]string, error) {
	var amenities []string
	if err := c.get(ctx, c.baseURL+"/property/amenities", &amenities); err != nil {
		return nil, err
	}
	return amenities, nil
}

// ListReviews returns all reviews for a listing.
func (c *Client) ListReviews(ctx context.Context, apn string) ([]review.Review, error) {
	var reviews []review.Review
	if err := c.get(ctx, c.baseURL+"/review/"+url.PathEscape(apn), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

type reviewRequest struct {
	PropertyID string `json:"propertyId"`
	Ratings    int    `json:"ratings"`
	Comments   string `json:"comments"`
}

// SendReview creates the current user's review of a listing.
func (c *Client) SendReview(ctx context.Context, apn string, rating int, comment string) error {
	body := reviewRequest{PropertyID: apn, Ratings: rating, Comments: comment}
	return c.post(ctx, c.baseURL+"/review/send", body, nil)
}

// EditReview replaces the current user's review of a listing.
func (c *Client) EditReview(ctx context.Context, apn string, rating int, comment string) error {
	body := reviewRequest{PropertyID: apn, Ratings: rating, Comments: comment}
	return c.send(ctx, http.MethodPut, c.baseURL+"/review/edit", body, nil)
}

// Recommendations returns the APNs of listings similar to apn.
func (c *Client) Recommendations(ctx context.Context, apn string) ([]string, error) {
	var apns []string
	if err := c.get(ctx, c.recommendURL+"/recommend/"+url.PathEscape(apn), &apns); err != nil {
		return nil, err
	}
	return apns, nil
}

// Ask sends a message to the chat assistant and returns its reply.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	body := map[string]string{"message": message}
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := c.post(ctx, c.baseURL+"/chat/ask", body, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(ctx context.Context, rawURL string, result interface{}) error {
	return c.send(ctx, http.MethodGet, rawURL, nil, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(ctx context.Context, rawURL string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPost, rawURL, body, result)
}

// send builds a request with an optional JSON body and executes it.
func (c *Client) send(ctx context.Context, method, rawURL string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result interface{}) error {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := ulid.Make().String()
	req.Header.Set(logging.RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network(fmt.Errorf("request failed: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Network(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, respBody),
			RequestID:  requestID,
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return apperr.Auth(apiErr)
		}
		return apperr.Network(apiErr)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return apperr.Network(fmt.Errorf("decoding response: %w", err))
		}
	}

	return nil
}

// errorMessage extracts the server's message from an error body.
func errorMessage(status int, body []byte) string {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return fmt.Sprintf("server error: %s", http.StatusText(status))
}
