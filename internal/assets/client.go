// Package assets uploads listing images to the image host and removes them
// again.
package assets

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/house-market/internal/apperr"
	"github.com/evcraddock/house-market/internal/logging"
)

const (
	defaultBaseURL = "https://api.cloudinary.com/v1_1"
	uploadLimit    = 4
)

// Config identifies the image host account.
type Config struct {
	Cloud  string
	Preset string
	// APIKey and APISecret are only needed for Delete.
	APIKey    string
	APISecret string
}

// Client talks to the image host.
type Client struct {
	httpClient *http.Client
	cfg        Config
	now        func() time.Time

	// Overridable for testing.
	baseURL string
}

// NewClient creates an image host client. Cloud and Preset are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Cloud == "" {
		return nil, apperr.Validation("asset cloud name is required")
	}
	if cfg.Preset == "" {
		return nil, apperr.Validation("asset upload preset is required")
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: logging.NewTransport(nil),
		},
		cfg:     cfg,
		now:     time.Now,
		baseURL: defaultBaseURL,
	}, nil
}

type hostResponse struct {
	SecureURL string `json:"secure_url"`
	Result    string `json:"result"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends one image and returns its public URL.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	if err := w.WriteField("upload_preset", c.cfg.Preset); err != nil {
		return "", fmt.Errorf("writing form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing form: %w", err)
	}

	resp, err := c.post(ctx, "image/upload", w.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if resp.SecureURL == "" {
		return "", apperr.Network(fmt.Errorf("uploading %s: response has no url", name))
	}
	return resp.SecureURL, nil
}

// UploadFile uploads the image at path.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("closing image", "path", path, "error", cerr)
		}
	}()
	return c.Upload(ctx, filepath.Base(path), f)
}

// UploadMany uploads paths in parallel and returns their URLs in the same
// order. The first failure cancels the remaining uploads.
func (c *Client) UploadMany(ctx context.Context, paths []string) ([]string, error) {
	urls := make([]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadLimit)
	for i, p := range paths {
		g.Go(func() error {
			u, err := c.UploadFile(ctx, p)
			if err != nil {
				return err
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// Delete removes the image at rawURL from the host.
func (c *Client) Delete(ctx context.Context, rawURL string) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return apperr.Validation("asset api key and secret are required to delete")
	}
	publicID, err := PublicID(rawURL)
	if err != nil {
		return err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	form := url.Values{
		"public_id": {publicID},
		"timestamp": {timestamp},
		"api_key":   {c.cfg.APIKey},
		"signature": {c.sign(publicID, timestamp)},
	}

	resp, err := c.post(ctx, "image/destroy", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("deleting %s: %w", publicID, err)
	}
	if resp.Result != "" && resp.Result != "ok" {
		return fmt.Errorf("%w: deleting %s: %s", apperr.ErrNotFound, publicID, resp.Result)
	}
	return nil
}

// sign computes the request signature the host expects for destroy calls.
func (c *Client) sign(publicID, timestamp string) string {
	sum := sha1.Sum([]byte("public_id=" + publicID + "&timestamp=" + timestamp + c.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}

// PublicID returns the host's id for an image URL: the last path segment
// without its extension.
func PublicID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", apperr.Validation("invalid image url %q", rawURL)
	}
	base := path.Base(u.Path)
	id := strings.TrimSuffix(base, path.Ext(base))
	if id == "" || id == "." || id == "/" {
		return "", apperr.Validation("image url %q has no public id", rawURL)
	}
	return id, nil
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader) (*hostResponse, error) {
	target := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.cfg.Cloud), endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network(fmt.Errorf("sending request: %w", err))
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	var result hostResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && err != io.EOF {
		return nil, apperr.Network(fmt.Errorf("decoding response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, apperr.Network(errors.New(msg))
	}
	return &result, nil
}
