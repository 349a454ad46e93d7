// ABOUTME: Minimal HTTP client for the Mastodon REST API.
// ABOUTME: JSON endpoints plus multipart media upload, all bearer-token authenticated.
package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client talks to one Mastodon server on behalf of one account.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	media   *http.Client
}

// NewClient builds a client for the given instance address ("https://" is
// assumed when no scheme is present) and access token.
func NewClient(instance, token string) *Client {
	base := strings.TrimSuffix(instance, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{
		baseURL: base,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		media:   &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// apiError turns a non-2xx response into an error carrying the server's
// "error" message when one is present.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("%s %s: %s (%s)", resp.Request.Method, resp.Request.URL.Path, resp.Status, body.Error)
	}
	return fmt.Errorf("%s %s: %s", resp.Request.Method, resp.Request.URL.Path, resp.Status)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// VerifyCredentials confirms the token and returns the account it belongs to.
func (c *Client) VerifyCredentials(ctx context.Context) (Account, error) {
	var acct Account
	err := c.getJSON(ctx, "/api/v1/accounts/verify_credentials", nil, &acct)
	return acct, err
}

// ServerLimits fetches the server's posting limits, substituting the stock
// Mastodon defaults for anything the server leaves unset.
func (c *Client) ServerLimits(ctx context.Context) (Limits, error) {
	var instance struct {
		Configuration struct {
			Statuses struct {
				MaxCharacters       int `json:"max_characters"`
				MaxMediaAttachments int `json:"max_media_attachments"`
			} `json:"statuses"`
		} `json:"configuration"`
	}
	if err := c.getJSON(ctx, "/api/v2/instance", nil, &instance); err != nil {
		return Limits{}, err
	}
	limits := Limits{
		MaxCharacters:       instance.Configuration.Statuses.MaxCharacters,
		MaxMediaAttachments: instance.Configuration.Statuses.MaxMediaAttachments,
	}
	if limits.MaxCharacters <= 0 {
		limits.MaxCharacters = DefaultMaxCharacters
	}
	if limits.MaxMediaAttachments <= 0 {
		limits.MaxMediaAttachments = DefaultMaxMediaAttachments
	}
	return limits, nil
}

// AccountStatuses fetches one page of the account's statuses, newest first.
// Pass the last status id of the previous page as maxID to continue; "" for
// the first page.
func (c *Client) AccountStatuses(ctx context.Context, accountID, maxID string, limit int) ([]Status, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if maxID != "" {
		query.Set("max_id", maxID)
	}
	var statuses []Status
	err := c.getJSON(ctx, "/api/v1/accounts/"+accountID+"/statuses", query, &statuses)
	return statuses, err
}

// StatusSource fetches the original plain text of a status, as distinct from
// the rendered HTML in its content field.
func (c *Client) StatusSource(ctx context.Context, id string) (string, error) {
	var source struct {
		Text string `json:"text"`
	}
	if err := c.getJSON(ctx, "/api/v1/statuses/"+id+"/source", nil, &source); err != nil {
		return "", err
	}
	return source.Text, nil
}

// CreateStatus publishes a new status and returns the server's record of it.
func (c *Client) CreateStatus(ctx context.Context, params CreateStatusParams) (*Status, error) {
	var status Status
	if err := c.postJSON(ctx, "/api/v1/statuses", params, &status); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"id":         status.ID,
		"visibility": params.Visibility,
	}).Debug("created status")
	return &status, nil
}

// UploadMedia uploads one file and returns the attachment id the server
// assigned. A 202 means the server is still processing the file; the id is
// valid either way.
func (c *Client) UploadMedia(ctx context.Context, path, description string, focalX, focalY float64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}
	if description != "" {
		if err := w.WriteField("description", description); err != nil {
			return "", fmt.Errorf("build upload: %w", err)
		}
	}
	if err := w.WriteField("focus", fmt.Sprintf("%g,%g", focalX, focalY)); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v2/media", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.media.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return "", apiError(resp)
	}
	var attachment struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&attachment); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return attachment.ID, nil
}

// Bookmark bookmarks a status on the server.
func (c *Client) Bookmark(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/v1/statuses/"+id+"/bookmark", struct{}{}, nil)
}

// Unbookmark removes a bookmark from a status.
func (c *Client) Unbookmark(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/v1/statuses/"+id+"/unbookmark", struct{}{}, nil)
}

// Pin pins a status to the account's profile.
func (c *Client) Pin(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/v1/statuses/"+id+"/pin", struct{}{}, nil)
}

// Unpin unpins a status from the account's profile.
func (c *Client) Unpin(ctx context.Context, id string) error {
	return c.postJSON(ctx, "/api/v1/statuses/"+id+"/unpin", struct{}{}, nil)
}

// Download streams an absolute media URL, which typically points at a file
// host rather than the API, so no auth header is attached. The caller closes
// the returned body.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.media.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return nil, apiError(resp)
	}
	return resp.Body, nil
}
