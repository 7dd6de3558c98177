package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Suhaibinator/SRelease/internal/api"
	"github.com/Suhaibinator/SRelease/internal/api/response"
	"github.com/Suhaibinator/SRelease/internal/models"
	"github.com/Suhaibinator/SRelease/internal/releases"
	"go.uber.org/zap"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
	Details    []response.FieldError
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	for _, d := range e.Details {
		msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
	}
	return msg
}

// Client talks to a release notes server. Admin calls log in lazily and keep
// the session and CSRF cookies in a jar.
type Client struct {
	baseURL  string
	origin   string
	username string
	password string
	http     *http.Client
	log      *zap.Logger

	csrfToken string
	loggedIn  bool
}

// transport overrides the HTTP transport; nil uses http.DefaultTransport.
var transport http.RoundTripper

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, username, password string, log *zap.Logger) (*Client, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: want http(s)://host[:port]", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		origin:   u.Scheme + "://" + u.Host,
		username: username,
		password: password,
		http:     &http.Client{Jar: jar, Transport: transport, Timeout: 30 * time.Second},
		log:      log,
	}, nil
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// do sends the request and decodes a 2xx JSON reply into out when out is non-nil.
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if req.Method != http.MethodGet {
		// Over TLS the CSRF check rejects unsafe requests without an origin.
		req.Header.Set("Origin", c.origin)
		req.Header.Set("Referer", c.origin+"/")
		if c.csrfToken != "" {
			req.Header.Set("X-CSRF-Token", c.csrfToken)
		}
	}
	c.log.Debug("Sending request", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Debug("Unparseable response", zap.ByteString("body", body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var payload response.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, Message: payload.Error, Detail: payload.Detail, Details: payload.Details}
}

func (c *Client) get(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// Login fetches a CSRF token and starts an admin session. It is a no-op once
// the client is logged in.
func (c *Client) Login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	if c.username == "" || c.password == "" {
		return fmt.Errorf("admin credentials are not configured, run 'srelease-cli configure --username --password'")
	}

	var token struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := c.get(ctx, c.baseURL+"/csrf-token", &token); err != nil {
		return fmt.Errorf("fetch csrf token: %w", err)
	}
	c.csrfToken = token.CSRFToken

	creds := api.LoginRequest{Username: c.username, Password: c.password}
	if err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/admin/login", creds, nil); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.loggedIn = true
	c.log.Debug("Logged in", zap.String("username", c.username))
	return nil
}

// ListProducts returns the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var out api.ListProductsResponse
	if err := c.get(ctx, c.baseURL+"/products", &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// ListReleases returns a product with its releases, newest first.
func (c *Client) ListReleases(ctx context.Context, product string) (*releases.ProductReleases, error) {
	var out releases.ProductReleases
	if err := c.get(ctx, c.url("releases", product), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRelease returns a single release with its features.
func (c *Client) GetRelease(ctx context.Context, product, version string) (*releases.ReleaseDetail, error) {
	var out releases.ReleaseDetail
	if err := c.get(ctx, c.url("releases", product, version), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRelease publishes a new release.
func (c *Client) CreateRelease(ctx context.Context, in api.CreateReleaseRequest) (*api.CreateReleaseResponse, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	var out api.CreateReleaseResponse
	if err := c.sendJSON(ctx, http.MethodPost, c.baseURL+"/releases", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRelease replaces the date and features of an existing release.
func (c *Client) UpdateRelease(ctx context.Context, product, version string, in api.UpdateReleaseRequest) error {
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodPut, c.url("releases", product, version), in, nil)
}

// DeleteRelease removes a release and its features.
func (c *Client) DeleteRelease(ctx context.Context, product, version string) error {
	if err := c.Login(ctx); err != nil {
		return err
	}
	return c.sendJSON(ctx, http.MethodDelete, c.url("releases", product, version), nil, nil)
}

// UploadImage stores an image and returns the URL the server serves it at.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := c.Login(ctx); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create form file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to write image to multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-image", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
