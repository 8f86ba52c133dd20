// Package client provides a Go SDK for the Solunex license server. It
// covers the full /api/license surface with optional request signing and
// automatic device identity resolution.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solunex/internal/security"
	v1 "solunex/pkg/contracts/api/v1"
	"solunex/pkg/contracts/domain"
)

const (
	headerSignature  = "X-Solunex-Signature"
	headerClientName = "X-Solunex-Client"
	headerClientEnv  = "X-Solunex-Env"

	defaultTimeout = 6 * time.Second
)

// APIError is a decoded RFC 7807 problem response from the server.
type APIError struct {
	Status  int    `json:"status"`
	Title   string `json:"title"`
	Detail  string `json:"detail"`
	Type    string `json:"type"`
	TraceID string `json:"trace_id"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("solunex: %s (status %d)", e.Detail, e.Status)
	}
	return fmt.Sprintf("solunex: %s (status %d)", e.Title, e.Status)
}

// Client talks to a Solunex license server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *security.Signer
	deviceID   string
	clientName string
	clientEnv  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSigningSecret enables HMAC signing of activate and ping requests.
func WithSigningSecret(secret string) Option {
	return func(c *Client) { c.signer = security.NewSigner(secret) }
}

// WithDeviceID overrides automatic device identity resolution.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// WithClientInfo sets the advisory client name and environment headers.
func WithClientInfo(name, env string) Option {
	return func(c *Client) {
		c.clientName = name
		c.clientEnv = env
	}
}

// New creates a client for the given base URL, e.g.
// "http://127.0.0.1:8080". The /api/license prefix is appended
// automatically unless already present.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(base, "/api/license") {
		base += "/api/license"
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultTimeout},
		signer:     security.NewSigner(""),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.deviceID == "" {
		c.deviceID = ResolveDeviceID()
	}

	return c, nil
}

// DeviceID returns the device identity this client binds and pings with.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Check validates a license without binding a device. Unknown keys are
// reported in the result, not as an error.
func (c *Client) Check(ctx context.Context, licenseKey string) (*domain.ValidationResult, error) {
	var out domain.ValidationResult
	if err := c.get(ctx, "/check/"+url.PathEscape(licenseKey), false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate posts the license key with this client's device identity and
// optional metadata. Like Check it never binds.
func (c *Client) Validate(ctx context.Context, licenseKey string, meta map[string]json.RawMessage) (*domain.ValidationResult, error) {
	req := v1.ValidateRequest{
		LicenseKey: licenseKey,
		DeviceID:   c.deviceID,
		Meta:       meta,
	}
	var out domain.ValidationResult
	if err := c.post(ctx, "/validate", req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Activate binds this client's device to the license. Re-activating an
// already bound device succeeds without consuming a slot.
func (c *Client) Activate(ctx context.Context, licenseKey string, meta map[string]json.RawMessage) (*domain.ActivationResult, error) {
	req := v1.ActivateRequest{
		LicenseKey: licenseKey,
		DeviceID:   c.deviceID,
		Meta:       meta,
	}
	var out domain.ActivationResult
	if err := c.post(ctx, "/activate", req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info returns the license projection for dashboards and support tooling.
func (c *Client) Info(ctx context.Context, licenseKey string) (*domain.LicenseInfo, error) {
	var out domain.LicenseInfo
	if err := c.get(ctx, "/info/"+url.PathEscape(licenseKey), false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping reports liveness of the license from the server's point of view.
// The endpoint sits behind signing when the server has a secret set.
func (c *Client) Ping(ctx context.Context, licenseKey string) (*domain.PingResult, error) {
	var out domain.PingResult
	if err := c.get(ctx, "/ping/"+url.PathEscape(licenseKey), true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, signed bool, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, signed, out)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, signed bool, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, signed, out)
}

// do executes a request. Signed requests carry an HMAC over the exact
// bytes sent, which is the empty string for GET.
func (c *Client) do(ctx context.Context, method, path string, body []byte, signed bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientName != "" {
		req.Header.Set(headerClientName, c.clientName)
	}
	if c.clientEnv != "" {
		req.Header.Set(headerClientEnv, c.clientEnv)
	}
	if signed && c.signer.Enabled() {
		req.Header.Set(headerSignature, c.signer.Sign(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Detail == "" && apiErr.Title == "" {
			apiErr.Title = http.StatusText(resp.StatusCode)
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
