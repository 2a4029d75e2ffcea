// Package weather implements the client side of the farm backend's weather
// and Telegram endpoints: current snapshot + forecast fetch, the synthetic
// test alert, link-code issuance, and the bot update check.
//
// The client performs no retries; retry policy belongs to its callers. The
// poller surfaces failures to its error state immediately, and the linking
// loop swallows per-tick failures.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jonboulle/clockwork"

	"harvestwatch/internal/external"
	"harvestwatch/internal/types"
)

// CSRF header name expected by the backend. The token value is read from the
// same-name cookie and echoed here.
const csrfHeader = "X-CSRFToken"

// maxResponseBody caps how much of a backend response is read (1 MB).
const maxResponseBody = 1 << 20

// CSRFSource supplies the cross-site-request-forgery token for mutating
// requests. An empty token means none is available; the request proceeds
// without the header and the backend decides.
type CSRFSource interface {
	Token() string
}

// CookieCSRF reads the CSRF token from a cookie jar, the way a browser
// widget reads document.cookie.
type CookieCSRF struct {
	jar    http.CookieJar
	target *url.URL
	name   string
}

// NewCookieCSRF creates a CookieCSRF reading the named cookie for baseURL
// from the given jar.
func NewCookieCSRF(jar http.CookieJar, baseURL, name string) (*CookieCSRF, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	return &CookieCSRF{jar: jar, target: u, name: name}, nil
}

// Token returns the cookie value, or "" when the cookie is absent.
func (c *CookieCSRF) Token() string {
	if c.jar == nil {
		return ""
	}
	for _, cookie := range c.jar.Cookies(c.target) {
		if cookie.Name == c.name {
			return cookie.Value
		}
	}
	return ""
}

// StaticCSRF is a fixed-token CSRFSource, used in tests and non-browser
// deployments where the token is provisioned out of band.
type StaticCSRF string

// Token returns the static token.
func (s StaticCSRF) Token() string { return string(s) }

// Client issues the backend requests and normalizes responses and errors.
type Client struct {
	base    *external.BaseClient
	baseURL string
	csrf    CSRFSource
	clock   clockwork.Clock
	logger  *slog.Logger
}

// ClientConfig holds the dependencies for creating a Client.
type ClientConfig struct {
	// BaseURL of the farm-management backend, no trailing slash.
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	CSRF       CSRFSource
	Clock      clockwork.Clock
	Logger     *slog.Logger
}

// NewClient creates a Client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		base:    external.NewBaseClient(httpClient, "farm-backend", cfg.UserAgent),
		baseURL: cfg.BaseURL,
		csrf:    cfg.CSRF,
		clock:   clock,
		logger:  logger,
	}
}

// FetchCurrent retrieves the current snapshot, forecast, server-attached
// alerts, and the Telegram link status.
func (c *Client) FetchCurrent(ctx context.Context) (*types.CurrentPayload, error) {
	var resp currentResponse
	if err := c.call(ctx, http.MethodGet, "/api/weather/current/", false, types.ErrCodeUpstreamWeather, &resp); err != nil {
		return nil, err
	}
	return resp.toPayload(c.clock, c.logger), nil
}

// SendTestAlert asks the backend to force-generate a demonstration alert,
// letting an operator exercise the escalation path without waiting for real
// conditions. The response carries the same alert-bearing shape as
// FetchCurrent.
func (c *Client) SendTestAlert(ctx context.Context) (*types.CurrentPayload, error) {
	var resp currentResponse
	if err := c.call(ctx, http.MethodPost, "/api/weather/test-alert/", true, types.ErrCodeUpstreamWeather, &resp); err != nil {
		return nil, err
	}
	return resp.toPayload(c.clock, c.logger), nil
}

// GenerateLinkCode requests a fresh one-time Telegram linking code.
func (c *Client) GenerateLinkCode(ctx context.Context) (string, error) {
	var resp codeResponse
	if err := c.call(ctx, http.MethodGet, "/api/telegram/generate-code/", true, types.ErrCodeUpstreamTelegram, &resp); err != nil {
		return "", err
	}
	if resp.Code == "" {
		return "", types.NewAppError(types.ErrCodeUpstreamTelegram, "backend returned an empty linking code", nil)
	}
	return resp.Code, nil
}

// CheckUpdates prompts the backend to poll its upstream bot provider for new
// externally-delivered updates.
func (c *Client) CheckUpdates(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/telegram/check-updates/", false, types.ErrCodeUpstreamTelegram, nil)
}

// call executes one backend request. withCSRF attaches the CSRF header when
// a token is available; errCode is the AppError code used for transport and
// status failures on this endpoint.
func (c *Client) call(ctx context.Context, method, path string, withCSRF bool, errCode types.ErrorCode, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "building backend request", err)
	}
	if withCSRF {
		if token := c.csrf.Token(); token != "" {
			req.Header.Set(csrfHeader, token)
		} else {
			c.logger.WarnContext(ctx, "csrf token unavailable, sending request without it",
				"path", path,
			)
		}
	}

	resp, err := c.base.Do(req)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return types.NewAppError(errCode, appErr.Message, appErr.Err)
		}
		return types.NewAppError(errCode, "backend request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.NewAppError(
			errCode,
			fmt.Sprintf("backend returned status %d for %s", resp.StatusCode, path),
			nil,
		)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return types.NewAppError(errCode, "reading backend response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.NewAppError(errCode, "decoding backend response", err)
	}
	return nil
}
