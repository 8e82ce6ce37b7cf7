// Package client talks to the MyAussie customer API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultAuthURL = "https://myaussie-auth.aussiebroadband.com.au/"
	DefaultAPIURL  = "https://myaussie-api.aussiebroadband.com.au/"
)

// Version is sent in the User-Agent header.
const Version = "0.1.0"

// ErrUnauthenticated is returned by requests made before a successful Login.
var ErrUnauthenticated = errors.New("cannot make request while unauthenticated")

// HTTPError is returned when the API answers with a status of 400 or above.
type HTTPError struct {
	Status int
	URL    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request %s: server returned status %d", e.URL, e.Status)
}

// Observer is notified after every API round trip. Status is 0 when no
// response was received.
type Observer interface {
	ObserveRequest(endpoint string, status int, elapsed time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the auth and API base URLs. Both must end in a slash.
func WithBaseURLs(authURL, apiURL string) Option {
	return func(c *Client) {
		c.authURL = authURL
		c.apiURL = apiURL
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithObserver reports request outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// Client is an authenticated session against the API. It is safe for
// concurrent use once logged in.
type Client struct {
	authURL  string
	apiURL   string
	timeout  time.Duration
	http     *http.Client
	jar      *cookiejar.Jar
	observer Observer
	logger   *slog.Logger

	mu            sync.RWMutex
	authenticated bool
	refreshToken  string
	tokenExpiry   time.Time
}

// New creates an unauthenticated client.
func New(logger *slog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		authURL: DefaultAuthURL,
		apiURL:  DefaultAPIURL,
		timeout: 30 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c.jar = jar
	c.http = &http.Client{Jar: jar, Timeout: c.timeout}
	return c, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    *int64 `json:"expiresIn"`
}

// Login authenticates with the given credentials. The session cookies it
// returns are attached to every subsequent API request.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	endpoint := c.authURL + "login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("login", 0, start)
		return fmt.Errorf("send login request: %w", err)
	}
	defer resp.Body.Close()
	c.observe("login", resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		return &HTTPError{Status: resp.StatusCode, URL: endpoint}
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return errors.New("login response carried no session cookies")
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if lr.RefreshToken == "" || lr.ExpiresIn == nil {
		return errors.New("login response missing refresh token or expiry")
	}

	apiBase, err := url.Parse(c.apiURL)
	if err != nil {
		return fmt.Errorf("parse api url: %w", err)
	}
	c.jar.SetCookies(apiBase, cookies)

	c.mu.Lock()
	c.authenticated = true
	c.refreshToken = lr.RefreshToken
	c.tokenExpiry = time.Now().Add(time.Duration(*lr.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.logger.Info("logged in", "username", username)
	return nil
}

// Authenticated reports whether Login has succeeded.
func (c *Client) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// TokenExpiry returns when the session's refresh token expires.
func (c *Client) TokenExpiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenExpiry
}

// Get sends an authenticated GET for path, relative to the API base URL, and
// decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}

	endpoint := c.apiURL + strings.TrimPrefix(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())

	label := endpointLabel(path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(label, 0, start)
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(label, resp.StatusCode, start)

	if resp.StatusCode >= 400 {
		return &HTTPError{Status: resp.StatusCode, URL: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}

	c.logger.Debug("api request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, status, time.Since(start))
	}
}

// endpointLabel collapses a request path into a low-cardinality name.
func endpointLabel(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "customer":
		return "customer"
	case len(parts) == 3 && parts[0] == "broadband" && parts[2] == "usage":
		return "usage_overview"
	case len(parts) == 5 && parts[0] == "broadband" && parts[2] == "usage":
		return "usage_history"
	default:
		return "other"
	}
}

func userAgent() string { return "aussiebb-go/" + Version }
