package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zohaib/garage/pkg/store"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of any response body is read.
const maxBodySize = 1 << 20 // 1 MB

// Request describes one API call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	retried bool
}

// Retried reports whether Send already replayed this request after a refresh.
func (r *Request) Retried() bool {
	return r.retried
}

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out. An empty body is left alone.
func (r *Response) Decode(out any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Hooks lets the session layer observe token changes made by Send.
type Hooks struct {
	// TokenRefreshed runs after a refreshed access token has been persisted.
	TokenRefreshed func(access string)
	// SessionExpired runs after a failed refresh wiped the stored session.
	SessionExpired func(err error)
}

// Client is the car-projects API client.
type Client struct {
	baseURL    string
	store      store.Store
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	hooks Hooks
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for baseURL that reads credentials from st.
func New(baseURL string, st store.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   st,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHooks installs the session hooks. Safe to call while requests are in flight.
func (c *Client) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

func (c *Client) currentHooks() Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hooks
}

// Send issues req with the stored access token attached. A 401 triggers at
// most one refresh-and-replay cycle per request:
//
//   - already replayed, or no refresh token stored: the 401 is returned;
//   - refresh succeeds: the new access token is stored and req is sent once
//     more, and that outcome is returned whatever it is;
//   - refresh fails: the stored session is wiped, SessionExpired fires and
//     the refresh error is returned.
//
// Concurrent 401s are not coalesced; each one runs its own refresh.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.do(ctx, req, c.storedValue(ctx, store.KeyAccessToken))
	if err == nil || !IsStatus(err, http.StatusUnauthorized) || req.retried {
		return resp, err
	}
	req.retried = true

	refresh := c.storedValue(ctx, store.KeyRefreshToken)
	if refresh == "" {
		return nil, err
	}

	access, refreshErr := c.Refresh(ctx, refresh)
	if refreshErr != nil {
		if ctx.Err() != nil {
			// Caller gave up; not evidence that the session is dead.
			return nil, refreshErr
		}
		c.expireSession(ctx, refreshErr)
		return nil, refreshErr
	}

	if setErr := c.store.Set(ctx, store.KeyAccessToken, access); setErr != nil {
		c.logger.Warn("persist refreshed access token", "err", setErr)
	}
	if h := c.currentHooks(); h.TokenRefreshed != nil {
		h.TokenRefreshed(access)
	}
	return c.do(ctx, req, access)
}

func (c *Client) expireSession(ctx context.Context, cause error) {
	c.logger.Warn("token refresh failed, clearing session", "err", cause)
	if err := store.Clear(context.WithoutCancel(ctx), c.store); err != nil {
		c.logger.Error("clear session store", "err", err)
	}
	if h := c.currentHooks(); h.SessionExpired != nil {
		h.SessionExpired(cause)
	}
}

// storedValue returns the stored value for key, or "" when absent or unreadable.
func (c *Client) storedValue(ctx context.Context, key string) string {
	v, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("read session store", "key", key, "err", err)
		}
		return ""
	}
	return v
}

// sendJSON runs req through Send and decodes the body into out (if non-nil).
func (c *Client) sendJSON(ctx context.Context, req *Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if out != nil {
		return resp.Decode(out)
	}
	return nil
}

// do performs a single undecorated round trip. bearer, when non-empty, is
// sent as the Authorization header; nothing is read from the store here.
func (c *Client) do(ctx context.Context, req *Request, bearer string) (*Response, error) {
	var reqBody io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "err", err)
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug("request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if resp.StatusCode >= 400 {
		if readErr != nil {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return nil, newHTTPError(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
