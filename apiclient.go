package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

var _ Client = &HTTPClient{}

// HTTPClient is the reference Client over a JSON REST identity service. It
// keeps the bearer token in memory only; durable storage belongs to the
// session core. Token content stays opaque except for an unverified expiry
// peek used by the local IsAuthenticated check.
type HTTPClient struct {
	base   string
	http   *http.Client
	logger Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
}

// HTTPClientOption customizes HTTPClient construction.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClientLogger overrides the default logger.
func WithHTTPClientLogger(logger Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPTransport overrides the underlying http.Client.
func WithHTTPTransport(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithHTTPClock injects a custom clock for the expiry peek (useful in tests).
func WithHTTPClock(clock func() time.Time) HTTPClientOption {
	return func(c *HTTPClient) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewHTTPClient builds a client against the given base URL, e.g.
// "https://api.example.com/v1".
func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Login(ctx context.Context, payload LoginPayload) (*LoginResult, error) {
	body := map[string]any{
		"identifier": payload.GetIdentifier(),
		"password":   payload.GetPassword(),
	}
	if payload.GetExtendedSession() {
		body["remember_me"] = true
	}

	result := new(LoginResult)
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, result); err != nil {
		// On the login endpoint a 401 means rejected credentials, not an
		// expired session.
		if errors.Is(err, ErrSessionExpired) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) Register(ctx context.Context, data any) (map[string]any, error) {
	response := map[string]any{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", data, &response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	user := new(User)
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *HTTPClient) UpdateMe(ctx context.Context, partial map[string]any) (*User, error) {
	user := new(User)
	if err := c.do(ctx, http.MethodPatch, "/auth/me", partial, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IsAuthenticated is the client-local synchronous check: a token is held and,
// when it parses as a JWT, its exp claim has not passed. Signatures are never
// verified here; tokens that do not parse at all are treated as opaque and
// counted as present.
func (c *HTTPClient) IsAuthenticated() bool {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return c.now().Before(exp.Time)
}

func (c *HTTPClient) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) ClearAuthToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "request failed")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return ErrSessionExpired
	}
	if res.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		if len(payload) > 0 {
			c.logger.Debug("%s %s response body: %s", method, path, string(payload))
		}
		return goerrors.New(
			fmt.Sprintf("%s %s: %s", method, path, res.Status),
			goerrors.CategoryOperation,
		)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "decode response body")
	}
	return nil
}
