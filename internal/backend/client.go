// Package backend provides the HTTP client for the remote finance REST API.
//
// The client attaches the stored bearer token to every request, refreshes it
// once on a 401 and retries the original request, and forces a logout when
// the refresh fails. Responses are normalized into the canonical models
// types immediately on receipt.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"fintrack/internal/models"
)

const defaultTimeout = 30 * time.Second

// TokenStore persists the bearer token pair.
type TokenStore interface {
	Tokens(ctx context.Context) (models.TokenPair, error)
	SaveTokens(ctx context.Context, pair models.TokenPair) error
	ClearTokens(ctx context.Context) error
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenStore
	// OnLogout is called after a failed refresh has cleared the stored tokens.
	OnLogout func()
	// Location is the time zone used to turn backend timestamps into calendar days.
	Location *time.Location
	Now      func() time.Time
	Log      *zap.SugaredLogger
}

// Client communicates with the remote finance API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	onLogout   func()
	loc        *time.Location
	now        func() time.Time
	log        *zap.SugaredLogger

	refreshMu sync.Mutex
}

// New creates a new backend client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     opts.Tokens,
		onLogout:   opts.OnLogout,
		loc:        loc,
		now:        now,
		log:        log,
	}
}

// placeholderTokens are values front-ends have been seen to persist in place
// of a real token.
var placeholderTokens = map[string]bool{
	"null":        true,
	"undefined":   true,
	"placeholder": true,
}

// isRealToken reports whether tok is worth sending as a bearer token.
func isRealToken(tok string) bool {
	tok = strings.TrimSpace(tok)
	return tok != "" && !placeholderTokens[strings.ToLower(tok)]
}

// tokenExpired reports whether tok is a JWT whose exp claim has passed. The
// signature is not verified; opaque tokens are never considered expired.
func tokenExpired(tok string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func (c *Client) currentTokens(ctx context.Context) models.TokenPair {
	if c.tokens == nil {
		return models.TokenPair{}
	}
	pair, err := c.tokens.Tokens(ctx)
	if err != nil {
		return models.TokenPair{}
	}
	return pair
}

// call performs an authenticated JSON request and decodes the response into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", path, err)
		}
	}

	pair := c.currentTokens(ctx)
	if isRealToken(pair.AccessToken) && isRealToken(pair.RefreshToken) && tokenExpired(pair.AccessToken, c.now()) {
		if refreshed, err := c.refresh(ctx, pair); err == nil {
			pair = refreshed
		}
	}

	status, respBody, err := c.send(ctx, method, path, query, payload, pair.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		refreshed, refreshErr := c.refresh(ctx, pair)
		if refreshErr != nil {
			c.forceLogout(ctx)
			return fmt.Errorf("%s %s: %w: %v", method, path, ErrSessionExpired, refreshErr)
		}
		status, respBody, err = c.send(ctx, method, path, query, payload, refreshed.AccessToken)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.forceLogout(ctx)
			return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		}
	}

	if status < 200 || status > 299 {
		return newAPIError(method, path, status, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// send issues one HTTP request and returns the status and body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte, accessToken string) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if isRealToken(accessToken) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return resp.StatusCode, respBody, nil
}

var errNoRefreshToken = errors.New("no refresh token stored")

// refresh exchanges the stored refresh token for a new pair. Concurrent
// callers that hit a 401 with the same stale token share one refresh.
func (c *Client) refresh(ctx context.Context, stale models.TokenPair) (models.TokenPair, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.currentTokens(ctx)
	if isRealToken(current.AccessToken) && current.AccessToken != stale.AccessToken {
		return current, nil
	}
	if !isRealToken(current.RefreshToken) {
		return models.TokenPair{}, errNoRefreshToken
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": current.RefreshToken})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("marshaling refresh request: %w", err)
	}
	status, body, err := c.send(ctx, http.MethodPost, "/auth/refresh", nil, payload, "")
	if err != nil {
		return models.TokenPair{}, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return models.TokenPair{}, newAPIError(http.MethodPost, "/auth/refresh", status, body)
	}

	pair, err := decodeTokens(body)
	if err != nil {
		return models.TokenPair{}, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = current.RefreshToken
	}
	if c.tokens != nil {
		if err := c.tokens.SaveTokens(ctx, pair); err != nil {
			return models.TokenPair{}, fmt.Errorf("saving refreshed tokens: %w", err)
		}
	}
	return pair, nil
}

func (c *Client) forceLogout(ctx context.Context) {
	if c.tokens != nil {
		_ = c.tokens.ClearTokens(ctx)
	}
	if c.onLogout != nil {
		c.onLogout()
	}
}
