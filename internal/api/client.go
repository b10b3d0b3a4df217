package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arbdeck/console/internal/errs"
	"github.com/arbdeck/console/internal/session"
)

// DefaultTimeout bounds every request so a dead backend cannot hang a caller.
const DefaultTimeout = 10 * time.Second

// Client talks to the arbitrage backend. All authenticated calls read the
// bearer token from the session store at request time, so a logout takes
// effect immediately for subsequent requests.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *session.Store
}

// NewClient creates a Client for the given base URL, e.g. "http://localhost:8000".
func NewClient(baseURL string, timeout time.Duration, tokens *session.Store) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamURL derives the realtime feed URL from the backend origin: a secure
// origin yields wss, an insecure one ws. The token travels as a query
// parameter because the websocket handshake carries no custom headers.
func (c *Client) StreamURL(token string) (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/ws"
	q := parsed.Query()
	q.Set("token", token)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Login exchanges operator credentials for a bearer token. It does not store
// the token; that is the caller's decision.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		detail := readDetail(resp.Body)
		return "", fmt.Errorf("%w: %s", errs.ErrAuthRejected, detail)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &errs.ServerError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("login response missing access_token")
	}
	return tok.AccessToken, nil
}

// Register creates an operator account. Like Login it needs no credential;
// a duplicate email comes back as a ServerError with the backend's detail.
func (c *Client) Register(ctx context.Context, in UserCreate) (User, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return User{}, fmt.Errorf("encode register request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/register", bytes.NewReader(payload))
	if err != nil {
		return User{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return User{}, &errs.ServerError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode register response: %w", err)
	}
	return user, nil
}

// Me returns the account behind the current credential.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/me", nil, &user)
	return user, err
}

// ListExchangeKeys fetches the operator's exchange credential records.
func (c *Client) ListExchangeKeys(ctx context.Context) ([]ExchangeKey, error) {
	var keys []ExchangeKey
	err := c.do(ctx, http.MethodGet, "/exchange-keys", nil, &keys)
	return keys, err
}

// AddExchangeKey creates an exchange credential record.
func (c *Client) AddExchangeKey(ctx context.Context, in ExchangeKeyCreate) (ExchangeKey, error) {
	var key ExchangeKey
	err := c.do(ctx, http.MethodPost, "/exchange-keys", in, &key)
	return key, err
}

// SetExchangeKeyEnabled toggles whether a key participates in trading.
func (c *Client) SetExchangeKeyEnabled(ctx context.Context, id int, enabled bool) (ExchangeKey, error) {
	var key ExchangeKey
	path := fmt.Sprintf("/exchange-keys/%d/enable?enabled=%t", id, enabled)
	err := c.do(ctx, http.MethodPost, path, nil, &key)
	return key, err
}

// ListBotConfigs fetches the operator's bot configurations.
func (c *Client) ListBotConfigs(ctx context.Context) ([]BotConfig, error) {
	var configs []BotConfig
	err := c.do(ctx, http.MethodGet, "/bot-configs", nil, &configs)
	return configs, err
}

// AddBotConfig creates a bot configuration.
func (c *Client) AddBotConfig(ctx context.Context, in BotConfigCreate) (BotConfig, error) {
	var cfg BotConfig
	err := c.do(ctx, http.MethodPost, "/bot-configs", in, &cfg)
	return cfg, err
}

// UpdateBotConfig replaces a bot configuration.
func (c *Client) UpdateBotConfig(ctx context.Context, id int, in BotConfigCreate) (BotConfig, error) {
	var cfg BotConfig
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/bot-configs/%d", id), in, &cfg)
	return cfg, err
}

// DeleteBotConfig removes a bot configuration.
func (c *Client) DeleteBotConfig(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/bot-configs/%d", id), nil, nil)
}

// StartBot asks the backend to start the bot for a configuration.
func (c *Client) StartBot(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/bot-configs/%d/start", id), nil, nil)
}

// StopBot asks the backend to stop the bot for a configuration.
func (c *Client) StopBot(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/bot-configs/%d/stop", id), nil, nil)
}

// TradeLogs fetches the most recent persisted trade-log records.
func (c *Client) TradeLogs(ctx context.Context, limit int) ([]TradeLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []TradeLog
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/trade-logs?limit=%d", limit), nil, &logs)
	return logs, err
}

// do issues an authenticated request. An absent credential fails locally
// with ErrAuthRequired before any network I/O.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, ok := c.tokens.Get()
	if !ok {
		return errs.ErrAuthRequired
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		detail := readDetail(resp.Body)
		slog.Warn("api_auth_rejected", "method", method, "path", path)
		return fmt.Errorf("%w: %s", errs.ErrAuthRejected, detail)
	case resp.StatusCode >= 400:
		return &errs.ServerError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapTransportErr folds deadline and timeout failures into ErrTimeout so
// every request path surfaces a bounded-wait error instead of hanging.
func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errs.ErrTimeout, err)
	}
	return fmt.Errorf("request failed: %w", err)
}

// readDetail extracts the backend's {"detail": ...} message, tolerating both
// string and structured detail payloads.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(payload.Detail))
}
