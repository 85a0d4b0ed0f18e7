package rainmaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public RainMaker API endpoint.
const DefaultBaseURL = "https://api.rainmaker.espressif.com/v1/"

// Client is a read-only RainMaker API client bound to one base URL. It holds
// the access token obtained by Login until Close is called.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates a Client for baseURL with its own connection pool.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   30 * time.Second,
		},
	}
}

// SetTimeout overrides the per-request timeout. Zero keeps the current one.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// errorBody is the failure envelope RainMaker returns on non-2xx responses.
type errorBody struct {
	Status      string          `json:"status"`
	Description string          `json:"description"`
	ErrorCode   json.RawMessage `json:"error_code"`
}

type loginResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accesstoken"`
	Description string `json:"description"`
}

// Login authenticates and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const op = "login"
	if username == "" || password == "" {
		return newError(ErrCatCredentials, op, "username and password are required", nil)
	}

	payload := map[string]string{"user_name": username, "password": password}
	body, err := c.do(ctx, op, http.MethodPost, "login2", nil, payload, false)
	if err != nil {
		return err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return newError(ErrCatUnexpected, op, "parsing login response", err)
	}
	if resp.AccessToken == "" {
		msg := resp.Description
		if msg == "" {
			msg = "login response did not include an access token"
		}
		return newError(ErrCatAuth, op, msg, nil)
	}

	c.mu.Lock()
	c.token = resp.AccessToken
	c.mu.Unlock()
	c.logger.Debug("logged in", zap.String("base_url", c.baseURL))
	return nil
}

// GetNodes returns the decoded node listing. The shape is whatever the API
// sent; see Decode.
func (c *Client) GetNodes(ctx context.Context) (any, error) {
	return c.getJSON(ctx, "get nodes", "user/nodes", nil)
}

// GetParams returns the decoded parameter payload for one node.
func (c *Client) GetParams(ctx context.Context, nodeID string) (any, error) {
	return c.getJSON(ctx, "get params", "user/nodes/params", url.Values{"nodeid": {nodeID}})
}

// Close forgets the session and releases pooled connections.
func (c *Client) Close() error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values) (any, error) {
	body, err := c.do(ctx, op, http.MethodGet, path, params, nil, true)
	if err != nil {
		return nil, err
	}
	v, err := Decode(body)
	if err != nil {
		return nil, newError(ErrCatUnexpected, op, "parsing response", err)
	}
	return v, nil
}

// do performs one request and returns the body of a 2xx response. Every
// failure comes back as *Error.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, payload any, authed bool) ([]byte, error) {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, newError(ErrCatUnexpected, op, "marshaling body", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, newError(ErrCatUnexpected, op, "creating request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token == "" {
			return nil, newError(ErrCatAuth, op, "not logged in", nil)
		}
		req.Header.Set("Authorization", token)
	}

	c.logger.Debug("request", zap.String("op", op), zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(ErrCatNetwork, op, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrCatNetwork, op, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, method, path, resp.StatusCode, body)
	}
	return body, nil
}

func statusError(op, method, path string, status int, body []byte) *Error {
	cat := ErrCatAPI
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		cat = ErrCatAuth
	case op == "login" && status >= 400 && status < 500:
		// any 4xx from login2 is a rejected login
		cat = ErrCatAuth
	}
	msg := fmt.Sprintf("%s %s: HTTP %d: %s", method, path, status, truncate(strings.TrimSpace(string(body)), 200))
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Description != "" {
		msg = eb.Description
	}
	return &Error{Category: cat, Op: op, Status: status, Message: msg}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
