// Package client is the typed REST client of the NFSe backend.
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

	"github.com/google/uuid"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/errors"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/metrics"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:3000/api"

// HeaderCompany carries the company an accountant acts for.
const HeaderCompany = "x-empresa-id"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// Session is the signed-in state the client reads credentials from and
// reports rejections to.
type Session interface {
	Credentials() (token string, companyID string)
	HandleUnauthorized(ctx context.Context)
	HandleCompanyRejected(ctx context.Context)
}

// Client talks to the NFSe backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	logger     logger.Logger
	userAgent  string
	newID      func() string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the timeout of the whole request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithMetrics counts, times and traces every request.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.httpClient.Transport = m.Transport(c.httpClient.Transport)
		}
	}
}

// WithVersion sets the version reported in the User-Agent header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.userAgent = "nfse-cli/" + version
		}
	}
}

// WithSession sets the session credentials are read from.
func WithSession(s Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

// New constructs a Client for the API at base.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.NewNop(),
		userAgent:  "nfse-cli/dev",
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BindSession attaches the session after construction. The session manager
// uses the client to sign in, so one of them has to be wired second.
func (c *Client) BindSession(s Session) {
	c.session = s
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// send the session credentials and react to 401/403
	authenticated bool
}

// do performs req and decodes the response into v, unwrapping a
// {"data": ...} envelope when there is one.
func (c *Client) do(ctx context.Context, req request, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create request")
	}

	requestID := c.newID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	var companyID string
	if req.authenticated && c.session != nil {
		var token string
		token, companyID = c.session.Credentials()
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
		if companyID != "" {
			httpReq.Header.Set(HeaderCompany, companyID)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed",
			logger.String("method", req.method),
			logger.String("path", req.path),
			logger.String("request_id", requestID),
			logger.Error(err))
		return errors.Wrap(err, errors.ErrNetwork, "request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		logger.String("method", req.method),
		logger.String("path", req.path),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		message := extractError(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := errors.FromHTTPStatus(resp.StatusCode, message)

		if req.authenticated && c.session != nil {
			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				c.session.HandleUnauthorized(ctx)
			case resp.StatusCode == http.StatusForbidden && companyID != "":
				c.session.HandleCompanyRejected(ctx)
			}
		}
		return apiErr
	}

	if v == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrNetwork, "failed to read response")
	}
	if err := decodeData(data, v); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to decode response")
	}
	return nil
}

// decodeData decodes data into v, unwrapping {"data": ...} when present.
func decodeData(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			inner := bytes.TrimSpace(envelope.Data)
			if len(inner) > 0 && !bytes.Equal(inner, []byte("null")) {
				return json.Unmarshal(inner, v)
			}
		}
	}
	return json.Unmarshal(trimmed, v)
}

// extractError returns the message of an error body: its "error" field, its
// "message" field, or the body itself when it is not JSON.
func extractError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		text := strings.TrimSpace(string(data))
		if strings.HasPrefix(text, "<") {
			// HTML error pages are not worth showing
			return ""
		}
		return text
	}

	var msg string
	if len(payload.Error) > 0 && json.Unmarshal(payload.Error, &msg) == nil && strings.TrimSpace(msg) != "" {
		return strings.TrimSpace(msg)
	}
	return strings.TrimSpace(payload.Message)
}

// Ping reports whether the API answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, errors.ErrNetwork, "api unreachable")
	}
	resp.Body.Close()
	return nil
}
