// Package api is the HTTP client for the storefront REST API. Every call
// attaches the bearer token, tags the request with an id, applies a default
// timeout, validates the decoded payload, and converts failures to *Error.
package api

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
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/skycart/internal/validation"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 15 * time.Second

	HeaderRequestID = "X-Request-ID"
)

func init() {
	// The API speaks JSON numbers for money.
	decimal.MarshalJSONWithoutQuotes = true
}

// TokenSource returns the bearer token to attach, or "" for none.
type TokenSource func() string

// UnauthorizedFunc is told which token a 401 response was issued for.
type UnauthorizedFunc func(token string)

// Observer records per-request telemetry.
type Observer interface {
	ObserveRequest(ctx context.Context, op, method string, status int, elapsed time.Duration, err error)
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	token          TokenSource
	onUnauthorized UnauthorizedFunc
	observer       Observer
	logger         logrus.FieldLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the deadline applied to requests whose context has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.token = src }
}

func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		token:      func() string { return "" },
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "API")
	return c
}

// SetUnauthorizedHandler replaces the 401 hook after construction; the
// account service needs the client before it can register itself.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string { return c.baseURL }

// Do performs one request. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded response and is validated.
func (c *Client) Do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := c.logger.WithFields(logrus.Fields{
		"op":         op,
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()
	status, err := c.roundTrip(req, op, out)
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.ObserveRequest(ctx, op, method, status, elapsed, err)
	}

	if err != nil {
		log.WithFields(logrus.Fields{"status": status, "duration": elapsed}).WithError(err).Debug("request failed")
		if status == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(token)
		}
		return err
	}
	log.WithFields(logrus.Fields{"status": status, "duration": elapsed}).Debug("request completed")
	return nil
}

func (c *Client) roundTrip(req *http.Request, op string, out any) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "Unable to reach the server"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Request timed out"
		}
		return 0, &Error{Op: op, Message: msg, Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Message: DefaultMessage, Kind: ErrNetwork, Err: err}
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Op: op, Status: resp.StatusCode, Message: DefaultMessage, Kind: kindForStatus(resp.StatusCode)}
		var envelope errorBody
		if json.Unmarshal(data, &envelope) == nil {
			if envelope.Message != "" {
				apiErr.Message = envelope.Message
			}
			apiErr.Fields = envelope.Errors
		}
		return resp.StatusCode, apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Message: DefaultMessage, Kind: ErrInvalidResponse, Err: err}
	}
	if err := validation.Struct(out); err != nil {
		return resp.StatusCode, &Error{Op: op, Status: resp.StatusCode, Message: DefaultMessage, Kind: ErrInvalidResponse, Err: err}
	}
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.Do(ctx, op, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.Do(ctx, op, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, op, path string, body, out any) error {
	return c.Do(ctx, op, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, op, path string, query url.Values, out any) error {
	return c.Do(ctx, op, http.MethodDelete, path, query, nil, out)
}

// pageQuery builds the page/limit parameters the list endpoints share.
func pageQuery(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))
	return q
}

// escape keeps ids from breaking out of their path segment.
func escape(id string) string {
	return url.PathEscape(id)
}
