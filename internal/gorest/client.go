// Package gorest is a client for the gorest v2 API that returns raw responses
// for assertions and decodes JSON and XML bodies into the same model records.
package gorest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Format selects the response representation.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat accepts "json" or "xml".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatXML:
		return FormatXML, nil
	default:
		return "", fmt.Errorf("gorest: unknown format %q", s)
	}
}

// suffix is appended to resource paths. JSON is the default representation
// and needs none.
func (f Format) suffix() string {
	if f == FormatXML {
		return ".xml"
	}
	return ""
}

// HeaderRequestID carries the id the client generates for every request.
const HeaderRequestID = "X-Request-Id"

// Client is a gorest API client. Copies made with WithFormat and WithToken
// share the HTTP client, pacing limiter and metrics.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Headers    map[string]string
	Format     Format

	limiter *rate.Limiter
	metrics *Metrics
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithPacing limits outgoing requests to perSecond with the given burst.
// A non-positive rate disables pacing.
func WithPacing(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.Headers["User-Agent"] = ua }
}

// NewClient creates a client for baseURL, e.g. https://gorest.co.in/public/v2.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Headers: make(map[string]string),
		Format:  FormatJSON,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) clone() *Client {
	cp := *c
	cp.Headers = make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		cp.Headers[k] = v
	}
	return &cp
}

// WithFormat returns a copy of c requesting format f.
func (c *Client) WithFormat(f Format) *Client {
	cp := c.clone()
	cp.Format = f
	return cp
}

// WithToken returns a copy of c authenticating with token. An empty token
// yields an anonymous client.
func (c *Client) WithToken(token string) *Client {
	cp := c.clone()
	cp.SetAuth(token)
	return cp
}

// SetHeader sets a default header for all requests.
func (c *Client) SetHeader(key, value string) {
	c.Headers[key] = value
}

// SetAuth sets the Authorization header. An empty token removes it.
func (c *Client) SetAuth(token string) {
	if token == "" {
		delete(c.Headers, "Authorization")
		return
	}
	c.Headers["Authorization"] = "Bearer " + token
}

// Request represents an API request.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
}

// Do executes an API request.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target := c.BaseURL + req.Path

	// Add query parameters
	if len(req.Query) > 0 {
		params := url.Values{}
		for k, v := range req.Query {
			params.Set(k, v)
		}
		target += "?" + params.Encode()
	}

	// Prepare body
	var bodyReader io.Reader
	if req.Body != nil {
		switch b := req.Body.(type) {
		case string:
			bodyReader = strings.NewReader(b)
		case []byte:
			bodyReader = bytes.NewReader(b)
		case io.Reader:
			bodyReader = b
		default:
			jsonBody, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("marshaling request body: %w", err)
			}
			bodyReader = bytes.NewReader(jsonBody)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range c.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := httpReq.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		httpReq.Header.Set(HeaderRequestID, requestID)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for pacing limiter: %w", err)
		}
	}

	start := time.Now()
	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   time.Since(start),
		Format:     c.Format,
		RequestID:  requestID,
	}

	if c.metrics != nil {
		c.metrics.Observe(req.Method, c.Format, resp.StatusCode, resp.Duration)
	}
	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
		zap.String("request_id", requestID))

	return resp, nil
}

// GET performs a GET request.
func (c *Client) GET(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// POST performs a POST request.
func (c *Client) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// PUT performs a PUT request.
func (c *Client) PUT(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// PATCH performs a PATCH request.
func (c *Client) PATCH(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

// DELETE performs a DELETE request.
func (c *Client) DELETE(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// OPTIONS performs an OPTIONS request.
func (c *Client) OPTIONS(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodOptions, Path: path})
}
