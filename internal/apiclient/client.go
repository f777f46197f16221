// Package apiclient talks to the assistant HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   chessdto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chess api error: status=%d code=%s message=%s", e.Status, e.Body.Code, e.Body.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func userPath(userID, suffix string) string {
	return "/v1/users/" + url.PathEscape(userID) + suffix
}

func (c *Client) InitializeBoard(ctx context.Context, userID string) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/board/initialize"), nil, &out, false)
	return &out, err
}

func (c *Client) MakeMove(ctx context.Context, userID string, req chessdto.MoveRequest) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/board/move"), req, &out, false)
	return &out, err
}

func (c *Client) BoardState(ctx context.Context, userID string) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodGet, userPath(userID, "/board/state"), nil, &out, true)
	return &out, err
}

func (c *Client) ResetBoard(ctx context.Context, userID string) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/board/reset"), nil, &out, false)
	return &out, err
}

func (c *Client) Undo(ctx context.Context, userID string) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/board/undo"), nil, &out, false)
	return &out, err
}

func (c *Client) LoadFEN(ctx context.Context, userID, fen string) (*chessdto.BoardResult, error) {
	var out chessdto.BoardResult
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/board/fen"), chessdto.FENRequest{FEN: fen}, &out, false)
	return &out, err
}

// Flow posts one of init, turn, piece, square or reset.
func (c *Client) Flow(ctx context.Context, userID, action, value string) (*chessdto.FlowResult, error) {
	var out chessdto.FlowResult
	var body any
	if value != "" {
		body = chessdto.FlowValueRequest{Value: value}
	}
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/flow/"+url.PathEscape(action)), body, &out, false)
	return &out, err
}

func (c *Client) FlowNext(ctx context.Context, userID string) (*chessdto.FlowResult, error) {
	var out chessdto.FlowResult
	err := c.doJSON(ctx, fasthttp.MethodGet, userPath(userID, "/flow/next"), nil, &out, true)
	return &out, err
}

func (c *Client) Analyze(ctx context.Context, req chessdto.AnalyzeRequest) (*chessdto.AnalysisResult, error) {
	var out chessdto.AnalysisResult
	err := c.doJSON(ctx, fasthttp.MethodPost, "/v1/analyze", req, &out, false)
	return &out, err
}

func (c *Client) SendEvent(ctx context.Context, userID string, req chessdto.EventRequest) (*chessdto.EventReply, error) {
	var out chessdto.EventReply
	err := c.doJSON(ctx, fasthttp.MethodPost, userPath(userID, "/events"), req, &out, false)
	return &out, err
}

func (c *Client) Health(ctx context.Context) (*chessdto.Health, error) {
	var out chessdto.Health
	err := c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &out, true)
	return &out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	// keep %2F in escaped user ids
	req.URI().DisablePathNormalizing = true
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if jerr := json.Unmarshal(resp.Body(), &apiErr.Body); jerr != nil {
				apiErr.Body.Message = truncate(string(resp.Body()), 512)
			}
			if attempt == attempts || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
