package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chesstrack/internal/board"
	"chesstrack/internal/rules"

	"github.com/valyala/fasthttp"
)

// APIClient asks a chess-api.com style HTTP endpoint for the best move.
type APIClient struct {
	url  string
	http *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*APIClient)

func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithRetry sets how many extra attempts follow a transport error or a
// retryable status.
func WithRetry(n int) Option {
	return func(c *APIClient) { c.retryMax = n }
}

type apiRequest struct {
	FEN             string `json:"fen"`
	Depth           int    `json:"depth,omitempty"`
	MaxThinkingTime int    `json:"maxThinkingTime,omitempty"`
}

type apiResponse struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Eval  float64 `json:"eval,omitempty"`
	Text  string  `json:"text,omitempty"`
	Error string  `json:"error,omitempty"`
}

func NewAPIClient(url string, opts ...Option) *APIClient {
	c := &APIClient{
		url:            strings.TrimRight(url, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) Name() string { return "api" }

func (c *APIClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *APIClient) Suggest(ctx context.Context, r Request) (rules.Move, error) {
	in := apiRequest{FEN: r.FEN, MaxThinkingTime: r.SearchTime}
	if r.Level > 0 {
		in.Depth = min(r.Level, 18)
	}

	var out apiResponse
	if err := c.doJSON(ctx, in, &out); err != nil {
		return rules.Move{}, err
	}
	if out.Error != "" {
		return rules.Move{}, fmt.Errorf("engine api: %s", out.Error)
	}

	from, err := board.ParseSquare(out.From)
	if err != nil {
		return rules.Move{}, fmt.Errorf("engine api from: %w", err)
	}
	to, err := board.ParseSquare(out.To)
	if err != nil {
		return rules.Move{}, fmt.Errorf("engine api to: %w", err)
	}
	return rules.Move{From: from, To: to}, nil
}

func (c *APIClient) doJSON(ctx context.Context, in, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentType("application/json")

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := max(c.retryMax+1, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("engine request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = fmt.Errorf("engine api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}

		if attempt < attempts {
			if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
				return lastErr
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *APIClient) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
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
	case 429, 500, 502, 503, 504:
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
