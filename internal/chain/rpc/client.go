package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/raubrey2014/tempo-explorer/internal/metrics"
)

// ChainClient is the read-only chain data source contract consumed by the
// ingestion pipeline. Implemented by *Client; tests substitute fakes.
type ChainClient interface {
	GetBlockNumber(ctx context.Context) (int64, error)
	GetBlockByNumber(ctx context.Context, blockNumber int64, includeFullTx bool) (*Block, error)
	GetBlockByHash(ctx context.Context, hash string, includeFullTx bool) (*Block, error)
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error)
	GetCode(ctx context.Context, address string) (string, error)
	Call(ctx context.Context, to string, data string) (string, error)
}

// waiter is satisfied by ratelimit.Limiter. A nil waiter disables limiting.
type waiter interface {
	Wait(ctx context.Context) error
}

type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	limiter    waiter
	logger     *slog.Logger
}

var _ ChainClient = (*Client)(nil)

type Option func(*Client)

// WithRateLimiter bounds outbound call rate across all methods.
func WithRateLimiter(l waiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(rpcURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rpcURL:     rpcURL,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// HTTPError is a non-200 transport response. RetryAfter carries the
// server-provided Retry-After duration when the response included one,
// so rate-limited callers can honor the server's delay instead of their
// own backoff.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := c.newRequest(method, params)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, body)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, err
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "rpc_error").Inc()
		return nil, rpcResp.Error
	}

	metrics.RPCCallsTotal.WithLabelValues(method, "ok").Inc()
	return rpcResp.Result, nil
}

// callBatch issues one HTTP round trip carrying multiple JSON-RPC requests.
// Responses are reordered to match the request order; a missing response is
// reported as an error rather than a silent gap.
func (c *Client) callBatch(ctx context.Context, requests []Request) ([]Response, error) {
	if len(requests) == 0 {
		return []Response{}, nil
	}

	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("marshal batch request: %w", err)
	}

	method := requests[0].Method
	respBody, err := c.post(ctx, body)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, err
	}

	var rpcResps []Response
	if err := json.Unmarshal(respBody, &rpcResps); err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}
	metrics.RPCCallsTotal.WithLabelValues(method, "ok").Inc()

	byID := make(map[int]Response, len(rpcResps))
	for _, resp := range rpcResps {
		byID[resp.ID] = resp
	}

	ordered := make([]Response, len(requests))
	for i, req := range requests {
		resp, ok := byID[req.ID]
		if !ok {
			return nil, fmt.Errorf("batch response missing id %d (method %s)", req.ID, req.Method)
		}
		ordered[i] = resp
	}
	return ordered, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return respBody, nil
}

func (c *Client) newRequest(method string, params []interface{}) Request {
	return Request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
