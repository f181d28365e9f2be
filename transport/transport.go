package transport

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
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-ID"

// Transport executes a request and returns the server's response.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to the Transport interface.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

var errServerStatus = errors.New("server error status")

// HTTPTransport is the net/http backed Transport.
type HTTPTransport struct {
	baseURL   string
	client    *http.Client
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    zerolog.Logger
}

var _ Transport = (*HTTPTransport)(nil)

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the default http.Client. The transport never
// modifies the caller's client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithTimeout sets the per-request timeout. An injected client is copied
// before the timeout is applied.
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		t.timeout = timeout
	}
}

func WithUserAgent(userAgent string) Option {
	return func(t *HTTPTransport) {
		t.userAgent = userAgent
	}
}

// WithRateLimit caps outbound requests. rps <= 0 disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(t *HTTPTransport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker opens the circuit after failures consecutive network or
// 5xx failures and probes again after timeout. failures == 0 disables it.
// Client errors (4xx, including 401) never count as failures.
func WithCircuitBreaker(failures uint32, timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		if failures == 0 {
			t.breaker = nil
			return
		}
		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "fleet-api",
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				t.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			},
		})
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// New creates an HTTPTransport rooted at baseURL (e.g. "https://host/api").
func New(baseURL string, options ...Option) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[transport.New] invalid base URL %q", baseURL)
	}

	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(t)
	}
	if t.timeout > 0 {
		client := *t.client
		client.Timeout = t.timeout
		t.client = &client
	}
	return t, nil
}

// Do sends req. Non-2xx statuses are returned as a Response with a nil error;
// the error is reserved for *NetworkError.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	target := t.url(req)
	netErr := func(err error) error {
		return &NetworkError{Method: req.Method, URL: target, Err: err}
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, netErr(err)
		}
	}

	httpReq, err := t.build(ctx, req, target)
	if err != nil {
		return nil, netErr(err)
	}

	start := time.Now()
	resp, err := t.execute(httpReq)
	if err != nil {
		t.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).
			Str("request_id", httpReq.Header.Get(RequestIDHeader)).Msg("Request failed")
		return nil, netErr(err)
	}

	t.logger.Debug().Str("method", req.Method).Str("path", req.Path).Int("status", resp.StatusCode).
		Bool("retried", req.Retried).Dur("elapsed", time.Since(start)).
		Str("request_id", httpReq.Header.Get(RequestIDHeader)).Msg("Request completed")
	return resp, nil
}

func (t *HTTPTransport) url(req Request) string {
	u := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (t *HTTPTransport) build(ctx context.Context, req Request, target string) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if req.Bearer != nil {
		req.Bearer.SetAuthHeader(httpReq)
	}
	return httpReq, nil
}

func (t *HTTPTransport) execute(httpReq *http.Request) (*Response, error) {
	if t.breaker == nil {
		return t.roundTrip(httpReq)
	}

	result, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.roundTrip(httpReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return result.(*Response), nil
	}
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

func (t *HTTPTransport) roundTrip(httpReq *http.Request) (*Response, error) {
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
