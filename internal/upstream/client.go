package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// MaxBodyBytes caps how much of an upstream response body callers decode.
const MaxBodyBytes = 2 << 20

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config bundles the HTTP client and resilience settings for one upstream.
type Config struct {
	Name    string
	Client  *http.Client
	Backoff BackoffConfig

	// RPS limits outbound requests per second. Zero disables limiting.
	RPS float64
}

var (
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// StatusError reports a non-2xx response that is not worth retrying.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// DefaultBackoff is used by upstreams that do not need anything special.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

// Client executes requests against a single upstream with rate limiting,
// retries with exponential backoff, and a circuit breaker.
type Client struct {
	cfg     Config
	circuit *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// New creates a Client for the named upstream.
func New(cfg Config) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  5,
		Interval:     1 * time.Minute,
		Timeout:      2 * time.Minute,
		IsSuccessful: countsAsSuccess,
	})

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := int(math.Ceil(cfg.RPS))
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		cfg:     cfg,
		circuit: cb,
		limiter: limiter,
	}
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Do executes the request built by buildRequest. buildRequest is invoked once
// per attempt so request bodies are never reused. The caller owns the
// returned response body.
func (c *Client) Do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if c.cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if c.cfg.Backoff.MaxRetries < 0 || c.cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			drain(resp)
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, ErrRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
			default:
				return nil, &StatusError{Code: resp.StatusCode}
			}
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, c.cfg.Name, err)
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}

		if attempt >= c.cfg.Backoff.MaxRetries {
			return nil, err
		}

		delay := c.cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.cfg.Backoff.MaxInterval && c.cfg.Backoff.MaxInterval > 0 {
			delay = c.cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// countsAsSuccess keeps caller errors (4xx other than 429) from tripping the
// breaker; the upstream answered correctly.
func countsAsSuccess(err error) bool {
	var statusErr *StatusError
	return err == nil || errors.As(err, &statusErr)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodyBytes))
	resp.Body.Close()
}
