// Package executor performs authenticated GETs against the inventory API,
// pacing every network send and retrying throttled responses.
package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultPacingInterval    = time.Second
	DefaultRetryInitialDelay = 2 * time.Second
	DefaultMaxRetries        = 5
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() string
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// APIError reports a resource API failure, carrying the raw response body.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Message, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Body)
}

// NewAPIError builds an APIError from an unexpected response.
func NewAPIError(resp *Response) *APIError {
	return &APIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
}

// Config holds executor tuning.
type Config struct {
	PacingEnabled     bool
	PacingInterval    time.Duration
	RetryInitialDelay time.Duration
	MaxRetries        int
}

// Executor performs paced, retried, bearer-authenticated GET requests.
type Executor struct {
	client     HTTPClient
	tokens     TokenSource
	clock      Clock
	pacer      *Pacer
	retryDelay time.Duration
	maxRetries int
	log        zerolog.Logger

	// sendMu serializes pace, send and mark so concurrent callers share one pacing budget.
	sendMu sync.Mutex
}

// New creates an Executor.
func New(client HTTPClient, tokens TokenSource, clock Clock, cfg Config, log zerolog.Logger) *Executor {
	if clock == nil {
		clock = RealClock()
	}
	if cfg.PacingInterval <= 0 {
		cfg.PacingInterval = DefaultPacingInterval
	}
	if cfg.RetryInitialDelay <= 0 {
		cfg.RetryInitialDelay = DefaultRetryInitialDelay
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	return &Executor{
		client:     client,
		tokens:     tokens,
		clock:      clock,
		pacer:      NewPacer(cfg.PacingInterval, cfg.PacingEnabled, clock),
		retryDelay: cfg.RetryInitialDelay,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

type retryState int

const (
	stateSending retryState = iota
	stateBackingOff
	stateSucceeded
	stateExhausted
)

// Get performs one logical GET. Throttled (429) responses are retried with
// exponential backoff; every other status is returned to the caller as-is.
func (e *Executor) Get(ctx context.Context, url string) (*Response, error) {
	var (
		resp    *Response
		err     error
		attempt int
		state   = stateSending
	)

	for {
		switch state {
		case stateSending:
			resp, err = e.send(ctx, url)
			if err != nil {
				return nil, err
			}
			switch {
			case resp.StatusCode != http.StatusTooManyRequests:
				state = stateSucceeded
			case attempt < e.maxRetries:
				state = stateBackingOff
			default:
				state = stateExhausted
			}

		case stateBackingOff:
			delay := e.backoff(attempt)
			e.log.Warn().
				Str("url", url).
				Int("attempt", attempt+1).
				Int("max_retries", e.maxRetries).
				Dur("delay", delay).
				Msg("rate limited, backing off")
			if err := e.clock.Sleep(ctx, delay); err != nil {
				return nil, err
			}
			attempt++
			state = stateSending

		case stateSucceeded:
			return resp, nil

		case stateExhausted:
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Body:       string(resp.Body),
				Message:    fmt.Sprintf("rate limited after %d retries", attempt),
			}
		}
	}
}

// backoff returns the delay before retry n (0-indexed).
func (e *Executor) backoff(n int) time.Duration {
	return e.retryDelay << uint(n)
}

func (e *Executor) send(ctx context.Context, url string) (*Response, error) {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.tokens.Token())
	req.Header.Set("Accept", "application/json")

	httpResp, err := e.client.Do(req)
	e.pacer.MarkSent()
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	e.log.Debug().Str("url", url).Int("status", httpResp.StatusCode).Int("bytes", len(body)).Msg("upstream response")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}
