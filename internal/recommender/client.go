// Package recommender calls the AI recommendation service.
//
// The service receives the client snapshot, the goals and the derived
// metrics and answers with an opaque JSON payload that the planner caches
// as is. Calls go through a circuit breaker so that an unreachable service
// fails fast instead of stalling every planning request.
package recommender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/engine"
	"github.com/rshade/finplan/internal/logging"
	"github.com/rshade/finplan/internal/telemetry"
)

// Defaults for Options fields left zero.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultFailureThreshold = 3
	DefaultOpenTimeout      = time.Minute

	recommendationsPath = "/recommendations"
	maxResponseBytes    = 4 << 20
)

// Common errors.
var (
	// ErrServiceUnavailable is returned while the circuit breaker is open.
	ErrServiceUnavailable = errors.New("recommendation service unavailable")

	// ErrNotConfigured is returned when no base URL is set.
	ErrNotConfigured = errors.New("recommendation service URL not configured")

	// ErrInvalidResponse is returned for bodies that are not JSON.
	ErrInvalidResponse = errors.New("recommendation service returned invalid JSON")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("recommendation service returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("recommendation service returned HTTP %d: %s", e.Code, e.Body)
}

// Recorder receives call outcomes; *telemetry.Metrics implements it.
type Recorder interface {
	ObserveRecommendation(outcome string, d time.Duration)
	BreakerStateChanged(from, to string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRecommendation(string, time.Duration) {}
func (noopRecorder) BreakerStateChanged(string, string)          {}

// Options configures a Client.
type Options struct {
	BaseURL          string
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HTTPClient       *http.Client
	Recorder         Recorder
}

// Request is the body posted to the service.
type Request struct {
	Goals   []client.Goal           `json:"goals"`
	Client  client.Snapshot         `json:"client"`
	Metrics engine.FinancialMetrics `json:"metrics"`
}

// Client is an HTTP client for the recommendation service. It is safe for
// concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[json.RawMessage]
	recorder Recorder
}

// New builds a Client from opts.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		http:     httpClient,
		recorder: recorder,
	}

	threshold := opts.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "recommender",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			recorder.BreakerStateChanged(from.String(), to.String())
			logger := logging.Default()
			logger.Warn().
				Str("component", "recommender").
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("recommendation service circuit breaker changed state")
		},
	})
	return c
}

// NewFromMetrics is New with m as the Recorder.
func NewFromMetrics(opts Options, m *telemetry.Metrics) *Client {
	if m != nil {
		opts.Recorder = m
	}
	return New(opts)
}

// State returns the circuit breaker state ("closed", "half-open", "open").
func (c *Client) State() string {
	return c.breaker.State().String()
}

// Recommend posts goals, snapshot and metrics to the service and returns the
// response body.
func (c *Client) Recommend(
	ctx context.Context,
	goals []client.Goal,
	snapshot client.Snapshot,
	metrics engine.FinancialMetrics,
) (json.RawMessage, error) {
	logger := logging.FromContext(ctx).With().
		Str("component", "recommender").
		Str("operation", "recommend").
		Logger()

	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(Request{Goals: goals, Client: snapshot, Metrics: metrics})
	if err != nil {
		return nil, fmt.Errorf("encoding recommendation request: %w", err)
	}

	start := time.Now()
	recs, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.post(ctx, body)
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.recorder.ObserveRecommendation(telemetry.OutcomeUnavailable, elapsed)
		logger.Debug().Str("state", c.State()).Msg("circuit open, skipping recommendation request")
		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	case err != nil:
		c.recorder.ObserveRecommendation(telemetry.OutcomeError, elapsed)
		logger.Warn().Err(err).Dur("duration", elapsed).Msg("recommendation request failed")
		return nil, err
	}

	c.recorder.ObserveRecommendation(telemetry.OutcomeSuccess, elapsed)
	logger.Debug().Dur("duration", elapsed).Int("bytes", len(recs)).Msg("received recommendations")
	return recs, nil
}

func (c *Client) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+recommendationsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building recommendation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling recommendation service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading recommendation response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(truncate(string(data), 200))}
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return nil, ErrInvalidResponse
	}
	return json.RawMessage(data), nil
}

// isSuccessful decides what counts against the breaker. Rejections of the
// request itself (4xx) and caller cancellation say nothing about the
// service's health.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code < http.StatusInternalServerError && statusErr.Code != http.StatusTooManyRequests
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
