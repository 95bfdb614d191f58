// Package providers holds the shared HTTP plumbing for the third-party data
// APIs the chain pipeline consults: property records (deeds) and person search.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"chainlead/internal/chain/metrics"
	"chainlead/internal/platform/config"
	"chainlead/internal/platform/tracing"
	"chainlead/pkg/platform/circuit"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 20
	apiKeyHeader    = "X-API-Key"
)

// Client issues authenticated JSON GET requests against one provider.
type Client struct {
	providerID string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Its Timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter shares an outbound rate limiter across clients.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithBreaker fails calls fast while the provider is considered down.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithMetrics records call outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a client for providerID from cfg. A zero timeout uses 10s.
func NewClient(providerID string, cfg config.ProviderConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		providerID: providerID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLimiter builds the process-wide outbound limiter. A non-positive rate
// disables limiting.
func NewLimiter(cfg config.OutboundConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
}

// NewBreaker builds the per-provider circuit breaker. A non-positive failure
// threshold disables it.
func NewBreaker(providerID string, cfg config.OutboundConfig) *circuit.Breaker {
	if cfg.BreakerFailures <= 0 {
		return nil
	}
	return circuit.New(providerID,
		circuit.WithFailureThreshold(cfg.BreakerFailures),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
}

// ProviderID returns the identifier used in errors and metrics.
func (c *Client) ProviderID() string {
	return c.providerID
}

// GetJSON performs GET baseURL+path?query and decodes a 2xx body into out.
// Every failure is a *ProviderError. Timeouts and outages count against the
// breaker; any response from the provider counts as proof of life.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "providers.GetJSON",
		attribute.String("provider", c.providerID),
		attribute.String("http.route", path),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(GetCategory(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		c.metrics.ObserveProviderCall(c.providerID, outcome, time.Since(start))
		span.End()
	}()

	if c.breaker != nil {
		if !c.breaker.Allow() {
			return NewProviderError(ErrorProviderOutage, c.providerID, "circuit open", nil)
		}
		defer func() {
			switch GetCategory(err) {
			case ErrorTimeout, ErrorProviderOutage:
				if ctx.Err() == nil {
					c.breaker.RecordFailure()
				}
			default:
				c.breaker.RecordSuccess()
			}
		}()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return NewProviderError(ErrorTimeout, c.providerID, "waiting for outbound rate limiter", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, c.providerID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewProviderError(transportCategory(ctx, err), c.providerID, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		pe := NewProviderError(CategoryForStatus(resp.StatusCode), c.providerID,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
		pe.StatusCode = resp.StatusCode
		return pe
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		pe := NewProviderError(ErrorBadData, c.providerID, "decode response", err)
		pe.StatusCode = resp.StatusCode
		return pe
	}
	return nil
}

func transportCategory(ctx context.Context, err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorProviderOutage
}
