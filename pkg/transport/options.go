package transport

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultHost is the collector used when WithHost is not set.
const DefaultHost = "https://us.i.posthog.com"

// Option configures a Client.
type Option func(*Client)

// Attempt describes one HTTP round trip, reported through WithOnAttempt.
type Attempt struct {
	Endpoint   string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// WithHost sets the base URL of the remote service.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

// WithPersonalAPIKey sets the key used to download flag definitions.
func WithPersonalAPIKey(key string) Option {
	return func(c *Client) {
		c.personalKey = key
	}
}

// WithHTTPClient replaces the pooled default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each individual request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed batch is retried. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the retry delay strategy for batches.
func WithBackoff(b Backoff) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithCircuitBreaker guards batch delivery with b.
func WithCircuitBreaker(b *Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithDecideRateLimit caps decide calls per second. Zero or less disables the limit.
func WithDecideRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := max(1, int(perSecond))
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithOnAttempt registers a callback invoked after every HTTP round trip.
func WithOnAttempt(fn func(Attempt)) Option {
	return func(c *Client) {
		c.onAttempt = fn
	}
}
