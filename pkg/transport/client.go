package transport

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Endpoint names reported in Attempt.
const (
	EndpointLocalEvaluation = "local_evaluation"
	EndpointDecide          = "decide"
	EndpointBatch           = "batch"
)

const (
	localEvaluationPath = "/api/feature_flag/local_evaluation/"
	decidePath          = "/decide/?v=3"
	batchPath           = "/batch/"

	// Definitions of large projects run into megabytes.
	maxDefinitionsBody = 32 << 20
	maxResponseBody    = 1 << 20
	maxErrorSnippet    = 200
)

// Client talks to the remote flag and analytics service.
// Safe for concurrent use.
type Client struct {
	projectKey  string
	personalKey string
	host        string
	userAgent   string

	http       *http.Client
	timeout    time.Duration
	maxRetries int
	backoff    Backoff
	breaker    *Breaker
	limiter    *rate.Limiter
	logger     *slog.Logger
	onAttempt  func(Attempt)
	now        func() time.Time
}

var _ flagstore.Fetcher = (*Client)(nil)

// New creates a Client for the project identified by projectKey.
func New(projectKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(projectKey) == "" {
		return nil, ErrMissingProjectKey
	}

	c := &Client{
		projectKey: projectKey,
		host:       DefaultHost,
		userAgent:  "featurekit-go/1.0",
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:    10 * time.Second,
		maxRetries: 3,
		backoff:    DefaultBackoff(),
		breaker:    NewBreaker(5, 1, 30*time.Second),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	host, err := normalizeHost(c.host)
	if err != nil {
		return nil, err
	}
	c.host = host

	return c, nil
}

func normalizeHost(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidHost, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidHost)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidHost)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Fetch downloads flag definitions for local evaluation. It implements flagstore.Fetcher.
func (c *Client) Fetch(ctx context.Context, etag string) (flagstore.FetchResult, error) {
	if c.personalKey == "" {
		return flagstore.FetchResult{}, ErrMissingPersonalKey
	}

	path := localEvaluationPath + "?token=" + url.QueryEscape(c.projectKey) + "&send_cohorts"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.personalKey)
	if etag != "" {
		header.Set("If-None-Match", etag)
	}

	resp, err := c.roundTrip(ctx, call{
		endpoint: EndpointLocalEvaluation,
		method:   http.MethodGet,
		path:     path,
		header:   header,
		limit:    maxDefinitionsBody,
	}, 1)
	if err != nil {
		return flagstore.FetchResult{}, err
	}

	if resp.status == http.StatusNotModified {
		return flagstore.FetchResult{NotModified: true, ETag: cmp.Or(resp.header.Get("ETag"), etag)}, nil
	}
	if err := statusError(resp); err != nil {
		return flagstore.FetchResult{}, err
	}

	snap, err := flags.DecodeSnapshot(resp.body)
	if err != nil {
		return flagstore.FetchResult{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return flagstore.FetchResult{Snapshot: snap, ETag: resp.header.Get("ETag")}, nil
}

// Decide asks the remote service to evaluate all flags for one actor.
// Decide calls are rate limited and never retried.
func (c *Client) Decide(ctx context.Context, req DecideRequest) (*DecideResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	body, err := json.Marshal(decideBody{APIKey: c.projectKey, DecideRequest: req})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decide request: %w", err)
	}

	resp, err := c.roundTrip(ctx, call{
		endpoint: EndpointDecide,
		method:   http.MethodPost,
		path:     decidePath,
		body:     body,
		limit:    maxResponseBody,
	}, 1)
	if err != nil {
		return nil, err
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}

	var out DecideResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if out.flagsQuotaLimited() {
		return nil, ErrQuotaLimited
	}
	if out.FeatureFlags == nil {
		out.FeatureFlags = map[string]DecideFlag{}
	}

	return &out, nil
}

// SendBatch delivers events to the batch endpoint, retrying temporary failures with
// backoff. Client errors other than 408, 425 and 429 are not retried.
func (c *Client) SendBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	body, err := json.Marshal(batchRequest{APIKey: c.projectKey, Batch: events, SentAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if c.breaker != nil && !c.breaker.Allow() {
		return ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff.Delay(attempt)):
			}
		}

		resp, err := c.roundTrip(ctx, call{
			endpoint: EndpointBatch,
			method:   http.MethodPost,
			path:     batchPath,
			body:     body,
			limit:    maxResponseBody,
		}, attempt+1)
		if err == nil {
			err = statusError(resp)
		}

		if c.breaker != nil {
			if err == nil {
				c.breaker.Success()
			} else {
				c.breaker.Failure()
			}
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanentFailure) {
			return err
		}

		c.logger.LogAttrs(ctx, slog.LevelDebug, "batch delivery attempt failed",
			logger.Component("transport"),
			logger.RetryCount(attempt),
			logger.BatchSize(len(events)),
			logger.StatusCode(resp.status),
			logger.Error(err),
		)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRequestFailed, c.maxRetries+1, lastErr)
}

type call struct {
	endpoint string
	method   string
	path     string
	header   http.Header
	body     []byte
	limit    int64
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// roundTrip performs one HTTP request. Transport failures are classified as timeouts
// or temporary failures; status codes are left to the caller.
func (c *Client) roundTrip(ctx context.Context, cl call, attempt int) (response, error) {
	start := time.Now()
	var resp response

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(reqCtx, cl.method, c.host+cl.path, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range cl.header {
		req.Header[k] = v
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	httpResp, err := c.http.Do(req)
	if err != nil {
		switch {
		case errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		case ctx.Err() != nil:
			err = ctx.Err()
		default:
			err = fmt.Errorf("%w: %w", ErrTemporaryFailure, err)
		}
		c.report(Attempt{Endpoint: cl.endpoint, Attempt: attempt, Duration: time.Since(start), Err: err})
		return resp, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp.status = httpResp.StatusCode
	resp.header = httpResp.Header
	resp.body, err = io.ReadAll(io.LimitReader(httpResp.Body, cl.limit))
	if err != nil {
		err = fmt.Errorf("%w: reading body: %w", ErrTemporaryFailure, err)
	}

	c.report(Attempt{
		Endpoint:   cl.endpoint,
		Attempt:    attempt,
		StatusCode: resp.status,
		Duration:   time.Since(start),
		Err:        err,
	})
	return resp, err
}

func (c *Client) report(a Attempt) {
	if c.onAttempt != nil {
		c.onAttempt(a)
	}
}

// statusError maps a non-2xx response to a sentinel. Permanent failures wrap
// ErrPermanentFailure in addition to the specific sentinel.
func statusError(resp response) error {
	if resp.status >= 200 && resp.status < 300 {
		return nil
	}

	msg := fmt.Sprintf("status %d", resp.status)
	if len(resp.body) > 0 {
		snippet := strings.ReplaceAll(string(resp.body), "\n", " ")
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet] + "..."
		}
		msg += ": " + snippet
	}

	switch {
	case resp.status == http.StatusUnauthorized, resp.status == http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s", ErrPermanentFailure, ErrUnauthorized, msg)
	case resp.status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %w: %s", ErrPermanentFailure, ErrQuotaLimited, msg)
	case isPermanentStatus(resp.status):
		return fmt.Errorf("%w: %s", ErrPermanentFailure, msg)
	default:
		return fmt.Errorf("%w: %s", ErrTemporaryFailure, msg)
	}
}

// isPermanentStatus reports whether a retry cannot change the outcome.
func isPermanentStatus(code int) bool {
	if code < 400 || code >= 500 {
		return false
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	default:
		return true
	}
}
