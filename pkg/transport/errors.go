package transport

import "errors"

// Error classification:
//   - configuration errors fail fast at construction
//   - permanent failures (most 4xx) are never retried
//   - temporary failures (network, 5xx, 408, 425, 429) are retried for batches
var (
	ErrMissingProjectKey  = errors.New("transport: project API key is required")
	ErrMissingPersonalKey = errors.New("transport: personal API key is required for local evaluation")
	ErrInvalidHost        = errors.New("transport: invalid host")
	ErrRequestFailed      = errors.New("transport: request failed")
	ErrPermanentFailure   = errors.New("transport: permanent failure")
	ErrTemporaryFailure   = errors.New("transport: temporary failure")
	ErrUnauthorized       = errors.New("transport: unauthorized")
	ErrQuotaLimited       = errors.New("transport: quota limited")
	ErrCircuitOpen        = errors.New("transport: circuit breaker is open")
	ErrTimeout            = errors.New("transport: request timeout")
	ErrRateLimited        = errors.New("transport: rate limit wait aborted")
	ErrInvalidResponse    = errors.New("transport: invalid response body")
)
