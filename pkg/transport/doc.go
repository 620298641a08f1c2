// Package transport is the HTTP client for the remote flag and analytics service.
//
// It covers three endpoints:
//
//   - local evaluation definitions (Fetch), used by flagstore to poll flags and cohorts
//     with ETag revalidation
//   - decide (Decide), the remote evaluation used when local evaluation is inconclusive
//   - batch (SendBatch), the analytics event sink
//
// Batch delivery retries temporary failures with backoff and is guarded by a circuit
// breaker. Client errors are permanent, except 408, 425 and 429. Decide calls are never
// retried and can be rate limited with golang.org/x/time/rate.
//
// # Usage
//
//	c, err := transport.New(projectKey,
//	    transport.WithPersonalAPIKey(personalKey),
//	    transport.WithHost("https://eu.i.posthog.com"),
//	    transport.WithDecideRateLimit(50),
//	)
//	if err != nil {
//	    return err
//	}
//
//	store, err := flagstore.New(c)
//
// # Errors
//
// Status failures wrap a sentinel that can be checked with errors.Is:
// ErrUnauthorized for 401 and 403, ErrQuotaLimited for 402, ErrPermanentFailure for
// every non-retryable status and ErrTemporaryFailure otherwise.
package transport
