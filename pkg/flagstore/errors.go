package flagstore

import "errors"

var (
	// ErrNilFetcher is returned when a store is created without a fetcher.
	ErrNilFetcher = errors.New("flagstore: fetcher cannot be nil")

	// ErrNoSnapshot is returned when no definitions could be loaded from any source.
	ErrNoSnapshot = errors.New("flagstore: no flag definitions available")

	// ErrColdStartFailed is returned by Await while a recent initial load failure is
	// waiting for the next refresh.
	ErrColdStartFailed = errors.New("flagstore: initial load failed recently")

	// ErrFetchFailed wraps errors returned by the fetcher.
	ErrFetchFailed = errors.New("flagstore: failed to fetch flag definitions")

	// ErrAlreadyStarted is returned when Start is called on a running poller.
	ErrAlreadyStarted = errors.New("flagstore: poller already started")

	// ErrNotStarted is returned when Stop is called on a poller that is not running.
	ErrNotStarted = errors.New("flagstore: poller not started")
)
