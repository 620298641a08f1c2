package batch

import "errors"

var (
	// ErrNilSender is returned when a Batcher is created without a sender.
	ErrNilSender = errors.New("batch: sender cannot be nil")

	// ErrClosed is returned when enqueueing into or starting a batcher that was shut down.
	ErrClosed = errors.New("batch: batcher is closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("batch: batcher already started")
)
