package featurekit

import "errors"

var (
	ErrMissingProjectKey  = errors.New("featurekit: project API key is required")
	ErrMissingDistinctID  = errors.New("featurekit: distinct id is required")
	ErrMissingEventName   = errors.New("featurekit: event name is required")
	ErrClientClosed       = errors.New("featurekit: client is shut down")
	ErrAlreadyStarted     = errors.New("featurekit: client already started")
	ErrLocalEvaluationOff = errors.New("featurekit: local evaluation is not configured")

	// ErrRemoteEvaluation wraps failures of the remote decide call. A result
	// returned with it is never definitive.
	ErrRemoteEvaluation = errors.New("featurekit: remote evaluation failed")

	// ErrRemoteIncomplete is returned when the remote service reported errors and
	// omitted the requested flag.
	ErrRemoteIncomplete = errors.New("featurekit: remote evaluation incomplete")
)
