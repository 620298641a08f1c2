package flags

import "errors"

var (
	// ErrInvalidValue indicates a reference value of an unsupported JSON shape.
	ErrInvalidValue = errors.New("flags: invalid property value")

	// ErrInvalidDefinitions indicates a local-evaluation payload that cannot be decoded.
	ErrInvalidDefinitions = errors.New("flags: invalid flag definitions payload")

	// ErrInvalidPropertyNode indicates a cohort node that is neither a group nor a condition.
	ErrInvalidPropertyNode = errors.New("flags: invalid property node")
)
