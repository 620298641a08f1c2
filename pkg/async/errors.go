package async

import "errors"

var (
	ErrAwaitAborted = errors.New("async: context done before future completed")
	ErrNoFutures    = errors.New("async: WaitAny called with no futures")
)
